package loader

import (
	"errors"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// TOMLLoader loads settings from TOML files.
type TOMLLoader struct {
	source
}

// NewTOMLLoader creates a TOML loader for path.
func NewTOMLLoader(fsys afero.Fs, path string) *TOMLLoader {
	return &TOMLLoader{source: newSource(fsys, path)}
}

// Load reads settings from the configured path.
func (l *TOMLLoader) Load() (map[string]any, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads settings from a specific path.
func (l *TOMLLoader) LoadFrom(path string) (map[string]any, error) {
	data, err := l.read(path)
	if err != nil || data == nil {
		return nil, err
	}
	return parseTOML(path, data)
}

// LoadFromReader reads settings from an io.Reader.
func (l *TOMLLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return parseTOML("<reader>", data)
}

func parseTOML(source string, data []byte) (map[string]any, error) {
	config := make(map[string]any)
	if err := toml.Unmarshal(data, &config); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}
	return config, nil
}
