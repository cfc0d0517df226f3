package loader

import (
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// YAMLLoader loads settings from YAML files.
type YAMLLoader struct {
	source
}

// NewYAMLLoader creates a YAML loader for path.
func NewYAMLLoader(fsys afero.Fs, path string) *YAMLLoader {
	return &YAMLLoader{source: newSource(fsys, path)}
}

// Load reads settings from the configured path.
func (l *YAMLLoader) Load() (map[string]any, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads settings from a specific path.
func (l *YAMLLoader) LoadFrom(path string) (map[string]any, error) {
	data, err := l.read(path)
	if err != nil || data == nil {
		return nil, err
	}
	return parseYAML(path, data)
}

// LoadFromReader reads settings from an io.Reader.
func (l *YAMLLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return parseYAML("<reader>", data)
}

func parseYAML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	if config == nil {
		config = make(map[string]any)
	}
	return config, nil
}
