package loader

import (
	"errors"
	"io"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotObject   = errors.New("top level value must be an object")
)

// JSONLoader loads settings from JSON files, including editor
// .sublime-settings files.
type JSONLoader struct {
	source
}

// NewJSONLoader creates a JSON loader for path.
func NewJSONLoader(fsys afero.Fs, path string) *JSONLoader {
	return &JSONLoader{source: newSource(fsys, path)}
}

// Load reads settings from the configured path.
func (l *JSONLoader) Load() (map[string]any, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads settings from a specific path.
func (l *JSONLoader) LoadFrom(path string) (map[string]any, error) {
	data, err := l.read(path)
	if err != nil || data == nil {
		return nil, err
	}
	return parseJSON(path, data)
}

// LoadFromReader reads settings from an io.Reader.
func (l *JSONLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return parseJSON("<reader>", data)
}

func parseJSON(source string, data []byte) (map[string]any, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: source, Message: errInvalidJSON.Error(), Err: errInvalidJSON}
	}
	result := gjson.ParseBytes(data)
	if !result.IsObject() {
		return nil, &ParseError{Path: source, Message: errNotObject.Error(), Err: errNotObject}
	}
	config, _ := result.Value().(map[string]any)
	if config == nil {
		config = make(map[string]any)
	}
	return config, nil
}
