package loader

import (
	"os"
	"strings"
)

// DefaultEnvPrefix is the prefix of environment variables read by EnvLoader.
const DefaultEnvPrefix = "AUTOSAVE_"

// EnvLoader loads settings from environment variables.
//
// AUTOSAVE_SAVE_DIRECTORY becomes the key "save_directory". Values are kept
// as strings; typed decoding happens when the settings are assembled.
type EnvLoader struct {
	prefix  string            // e.g. "AUTOSAVE_"
	mapping map[string]string // env var -> settings key
	environ func() []string
}

// NewEnvLoader creates an environment loader for prefix.
// The prefix should include the trailing underscore (e.g., "AUTOSAVE_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		environ: os.Environ,
	}
}

// AddMapping maps envVar to key, overriding the derived name.
func (l *EnvLoader) AddMapping(envVar, key string) {
	l.mapping[envVar] = key
}

// RemoveMapping removes an environment variable mapping.
func (l *EnvLoader) RemoveMapping(envVar string) {
	delete(l.mapping, envVar)
}

// Load reads prefixed environment variables and returns a settings map.
// Empty values are kept; they are valid settings values, not unset ones.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	if l.prefix == "" {
		return config, nil
	}

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		key, mapped := l.mapping[name]
		if !mapped {
			key = l.envToKey(name)
		}
		if key == "" {
			continue
		}
		config[key] = value
	}

	return config, nil
}

// envToKey converts AUTOSAVE_SAVE_DIRECTORY to save_directory.
func (l *EnvLoader) envToKey(env string) string {
	return strings.ToLower(strings.TrimPrefix(env, l.prefix))
}
