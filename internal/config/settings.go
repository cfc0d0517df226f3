package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/autosave/internal/logging"
	"github.com/dshills/autosave/internal/scratch"
)

// Settings keys.
const (
	KeySaveDirectory    = "save_directory"
	KeyFilenameFormat   = "filename_format"
	KeyInsertTimestamp  = "insert_timestamp"
	KeyTimestampFormat  = "timestamp_format"
	KeyUseMicroseconds  = "use_microseconds"
	KeyDefaultExtension = "default_extension"
	KeyDebug            = "debug"
	KeyLogLevel         = "log_level"
)

// Keys returns every known settings key in file order.
func Keys() []string {
	return []string{
		KeySaveDirectory,
		KeyFilenameFormat,
		KeyInsertTimestamp,
		KeyTimestampFormat,
		KeyUseMicroseconds,
		KeyDefaultExtension,
		KeyDebug,
		KeyLogLevel,
	}
}

// Settings is the effective autosave configuration.
type Settings struct {
	SaveDirectory    string `toml:"save_directory"`
	FilenameFormat   string `toml:"filename_format"`
	InsertTimestamp  bool   `toml:"insert_timestamp"`
	TimestampFormat  string `toml:"timestamp_format"`
	UseMicroseconds  bool   `toml:"use_microseconds"`
	DefaultExtension string `toml:"default_extension"`
	Debug            bool   `toml:"debug"`
	LogLevel         string `toml:"log_level"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	sc := scratch.DefaultConfig()
	return Settings{
		SaveDirectory:    sc.SaveDirectory,
		FilenameFormat:   sc.FilenameFormat,
		InsertTimestamp:  sc.InsertTimestamp,
		TimestampFormat:  sc.TimestampFormat,
		UseMicroseconds:  sc.UseMicroseconds,
		DefaultExtension: sc.DefaultExtension,
		LogLevel:         "warn",
	}
}

// Scratch returns the scratch lifecycle configuration.
func (s Settings) Scratch() scratch.Config {
	return scratch.Config{
		SaveDirectory:    s.SaveDirectory,
		FilenameFormat:   s.FilenameFormat,
		InsertTimestamp:  s.InsertTimestamp,
		TimestampFormat:  s.TimestampFormat,
		UseMicroseconds:  s.UseMicroseconds,
		DefaultExtension: s.DefaultExtension,
	}
}

// Level returns the log level; Debug forces LevelDebug.
func (s Settings) Level() logging.Level {
	if s.Debug {
		return logging.LevelDebug
	}
	return logging.ParseLevel(s.LogLevel)
}

// Validate checks the settings.
func (s Settings) Validate() error {
	return s.Scratch().Validate()
}

// Map returns the settings keyed by settings key.
func (s Settings) Map() map[string]any {
	return map[string]any{
		KeySaveDirectory:    s.SaveDirectory,
		KeyFilenameFormat:   s.FilenameFormat,
		KeyInsertTimestamp:  s.InsertTimestamp,
		KeyTimestampFormat:  s.TimestampFormat,
		KeyUseMicroseconds:  s.UseMicroseconds,
		KeyDefaultExtension: s.DefaultExtension,
		KeyDebug:            s.Debug,
		KeyLogLevel:         s.LogLevel,
	}
}

// TOML renders the settings as a TOML document.
func (s Settings) TOML() ([]byte, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return data, nil
}

// FromMap decodes a settings map over the defaults. Unknown keys are
// ignored; see UnknownKeys. Boolean keys also accept the strings true,
// false, yes, no, on, off, 1, and 0 as read from the environment.
func FromMap(m map[string]any) (Settings, error) {
	s := Defaults()

	strs := map[string]*string{
		KeySaveDirectory:    &s.SaveDirectory,
		KeyFilenameFormat:   &s.FilenameFormat,
		KeyTimestampFormat:  &s.TimestampFormat,
		KeyDefaultExtension: &s.DefaultExtension,
		KeyLogLevel:         &s.LogLevel,
	}
	bools := map[string]*bool{
		KeyInsertTimestamp: &s.InsertTimestamp,
		KeyUseMicroseconds: &s.UseMicroseconds,
		KeyDebug:           &s.Debug,
	}

	for _, key := range Keys() {
		v, ok := m[key]
		if !ok {
			continue
		}
		if dst, ok := strs[key]; ok {
			str, ok := v.(string)
			if !ok {
				return Settings{}, &TypeError{Key: key, Expected: "string", Actual: typeName(v)}
			}
			*dst = str
			continue
		}
		b, ok := asBool(v)
		if !ok {
			return Settings{}, &TypeError{Key: key, Expected: "bool", Actual: typeName(v)}
		}
		*bools[key] = b
	}

	return s, nil
}

// UnknownKeys returns the keys of m that are not settings keys, sorted.
func UnknownKeys(m map[string]any) []string {
	known := make(map[string]bool)
	for _, k := range Keys() {
		known[k] = true
	}

	var out []string
	for k := range m {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "on", "1":
			return true, true
		case "false", "no", "off", "0":
			return false, true
		}
	}
	return false, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "table"
	default:
		return fmt.Sprintf("%T", v)
	}
}
