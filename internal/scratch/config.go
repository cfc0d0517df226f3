package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default setting values.
const (
	DefaultSaveDirectory    = "~/scratch"
	DefaultFilenameFormat   = "{timestamp}.{extension}"
	DefaultInsertTimestamp  = true
	DefaultTimestampFormat  = "%Y_%m_%d_%H%M%S"
	DefaultUseMicroseconds  = false
	DefaultDefaultExtension = "md"
)

// Config controls where scratch files go and how they are named.
// A Config is treated as immutable for the duration of one operation.
type Config struct {
	// SaveDirectory is the directory scratch files are written to.
	// A leading "~" is expanded to the user's home directory.
	SaveDirectory string

	// FilenameFormat is the file name template. It may reference
	// {timestamp} and {extension}.
	FilenameFormat string

	// InsertTimestamp prepends the rendered timestamp and a newline to the
	// buffer after the first save.
	InsertTimestamp bool

	// TimestampFormat is a strftime pattern.
	TimestampFormat string

	// UseMicroseconds appends a sub-second field to the timestamp.
	UseMicroseconds bool

	// DefaultExtension fills {extension}.
	DefaultExtension string
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		SaveDirectory:    DefaultSaveDirectory,
		FilenameFormat:   DefaultFilenameFormat,
		InsertTimestamp:  DefaultInsertTimestamp,
		TimestampFormat:  DefaultTimestampFormat,
		UseMicroseconds:  DefaultUseMicroseconds,
		DefaultExtension: DefaultDefaultExtension,
	}
}

// Validate checks that the configuration can produce file names.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SaveDirectory) == "" {
		return fmt.Errorf("%w: save directory is empty", ErrInvalidConfig)
	}
	if c.FilenameFormat == "" {
		return fmt.Errorf("%w: filename format is empty", ErrInvalidConfig)
	}
	if c.TimestampFormat == "" {
		return fmt.Errorf("%w: timestamp format is empty", ErrInvalidConfig)
	}
	return nil
}

// Directory returns SaveDirectory with a leading "~" expanded.
func (c Config) Directory() (string, error) {
	return ExpandHome(c.SaveDirectory)
}

// ExpandHome expands a leading "~" or "~/" to the current user's home
// directory. Other paths are returned cleaned but otherwise unchanged.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return filepath.Clean(path), nil
}
