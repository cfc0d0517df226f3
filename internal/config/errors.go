package config

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch indicates a setting value has the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNoSettingsFile indicates the provider has no settings file to watch.
	ErrNoSettingsFile = errors.New("no settings file")
)

// TypeError is returned when a setting value has the wrong type.
type TypeError struct {
	// Key is the settings key.
	Key string
	// Expected is the expected type name.
	Expected string
	// Actual is the actual type name.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %s", e.Key, e.Expected, e.Actual)
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
