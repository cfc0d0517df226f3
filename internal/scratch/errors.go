package scratch

import (
	"errors"
	"fmt"
)

// Error kinds reported by the Manager. Use errors.Is to classify a returned
// error.
var (
	// ErrDirectoryCreation indicates the save directory could not be created.
	ErrDirectoryCreation = errors.New("directory creation failed")

	// ErrPermissionDenied indicates the process may not write to the save
	// directory or remove a tracked file.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDirectoryAccess indicates the save directory exists but could not be
	// used for a reason other than permissions.
	ErrDirectoryAccess = errors.New("directory access failed")

	// ErrSave indicates retargeting or persisting the buffer failed.
	ErrSave = errors.New("save failed")

	// ErrDelete indicates a tracked file could not be removed.
	ErrDelete = errors.New("delete failed")

	// ErrInvalidConfig indicates a configuration that cannot produce a path.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidFilenameFormat indicates a filename template that references
	// unknown fields or produces an unusable name.
	ErrInvalidFilenameFormat = errors.New("invalid filename format")

	// ErrInvalidTimestampFormat indicates a strftime pattern that could not be
	// compiled.
	ErrInvalidTimestampFormat = errors.New("invalid timestamp format")
)

// Operation names used in OperationError.
const (
	OpCreateDirectory = "create directory"
	OpAccessDirectory = "access directory"
	OpResolve         = "resolve"
	OpSave            = "save"
	OpDelete          = "delete"
)

// OperationError describes a failed file-system step of the lifecycle.
type OperationError struct {
	Op     string // Operation name (e.g., "save", "delete")
	Target string // Path the operation acted on
	Kind   error  // One of the Err* kinds above
	Err    error  // Underlying error
}

func newOpError(op, target string, kind, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Kind: kind, Err: err}
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Kind != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the error's kind. The wrapped error is
// matched through Unwrap.
func (e *OperationError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*OperationError); ok {
		return e == t
	}
	return e.Kind != nil && e.Kind == target
}

// UserMessage renders err as the single human-readable line shown to the
// user. It never includes structured codes.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		return err.Error()
	}

	switch {
	case errors.Is(opErr.Kind, ErrPermissionDenied) && opErr.Op == OpDelete:
		return fmt.Sprintf("Permission denied: cannot delete file %s", opErr.Target)
	case errors.Is(opErr.Kind, ErrPermissionDenied):
		return fmt.Sprintf("Permission denied: cannot access directory %s", opErr.Target)
	case errors.Is(opErr.Kind, ErrDirectoryCreation):
		return fmt.Sprintf("Failed to create directory %s: %v", opErr.Target, opErr.Err)
	case errors.Is(opErr.Kind, ErrDirectoryAccess):
		return fmt.Sprintf("Failed to access directory %s: %v", opErr.Target, opErr.Err)
	case errors.Is(opErr.Kind, ErrSave):
		return fmt.Sprintf("Failed to save file %s: %v", opErr.Target, opErr.Err)
	case errors.Is(opErr.Kind, ErrDelete):
		return fmt.Sprintf("Failed to delete file %s: %v", opErr.Target, opErr.Err)
	default:
		return opErr.Error()
	}
}
