package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// ErrorCategory represents the type of failure encountered while
// processing a file or the run as a whole.
type ErrorCategory string

const (
	ErrorCategoryUnreadable ErrorCategory = "unreadable_content"    // I/O or decode failure; file quarantined
	ErrorCategoryVanished   ErrorCategory = "vanished_source"       // source disappeared between scan and transfer
	ErrorCategoryExhausted  ErrorCategory = "destination_exhausted" // target storage full; run aborts
	ErrorCategoryUnknown    ErrorCategory = "unknown_error"
)

// ProcessError is a categorized error tied to a file path.
type ProcessError struct {
	Path     string
	Category ErrorCategory
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Path, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsDiskFull reports whether err means the destination filesystem is out
// of space. This is the only input-independent condition that aborts a run.
func IsDiskFull(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no space left")
}

// IsVanished reports whether err means the file stopped existing.
func IsVanished(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// CategorizeError classifies an error for logging and abort decisions.
func CategorizeError(path string, err error) *ProcessError {
	if err == nil {
		return nil
	}
	procErr := &ProcessError{Path: path, Err: err}
	switch {
	case IsDiskFull(err):
		procErr.Category = ErrorCategoryExhausted
	case IsVanished(err):
		procErr.Category = ErrorCategoryVanished
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EIO):
		procErr.Category = ErrorCategoryUnreadable
	default:
		procErr.Category = ErrorCategoryUnknown
	}
	return procErr
}

// Suggestion returns a user-facing hint for a category.
func (c ErrorCategory) Suggestion() string {
	switch c {
	case ErrorCategoryExhausted:
		return "free up disk space on the destination drive and re-run; completed files are already recorded"
	case ErrorCategoryVanished:
		return "check whether the source drive or card was disconnected mid-import"
	case ErrorCategoryUnreadable:
		return "verify source media health; the file was quarantined, not imported"
	default:
		return ""
	}
}
