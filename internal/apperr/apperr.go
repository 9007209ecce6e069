// internal/apperr/apperr.go
// Package apperr defines the error taxonomy shared across helix.
// Malformed model output is intentionally absent: it is represented as an
// error-tagged result value, not a Go error (see internal/llm).
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for unknown document, project, or entity keys.
// Callers receive no partial result alongside it.
var ErrNotFound = errors.New("not found")

// ConfigError is a fatal configuration problem. It is surfaced immediately
// and never retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// TransientError wraps a store or endpoint failure that request-level policy
// may retry; the core itself does not.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError, or returns nil when err is nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
