// Package stasherr defines the error kinds surfaced by stash and
// retrieve operations.
package stasherr

import (
	"errors"
	"fmt"
)

var (
	ErrNoBackend          = errors.New("no storage backend configured")
	ErrNoRootContainer    = errors.New("root container is required")
	ErrDuplicateProvider  = errors.New("duplicate provider identifier")
	ErrSuffixMissing      = errors.New("name does not carry the expected suffix")
	ErrDecrypt            = errors.New("decryption failed (wrong password or corrupted data)")
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

// ConfigError reports missing or invalid configuration at construction
// time.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Transform ops.
const (
	OpForward = "forward"
	OpReverse = "reverse"
)

// TransformError reports a provider failure on a single media entity.
type TransformError struct {
	Provider string
	Media    string
	Op       string
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s %s on %q: %v", e.Provider, e.Op, e.Media, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Backend ops.
const (
	OpList = "list"
	OpPut  = "put"
	OpGet  = "get"
)

// BackendError wraps a failure returned by a storage adapter.
type BackendError struct {
	Op        string
	Container string
	Key       string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Container, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// NewTransformError builds a TransformError.
func NewTransformError(provider, media, op string, err error) *TransformError {
	return &TransformError{Provider: provider, Media: media, Op: op, Err: err}
}

// NewBackendError builds a BackendError.
func NewBackendError(op, container, key string, err error) *BackendError {
	return &BackendError{Op: op, Container: container, Key: key, Err: err}
}

func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsTransform(err error) bool {
	var target *TransformError
	return errors.As(err, &target)
}

func IsBackend(err error) bool {
	var target *BackendError
	return errors.As(err, &target)
}
