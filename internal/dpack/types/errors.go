package types

import (
	"errors"
	"fmt"
)

// ErrPasswordMismatch is returned when the password confirmation does
// not match the first entry. The run aborts before any archive bytes
// are written; there is no retry.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ConfigError reports an invalid configuration value. It is always
// fatal and always pre-execution.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FilesystemError reports a missing or unreadable path. Fatal when the
// path is the archive root; unreadable subtrees encountered during
// traversal are skipped instead.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// ExecError reports a pipeline stage failure, naming the failed stage.
// Fatal in whole-tree mode; logged and isolated per partition in
// sub-archive mode.
type ExecError struct {
	Stage string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
