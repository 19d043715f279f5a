// Package ext2 provides the on-disk types and semantic operations for a
// single-group ext2 filesystem image, along with the errors and mode-bit
// constants shared by every sub-package.
package ext2

import (
	"fmt"
	"syscall"
)

// DriverError is a wrapper around a POSIX errno code with a customizable
// message. Operations in this module report their own failures with one of
// these, so callers (notably cmd/ext2) can recover the errno and use it as a
// process exit code. Host I/O errors from the standard library (reading the
// host file in fsops.CopyIn, opening the image in imagemap.Open) are passed
// through as they are.
type DriverError struct {
	ErrnoCode syscall.Errno
	message   string
}

// Error implements the `error` object interface.
func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.ErrnoCode.Error()
}

// Errno returns the wrapped errno code.
func (e *DriverError) Errno() syscall.Errno {
	return e.ErrnoCode
}

// Unwrap lets errors.Is/errors.As see through to the errno code.
func (e *DriverError) Unwrap() error {
	return e.ErrnoCode
}

// NewDriverError creates a new DriverError with a default message derived
// from the system's error code.
func NewDriverError(errnoCode syscall.Errno) *DriverError {
	return &DriverError{
		ErrnoCode: errnoCode,
		message:   errnoCode.Error(),
	}
}

// NewDriverErrorWithMessage creates a new DriverError from a system error
// code with a custom message.
func NewDriverErrorWithMessage(errnoCode syscall.Errno, message string) *DriverError {
	return &DriverError{
		ErrnoCode: errnoCode,
		message:   fmt.Sprintf("%s: %s", errnoCode.Error(), message),
	}
}

// Errno codes used throughout this module. EUCLEAN ("structure needs
// cleaning") is reused for CorruptImage conditions, matching how
// fsck-style tools report metadata corruption.
const (
	ErrInvalidArgument = syscall.EINVAL
	ErrNotFound        = syscall.ENOENT
	ErrAlreadyExists   = syscall.EEXIST
	ErrNotADirectory   = syscall.ENOTDIR
	ErrIsADirectory    = syscall.EISDIR
	ErrNoSpace         = syscall.ENOSPC
	ErrIO              = syscall.EIO
	ErrCorruptImage    = syscall.EUCLEAN
)
