// Package fault carries the error taxonomy shared by the circulation
// services. Controllers switch on Code(err) to pick a response; callers
// use Retryable to distinguish transient store trouble from terminal
// outcomes.
package fault

import (
	"errors"
	"fmt"
)

type ErrCode string

const (
	// ErrValidation: malformed input or a missing required reference.
	ErrValidation ErrCode = "VALIDATION"
	// ErrNotFound: the referenced entity does not exist.
	ErrNotFound ErrCode = "NOT_FOUND"
	// ErrConflict: a uniqueness invariant would be violated.
	ErrConflict ErrCode = "CONFLICT"
	// ErrState: the operation is invalid for the current lifecycle state.
	ErrState ErrCode = "STATE"
	// ErrNoCopyAvailable: every copy of the title is on open loan.
	ErrNoCopyAvailable ErrCode = "NO_COPY_AVAILABLE"
	// ErrStore: the backing store failed.
	ErrStore ErrCode = "STORE"
)

type codedError struct {
	code      ErrCode
	msg       string
	cause     error
	transient bool
}

func (e codedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e codedError) Code() ErrCode   { return e.code }
func (e codedError) Unwrap() error   { return e.cause }
func (e codedError) Transient() bool { return e.transient }

// New builds a terminal coded error.
func New(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Newf is New with formatting.
func Newf(c ErrCode, format string, args ...any) error {
	return codedError{code: c, msg: fmt.Sprintf(format, args...)}
}

// Store wraps a backing-store failure. transient marks it safe to retry.
func Store(msg string, cause error, transient bool) error {
	return codedError{code: ErrStore, msg: msg, cause: cause, transient: transient}
}

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Retryable reports whether the failure is transient. Only store errors
// explicitly marked transient qualify; every taxonomy code is terminal.
func Retryable(err error) bool {
	var te interface{ Transient() bool }
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}
