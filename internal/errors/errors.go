// Package errors defines the error taxonomy used throughout soltrace.
//
// Errors carry a stable code so callers can branch on failure class
// (config, IDL load, decode, store, upstream) without string matching,
// while still composing with the standard errors.Is/As/Unwrap chain.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the soltrace taxonomy.
const (
	ErrCodeConfig          = "CONFIG"
	ErrCodeIdlLoad         = "IDL_LOAD"
	ErrCodeDuplicateDisc   = "DUPLICATE_DISCRIMINATOR"
	ErrCodeProgramMismatch = "PROGRAM_MISMATCH"
	ErrCodeDecode          = "DECODE"
	ErrCodeStore           = "STORE"
	ErrCodeDuplicate       = "DUPLICATE"
	ErrCodeUnsupportedURL  = "UNSUPPORTED_SCHEME"
	ErrCodeUpstream        = "UPSTREAM"
)

// SoltraceError is a coded error with an optional cause and structured details.
type SoltraceError struct {
	// Code is a unique error code for this error type.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *SoltraceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SoltraceError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target by code.
func (e *SoltraceError) Is(target error) bool {
	t, ok := target.(*SoltraceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of e with cause attached. It never mutates e,
// so it is safe to call on the package's sentinel errors below without
// corrupting shared state.
func (e *SoltraceError) WithCause(cause error) *SoltraceError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithDetails returns a copy of e with details attached. See WithCause.
func (e *SoltraceError) WithDetails(details map[string]any) *SoltraceError {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new SoltraceError.
func New(code, message string) *SoltraceError {
	return &SoltraceError{Code: code, Message: message}
}

// Pre-defined sentinel errors for the most common codes.
var (
	ErrDuplicateDiscriminator = New(ErrCodeDuplicateDisc, "duplicate event discriminator in IDL")
	ErrProgramMismatch        = New(ErrCodeProgramMismatch, "IDL program address does not match registered program id")
	ErrDuplicateSignature     = New(ErrCodeDuplicate, "signature already present in store")
	ErrUnsupportedScheme      = New(ErrCodeUnsupportedURL, "unsupported storage connection scheme")
)

// Config creates a fatal configuration error.
func Config(message string) *SoltraceError {
	return New(ErrCodeConfig, message)
}

// IdlLoad creates an error for a malformed or unreadable IDL file.
func IdlLoad(what string, cause error) *SoltraceError {
	return New(ErrCodeIdlLoad, fmt.Sprintf("failed to load IDL %s", what)).WithCause(cause)
}

// Decode creates an error for a decode failure.
func Decode(reason string) *SoltraceError {
	return New(ErrCodeDecode, reason)
}

// Store wraps a backend-specific storage error.
func Store(reason string, cause error) *SoltraceError {
	return New(ErrCodeStore, reason).WithCause(cause)
}

// Upstream wraps a transient or terminal RPC/subscription error.
func Upstream(reason string, cause error) *SoltraceError {
	return New(ErrCodeUpstream, reason).WithCause(cause)
}

// Wrap adds context to err without discarding its identity in the chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
