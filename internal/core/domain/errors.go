package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a checkpoint error with a structured error code.
// Codes have the form CP-<KIND>-<NNNN>; the last four digits carry the
// HTTP-like status the management API reports for the error.
type DomainError struct {
	Code    string // Error code (e.g., "CP-FMT-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Log format errors (FMT)
// ============================================================================

var (
	// ErrNoMagic indicates sector 0 carries no log header. The device was
	// never checkpointed or has already been restored.
	ErrNoMagic = NewDomainError("CP-FMT-4040", "no log magic at sector 0")

	// ErrBadMagic indicates a log sector inside the chain lost its magic.
	ErrBadMagic = NewDomainError("CP-FMT-4220", "bad log magic")

	// ErrSequenceMismatch indicates a log sector carries an unexpected sequence.
	ErrSequenceMismatch = NewDomainError("CP-FMT-4221", "log sequence mismatch")

	// ErrChecksumMismatch indicates a pre-image does not match its recorded checksum.
	ErrChecksumMismatch = NewDomainError("CP-FMT-4222", "checksum mismatch")

	// ErrEntryRange indicates an entry count or entry size outside the format bounds.
	ErrEntryRange = NewDomainError("CP-FMT-4223", "log entry out of range")
)

// ============================================================================
// Consistency errors (CONS)
// ============================================================================

var (
	// ErrRestoreFailed indicates a write-back failed after the chain validated.
	// The device may be partially restored.
	ErrRestoreFailed = NewDomainError("CP-CONS-5001", "restore failed after validation")
)

// ============================================================================
// I/O errors (IO)
// ============================================================================

var (
	// ErrDeviceIO indicates a block device could not be opened, read or written.
	ErrDeviceIO = NewDomainError("CP-IO-5002", "device i/o failure")

	// ErrControl indicates a control endpoint, remount, trim or reboot failure.
	ErrControl = NewDomainError("CP-IO-5003", "control operation failed")

	// ErrRecordIO indicates the checkpoint record or a mount table could not be
	// read or written.
	ErrRecordIO = NewDomainError("CP-IO-5004", "record i/o failure")
)

// ============================================================================
// Input errors (ARG)
// ============================================================================

var (
	// ErrInvalidRetry indicates a retry count below -1.
	ErrInvalidRetry = NewDomainError("CP-ARG-4001", "retry count must be >= -1")

	// ErrInvalidRecord indicates the persisted counter could not be parsed.
	ErrInvalidRecord = NewDomainError("CP-ARG-4002", "unparsable checkpoint record")

	// ErrInvalidDevice indicates a malformed block device path.
	ErrInvalidDevice = NewDomainError("CP-ARG-4003", "invalid block device path")
)

// ============================================================================
// System errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an internal error.
	ErrInternal = NewDomainError("CP-SYS-5000", "internal error")

	// ErrUnsupported indicates the operation is not available on this platform.
	ErrUnsupported = NewDomainError("CP-SYS-5010", "not supported on this platform")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("CP-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("CP-SYS-4290", "too many requests")
)
