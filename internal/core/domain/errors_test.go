package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("CP-TEST-1000", "test message"),
			expected: "[CP-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("CP-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[CP-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("CP-TEST-1000", "message 1")
	err2 := NewDomainError("CP-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("CP-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("CP-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("CP-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("CP-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
	if withDetails.Message != original.Message {
		t.Errorf("Message = %q, want %q", withDetails.Message, original.Message)
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("CP-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}
	if withCause.Code != original.Code {
		t.Errorf("Code = %q, want %q", withCause.Code, original.Code)
	}
}

func TestDomainError_Wrap(t *testing.T) {
	cause := fmt.Errorf("cause")
	wrapped := ErrDeviceIO.Wrap(cause)

	if wrapped.Cause != cause {
		t.Errorf("Wrap() should set cause, got %v", wrapped.Cause)
	}
	if !errors.Is(wrapped, ErrDeviceIO) {
		t.Error("wrapped error should still match its sentinel")
	}
}

func TestIsDomainError(t *testing.T) {
	err := ErrNoMagic

	if !IsDomainError(err, "CP-FMT-4040") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(err, "CP-FMT-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(err, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "CP-FMT-4040") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("restore /dev/block/sda: %w", ErrNoMagic)
	if !IsDomainError(wrapped, "CP-FMT-4040") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrChecksumMismatch, "CP-FMT-4222"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrRestoreFailed), "CP-CONS-5001"},
		{"joined domain error", errors.Join(fmt.Errorf("other"), ErrControl), "CP-IO-5003"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		// Format errors
		{ErrNoMagic, "CP-FMT-4040"},
		{ErrBadMagic, "CP-FMT-4220"},
		{ErrSequenceMismatch, "CP-FMT-4221"},
		{ErrChecksumMismatch, "CP-FMT-4222"},
		{ErrEntryRange, "CP-FMT-4223"},

		// Consistency errors
		{ErrRestoreFailed, "CP-CONS-5001"},

		// I/O errors
		{ErrDeviceIO, "CP-IO-5002"},
		{ErrControl, "CP-IO-5003"},
		{ErrRecordIO, "CP-IO-5004"},

		// Input errors
		{ErrInvalidRetry, "CP-ARG-4001"},
		{ErrInvalidRecord, "CP-ARG-4002"},
		{ErrInvalidDevice, "CP-ARG-4003"},

		// System errors
		{ErrInternal, "CP-SYS-5000"},
		{ErrUnsupported, "CP-SYS-5010"},
		{ErrBadRequest, "CP-SYS-4000"},
		{ErrRateLimited, "CP-SYS-4290"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}

func TestErrorChaining(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ErrSequenceMismatch.
		WithDetails("expected 3, got 2").
		WithCause(cause)

	if err.Code != "CP-FMT-4221" {
		t.Errorf("Code = %q, want %q", err.Code, "CP-FMT-4221")
	}
	if err.Details != "expected 3, got 2" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if ErrSequenceMismatch.Details != "" || ErrSequenceMismatch.Cause != nil {
		t.Error("sentinel must not be modified by chaining")
	}
}
