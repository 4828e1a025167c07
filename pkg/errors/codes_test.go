package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestStrataError_Error(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "Startup", "invalid config file", nil)
	expected := "[1001] Startup: invalid config file"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	cause := errors.New("file not found")
	errWithCause := New(ErrCodeConfigInvalid, "Startup", "invalid config file", cause)
	expectedWithCause := "[1001] Startup: invalid config file (cause: file not found)"
	if errWithCause.Error() != expectedWithCause {
		t.Errorf("Expected %q, got %q", expectedWithCause, errWithCause.Error())
	}
}

func TestStrataError_Unwrap(t *testing.T) {
	cause := errors.New("file not found")
	err := New(ErrCodePersistFailed, "Save", "write failed", cause)

	if errors.Unwrap(err) != cause {
		t.Errorf("Expected cause %v, got %v", cause, errors.Unwrap(err))
	}

	errNoCause := New(ErrCodeConfigInvalid, "Startup", "invalid config file", nil)
	if errors.Unwrap(errNoCause) != nil {
		t.Errorf("Expected nil cause, got %v", errors.Unwrap(errNoCause))
	}
}

func TestStrataError_IsMatchesByCode(t *testing.T) {
	err := Newf(ErrCodeInvalidOperand, "WORST", "operand %d is DESTROYED", 2)
	if !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("Expected %v to match ErrInvalidOperand", err)
	}
	if errors.Is(err, ErrLockAcquisition) {
		t.Errorf("Did not expect %v to match ErrLockAcquisition", err)
	}

	wrapped := fmt.Errorf("recompute: %w", err)
	if !errors.Is(wrapped, ErrInvalidOperand) {
		t.Errorf("Expected wrapped error to match ErrInvalidOperand")
	}
	if CodeOf(wrapped) != ErrCodeInvalidOperand {
		t.Errorf("Expected code %d, got %d", ErrCodeInvalidOperand, CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != ErrCodeUnknown {
		t.Errorf("Expected unknown code for plain error")
	}
}
