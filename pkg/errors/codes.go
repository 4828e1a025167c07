package errors

import "fmt"

// ErrorCode represents a unique identifier for specific error conditions in Strata.
type ErrorCode int

const (
	ErrCodeUnknown       ErrorCode = 1000
	ErrCodeConfigInvalid ErrorCode = 1001

	// State engine programming errors
	ErrCodeLockAcquisition   ErrorCode = 2001
	ErrCodeIllegalTransition ErrorCode = 2002
	ErrCodeInvalidOperand    ErrorCode = 2003
	ErrCodeUnconvertable     ErrorCode = 2004
	ErrCodeUnknownOperator   ErrorCode = 2005

	// Boundaries
	ErrCodePersistFailed ErrorCode = 3001
	ErrCodeRelayFailed   ErrorCode = 3002
	ErrCodeExecFailed    ErrorCode = 3003
)

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrLockAcquisition    = &StrataError{Code: ErrCodeLockAcquisition, Msg: "lock acquisition failure"}
	ErrIllegalTransition  = &StrataError{Code: ErrCodeIllegalTransition, Msg: "illegal state transition"}
	ErrInvalidOperand     = &StrataError{Code: ErrCodeInvalidOperand, Msg: "invalid operand"}
	ErrUnconvertableState = &StrataError{Code: ErrCodeUnconvertable, Msg: "unconvertable state"}
	ErrUnknownOperator    = &StrataError{Code: ErrCodeUnknownOperator, Msg: "unknown state operator"}
)

// StrataError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type StrataError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *StrataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *StrataError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a StrataError carrying the same code.
func (e *StrataError) Is(target error) bool {
	t, ok := target.(*StrataError)
	return ok && t.Code == e.Code
}

// New creates a new StrataError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &StrataError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, op, format string, args ...any) error {
	return New(code, op, fmt.Sprintf(format, args...), nil)
}

// CodeOf returns the code of the first StrataError in err's chain, or ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if se, ok := err.(*StrataError); ok {
			return se.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrCodeUnknown
}

// Personal.AI order the ending
