package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the failure class of an aggregate write.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeForbidden          ErrorCode = "forbidden"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Reason refines a code with a stable, client-visible cause.
type Reason string

const (
	ReasonAlreadyWithdrawn  Reason = "ALREADY_WITHDRAWN"
	ReasonBidAccepted       Reason = "BID_ACCEPTED"
	ReasonBidSelected       Reason = "BID_SELECTED"
	ReasonCaseNotSelectable Reason = "CASE_NOT_SELECTABLE"
	ReasonCaseNotBiddable   Reason = "CASE_NOT_BIDDABLE"
	ReasonStaleState        Reason = "STALE_STATE"
	ReasonCaseNotFound      Reason = "CASE_NOT_FOUND"
	ReasonBidNotFound       Reason = "BID_NOT_FOUND"
)

// Error is the canonical aggregate error.
type Error struct {
	Code    ErrorCode
	Reason  Reason
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	code := string(e.Code)
	if e.Reason != "" {
		code += "/" + string(e.Reason)
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, code)
	default:
		return code
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// NewReasonError builds an error carrying a reason code.
func NewReasonError(code ErrorCode, reason Reason, op, message string) error {
	return &Error{
		Code:    code,
		Reason:  reason,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
	}
}

// Conflict is shorthand for a reason-coded conflict.
func Conflict(op string, reason Reason, message string) error {
	return NewReasonError(CodeConflict, reason, op, message)
}

func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

func ReasonOf(err error) Reason {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Reason
}
