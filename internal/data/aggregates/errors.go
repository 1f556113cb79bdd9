package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
)

var (
	// ErrValidation marks caller input failures.
	ErrValidation = errors.New("aggregate validation")
	// ErrInvariant marks state that should be impossible under the aggregate lock.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict marks lost compare-and-set races.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable marks transient failures.
	ErrRetryable = errors.New("aggregate retryable")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// sqlite reports constraint and lock errors only through message text.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"unique constraint failed", domainagg.CodeConflict},
	{"database is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
}

// MapError converts infrastructure and tagged errors into *domainagg.Error.
// Errors that already carry a code pass through untouched. Conflicts found
// here carry STALE_STATE; guard-level conflicts set their own reason.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return aggErr
	}
	return wrapCode(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, mc := range messageCodes {
		if strings.Contains(msg, mc.fragment) {
			return mc.code
		}
	}
	return domainagg.CodeInternal
}

func wrapCode(code domainagg.ErrorCode, op string, err error) error {
	if code == domainagg.CodeConflict {
		return &domainagg.Error{Code: code, Reason: domainagg.ReasonStaleState, Op: op, Message: err.Error(), Cause: err}
	}
	return domainagg.Wrap(code, op, err)
}
