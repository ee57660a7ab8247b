package periodlock

import (
	"errors"

	"github.com/commandx/backend/internal/domain/shared"
)

// ErrStoreUnreachable is matched (errors.Is) by every error returned when the
// lock configuration could not be read: timeouts, connection or auth
// failures and rows that cannot be decoded. It is never returned for "no
// locks configured".
var ErrStoreUnreachable = errors.New("period store unreachable")

var (
	ErrInvalidDate        = shared.NewDomainError("INVALID_DATE", "Date must be a calendar date in YYYY-MM-DD format")
	ErrPeriodNotFound     = shared.NewDomainError("PERIOD_NOT_FOUND", "Accounting period not found")
	ErrInvalidPeriodName  = shared.NewDomainError("INVALID_PERIOD_NAME", "Period name is required and must be at most 100 characters")
	ErrInvalidPeriodRange = shared.NewDomainError("INVALID_PERIOD_RANGE", "Period start date must be on or before its end date")
	ErrCutoffRequired     = shared.NewDomainError("CUTOFF_REQUIRED", "A lock cutoff date is required when the period lock is enabled")
	ErrInvalidAction      = shared.NewDomainError("INVALID_ACTION", "Action must be create or update")
)

// StoreError wraps a failure of the period store backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return "period store " + e.Op + " failed"
	}
	return "period store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes every StoreError match ErrStoreUnreachable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnreachable
}

// Unreachable wraps err as a StoreError for the given operation.
// A nil err returns nil.
func Unreachable(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// CodePeriodLocked is the domain error code of a blocked mutation
const CodePeriodLocked = "PERIOD_LOCKED"

// NewPeriodLockedError returns the error a mutation aborts with when the gate
// refuses it. The message is shown to the user verbatim.
func NewPeriodLockedError(message string) *shared.DomainError {
	return shared.NewDomainError(CodePeriodLocked, message)
}
