package periodlock

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is the mutation that was attempted
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// IsValid checks if the action is valid
func (a Action) IsValid() bool {
	return a == ActionCreate || a == ActionUpdate
}

// String returns the string representation
func (a Action) String() string {
	return string(a)
}

// ViolationReason is the reason recorded on a violation row
type ViolationReason string

const (
	ViolationGlobalLockedPeriod ViolationReason = "global_locked_period"
	ViolationAccountingPeriod   ViolationReason = "accounting_period"
)

// DefaultViolationSource is recorded when the caller does not name itself
const DefaultViolationSource = "server_gate"

// ViolationDetails is stored as JSON alongside the violation
type ViolationDetails struct {
	Source     string          `json:"source"`
	Reason     ViolationReason `json:"reason"`
	PeriodName string          `json:"period_name,omitempty"`
}

// Violation records a blocked attempt. Rows are append-only.
type Violation struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	UserID           uuid.UUID
	EntityType       string
	EntityID         *uuid.UUID
	AttemptedDate    CalendarDate
	LockedPeriodDate *CalendarDate
	Action           Action
	Blocked          bool
	Details          ViolationDetails
	CreatedAt        time.Time
}

// NewViolation builds a blocked violation row
func NewViolation(
	tenantID, userID uuid.UUID,
	entityType string,
	entityID *uuid.UUID,
	attempted CalendarDate,
	lockedThrough *CalendarDate,
	action Action,
	details ViolationDetails,
) *Violation {
	if strings.TrimSpace(details.Source) == "" {
		details.Source = DefaultViolationSource
	}
	return &Violation{
		ID:               uuid.New(),
		TenantID:         tenantID,
		UserID:           userID,
		EntityType:       entityType,
		EntityID:         entityID,
		AttemptedDate:    attempted,
		LockedPeriodDate: lockedThrough,
		Action:           action,
		Blocked:          true,
		Details:          details,
		CreatedAt:        time.Now(),
	}
}
