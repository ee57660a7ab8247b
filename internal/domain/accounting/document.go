package accounting

import (
	"strings"
	"time"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityType identifies the kind of financially dated record
type EntityType string

const (
	EntityTypeInvoice       EntityType = "invoice"
	EntityTypeBill          EntityType = "bill"
	EntityTypePayroll       EntityType = "payroll"
	EntityTypePurchaseOrder EntityType = "purchase_order"
	EntityTypeChangeOrder   EntityType = "change_order"
	EntityTypeSOVLine       EntityType = "sov_line"
)

var entityLabels = map[EntityType]string{
	EntityTypeInvoice:       "invoice",
	EntityTypeBill:          "bill",
	EntityTypePayroll:       "payroll",
	EntityTypePurchaseOrder: "purchase order",
	EntityTypeChangeOrder:   "change order",
	EntityTypeSOVLine:       "SOV line",
}

// IsValid checks if the entity type is valid
func (e EntityType) IsValid() bool {
	_, ok := entityLabels[e]
	return ok
}

// String returns the string representation
func (e EntityType) String() string {
	return string(e)
}

// Label is the human readable name used in user-facing messages
func (e EntityType) Label() string {
	if l, ok := entityLabels[e]; ok {
		return l
	}
	return strings.ReplaceAll(string(e), "_", " ")
}

// CounterpartyKind tells which party a document is issued to or received from
type CounterpartyKind string

const (
	CounterpartyNone     CounterpartyKind = ""
	CounterpartyVendor   CounterpartyKind = "vendor"
	CounterpartyCustomer CounterpartyKind = "customer"
)

// CounterpartyKind returns the party kind of documents of this type
func (e EntityType) CounterpartyKind() CounterpartyKind {
	switch e {
	case EntityTypeBill, EntityTypePurchaseOrder:
		return CounterpartyVendor
	case EntityTypeInvoice, EntityTypeChangeOrder, EntityTypeSOVLine:
		return CounterpartyCustomer
	default:
		return CounterpartyNone
	}
}

// FinancialDocument is a dated financial record
type FinancialDocument struct {
	shared.TenantAggregateRoot
	EntityType       EntityType
	Number           string
	TxnDate          periodlock.CalendarDate
	DueDate          *periodlock.CalendarDate
	CounterpartyID   *uuid.UUID
	CounterpartyName string
	ProjectID        *uuid.UUID
	Total            decimal.Decimal
	Memo             string
	UpdatedBy        uuid.UUID
}

// NewFinancialDocument creates a new document
func NewFinancialDocument(
	tenantID, createdBy uuid.UUID,
	entityType EntityType,
	number string,
	txnDate periodlock.CalendarDate,
	total decimal.Decimal,
) (*FinancialDocument, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", "Unsupported document type")
	}
	d := &FinancialDocument{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, createdBy),
		EntityType:          entityType,
		UpdatedBy:           createdBy,
	}
	if err := d.apply(number, txnDate, total); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *FinancialDocument) apply(number string, txnDate periodlock.CalendarDate, total decimal.Decimal) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Document number cannot be empty")
	}
	if len(number) > 50 {
		return shared.NewDomainError("INVALID_NUMBER", "Document number cannot exceed 50 characters")
	}
	if txnDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Transaction date is required")
	}
	if total.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Total cannot be negative")
	}
	d.Number = number
	d.TxnDate = txnDate
	d.Total = total.Round(2)
	return nil
}

// SetCounterparty links the vendor or customer of the document
func (d *FinancialDocument) SetCounterparty(id uuid.UUID, name string) {
	if id == uuid.Nil {
		d.CounterpartyID = nil
		d.CounterpartyName = ""
		return
	}
	d.CounterpartyID = &id
	d.CounterpartyName = strings.TrimSpace(name)
}

// SetDueDate sets the due date; it may not precede the transaction date
func (d *FinancialDocument) SetDueDate(due *periodlock.CalendarDate) error {
	if due != nil && due.IsZero() {
		due = nil
	}
	if due != nil && due.Before(d.TxnDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the transaction date")
	}
	d.DueDate = due
	return nil
}

// Revise changes the dated content of the document
func (d *FinancialDocument) Revise(number string, txnDate periodlock.CalendarDate, total decimal.Decimal, memo string, userID uuid.UUID) error {
	if err := d.apply(number, txnDate, total); err != nil {
		return err
	}
	if d.DueDate != nil && d.DueDate.Before(txnDate) {
		d.DueDate = nil
	}
	d.Memo = strings.TrimSpace(memo)
	d.UpdatedBy = userID
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}
