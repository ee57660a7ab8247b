package integration

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentPush is a local financial document ready to be created in QuickBooks
type DocumentPush struct {
	TenantID        uuid.UUID
	EntityType      string
	LocalID         uuid.UUID
	DocNumber       string
	TxnDate         string
	DueDate         string
	CounterpartyRef string
	Total           decimal.Decimal
	Memo            string
	InitiatedBy     uuid.UUID
}

// PushResult identifies the entity QuickBooks created
type PushResult struct {
	QuickBooksID string
	DocNumber    string
}

// QuickBooksGateway is the port to QuickBooks Online
type QuickBooksGateway interface {
	PushDocument(ctx context.Context, doc DocumentPush) (PushResult, error)
}

var syncableEntities = map[string]string{
	"invoice":        "Invoice",
	"bill":           "Bill",
	"purchase_order": "PurchaseOrder",
}

// QuickBooksEntity returns the QuickBooks entity name a local document type
// is pushed as. Types QuickBooks has no counterpart for return false.
func QuickBooksEntity(entityType string) (string, bool) {
	name, ok := syncableEntities[entityType]
	return name, ok
}
