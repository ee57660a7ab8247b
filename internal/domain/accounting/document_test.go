package accounting

import (
	"testing"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFinancialDocument(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()
	txnDate := periodlock.MustParseDate("2025-07-15")

	t.Run("successful creation", func(t *testing.T) {
		doc, err := NewFinancialDocument(tenantID, userID, EntityTypeInvoice, " INV-1001 ", txnDate, decimal.RequireFromString("1250.505"))
		require.NoError(t, err)
		assert.Equal(t, "INV-1001", doc.Number)
		assert.Equal(t, 1, doc.Version)
		assert.Equal(t, userID, doc.CreatedBy)
		assert.True(t, doc.Total.Equal(decimal.RequireFromString("1250.51")))
	})

	t.Run("unknown entity type", func(t *testing.T) {
		_, err := NewFinancialDocument(tenantID, userID, EntityType("receipt"), "R-1", txnDate, decimal.Zero)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unsupported document type")
	})

	t.Run("empty number", func(t *testing.T) {
		_, err := NewFinancialDocument(tenantID, userID, EntityTypeBill, "", txnDate, decimal.Zero)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Document number cannot be empty")
	})

	t.Run("missing date", func(t *testing.T) {
		_, err := NewFinancialDocument(tenantID, userID, EntityTypeBill, "B-1", periodlock.CalendarDate{}, decimal.Zero)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Transaction date is required")
	})

	t.Run("negative total", func(t *testing.T) {
		_, err := NewFinancialDocument(tenantID, userID, EntityTypeBill, "B-1", txnDate, decimal.NewFromInt(-5))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Total cannot be negative")
	})
}

func TestFinancialDocument_Revise(t *testing.T) {
	doc, err := NewFinancialDocument(uuid.New(), uuid.New(), EntityTypePurchaseOrder, "PO-7", periodlock.MustParseDate("2025-07-01"), decimal.NewFromInt(100))
	require.NoError(t, err)

	due := periodlock.MustParseDate("2025-07-31")
	require.NoError(t, doc.SetDueDate(&due))

	early := periodlock.MustParseDate("2025-06-30")
	assert.Error(t, doc.SetDueDate(&early))

	editor := uuid.New()
	require.NoError(t, doc.Revise("PO-7", periodlock.MustParseDate("2025-08-05"), decimal.NewFromInt(150), " rush ", editor))
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, editor, doc.UpdatedBy)
	assert.Equal(t, "rush", doc.Memo)
	assert.Nil(t, doc.DueDate, "due date earlier than the new transaction date is cleared")
}

func TestEntityType(t *testing.T) {
	assert.Equal(t, "purchase order", EntityTypePurchaseOrder.Label())
	assert.Equal(t, "SOV line", EntityTypeSOVLine.Label())
	assert.Equal(t, CounterpartyVendor, EntityTypeBill.CounterpartyKind())
	assert.Equal(t, CounterpartyCustomer, EntityTypeInvoice.CounterpartyKind())
	assert.Equal(t, CounterpartyNone, EntityTypePayroll.CounterpartyKind())
	assert.False(t, EntityType("").IsValid())
}
