package models

import (
	"time"

	"github.com/commandx/backend/internal/domain/accounting"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancialDocumentModel is the persistence model for FinancialDocument
type FinancialDocumentModel struct {
	TenantAggregateModel
	EntityType       string          `gorm:"type:varchar(30);not null;index"`
	Number           string          `gorm:"type:varchar(50);not null"`
	TxnDate          time.Time       `gorm:"type:date;not null;index"`
	DueDate          *time.Time      `gorm:"type:date"`
	CounterpartyID   *uuid.UUID      `gorm:"type:uuid"`
	CounterpartyName string          `gorm:"type:varchar(200)"`
	ProjectID        *uuid.UUID      `gorm:"type:uuid;index"`
	Total            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Memo             string          `gorm:"type:text"`
	UpdatedBy        uuid.UUID       `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (FinancialDocumentModel) TableName() string {
	return "financial_documents"
}

// ToDomain converts the row to a FinancialDocument
func (m *FinancialDocumentModel) ToDomain() *accounting.FinancialDocument {
	d := &accounting.FinancialDocument{
		EntityType:       accounting.EntityType(m.EntityType),
		Number:           m.Number,
		TxnDate:          periodlock.DateOf(m.TxnDate),
		DueDate:          optionalDate(m.DueDate),
		CounterpartyID:   m.CounterpartyID,
		CounterpartyName: m.CounterpartyName,
		ProjectID:        m.ProjectID,
		Total:            m.Total,
		Memo:             m.Memo,
		UpdatedBy:        m.UpdatedBy,
	}
	m.PopulateTenantAggregateRoot(&d.TenantAggregateRoot)
	return d
}

// FinancialDocumentModelFromDomain creates a row from a FinancialDocument
func FinancialDocumentModelFromDomain(d *accounting.FinancialDocument) *FinancialDocumentModel {
	m := &FinancialDocumentModel{
		EntityType:       d.EntityType.String(),
		Number:           d.Number,
		TxnDate:          dateColumn(d.TxnDate),
		DueDate:          optionalDateColumn(d.DueDate),
		CounterpartyID:   d.CounterpartyID,
		CounterpartyName: d.CounterpartyName,
		ProjectID:        d.ProjectID,
		Total:            d.Total,
		Memo:             d.Memo,
		UpdatedBy:        d.UpdatedBy,
	}
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	return m
}
