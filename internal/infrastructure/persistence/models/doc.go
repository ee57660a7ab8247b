// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel, TenantAggregateModel and date column helpers
//   - period_lock.go: company_settings, accounting_periods, locked_period_violations
//   - document.go: financial_documents
//   - quickbooks.go: quickbooks_mappings, quickbooks_sync_log, quickbooks_api_log
package models
