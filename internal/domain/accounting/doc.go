// Package accounting contains the financially dated records of a
// construction business: invoices, bills, payroll runs, purchase orders,
// change orders and schedule-of-values lines.
//
// Every create or update of a FinancialDocument must pass the period lock
// gate before it is persisted.
package accounting
