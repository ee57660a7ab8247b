// Package periodlock contains the Period Lock bounded context.
// It decides whether a financially dated record may be created, edited or
// synced given the tenant's lock configuration.
//
// Key concepts:
//   - GlobalLockSetting: per-tenant cutoff; every date on or before it is locked
//   - LockedPeriod: a named, inclusive date range that can be locked and unlocked
//   - Evaluate: pure decision over a (date, settings, periods) triple
//   - Violation: append-only record of a blocked attempt
//
// Dates are calendar days (CalendarDate), never instants. Nothing in this
// package reads the wall clock when deciding a verdict.
package periodlock
