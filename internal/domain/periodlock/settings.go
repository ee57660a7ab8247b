package periodlock

import (
	"time"

	"github.com/google/uuid"
)

// GlobalLockSetting is the tenant-wide lock configuration. A tenant without a
// stored setting behaves as DisabledSetting.
type GlobalLockSetting struct {
	TenantID uuid.UUID
	Enabled  bool
	// CutoffDate is inclusive: every date on or before it is locked.
	CutoffDate *CalendarDate
	// CutoverDate marks the start of QuickBooks-backed accounting. Records
	// dated before it are legacy. It does not lock anything.
	CutoverDate *CalendarDate
	UpdatedBy   uuid.UUID
	UpdatedAt   time.Time
}

// DisabledSetting returns the setting of a tenant that never configured a lock
func DisabledSetting(tenantID uuid.UUID) GlobalLockSetting {
	return GlobalLockSetting{TenantID: tenantID}
}

// ActiveCutoff returns the cutoff when the global lock is enabled and has a date.
func (s GlobalLockSetting) ActiveCutoff() (CalendarDate, bool) {
	if !s.Enabled || s.CutoffDate == nil || s.CutoffDate.IsZero() {
		return CalendarDate{}, false
	}
	return *s.CutoffDate, true
}

// MinAllowedDate is the first day after the active cutoff, or nil when no
// global lock applies.
func (s GlobalLockSetting) MinAllowedDate() *CalendarDate {
	cutoff, ok := s.ActiveCutoff()
	if !ok {
		return nil
	}
	return cutoff.AddDays(1).Ptr()
}

// IsLegacy reports whether d predates the accounting cutover
func (s GlobalLockSetting) IsLegacy(d CalendarDate) bool {
	if s.CutoverDate == nil || s.CutoverDate.IsZero() || d.IsZero() {
		return false
	}
	return d.Before(*s.CutoverDate)
}

// Update replaces the configuration. Enabling requires a cutoff.
func (s *GlobalLockSetting) Update(enabled bool, cutoff, cutover *CalendarDate, updatedBy uuid.UUID) error {
	if cutoff != nil && cutoff.IsZero() {
		cutoff = nil
	}
	if cutover != nil && cutover.IsZero() {
		cutover = nil
	}
	if enabled && cutoff == nil {
		return ErrCutoffRequired
	}
	s.Enabled = enabled
	s.CutoffDate = cutoff
	s.CutoverDate = cutover
	s.UpdatedBy = updatedBy
	s.UpdatedAt = time.Now()
	return nil
}
