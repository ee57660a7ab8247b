package periodlock

// Reason tells why a date was blocked
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonGlobalCutoff     Reason = "global_cutoff"
	ReasonAccountingPeriod Reason = "accounting_period"
	ReasonStoreUnreachable Reason = "store_unreachable"
	ReasonInvalidRequest   Reason = "invalid_request"
)

// Result is the verdict for a single date
type Result struct {
	Allowed bool
	Reason  Reason
	// PeriodName is set for ReasonAccountingPeriod
	PeriodName string
	// BoundaryDate is the cutoff for ReasonGlobalCutoff and the period end
	// for ReasonAccountingPeriod.
	BoundaryDate CalendarDate
	// Period is the matching period for ReasonAccountingPeriod
	Period *LockedPeriod
}

// Allow is the verdict for an unlocked date
func Allow() Result {
	return Result{Allowed: true}
}

// Evaluate decides whether date is locked. The global cutoff is checked
// first; otherwise the first locked period containing the date wins. The
// decision depends only on its arguments.
func Evaluate(date CalendarDate, settings GlobalLockSetting, periods []LockedPeriod) Result {
	if cutoff, ok := settings.ActiveCutoff(); ok && !date.After(cutoff) {
		return Result{
			Reason:       ReasonGlobalCutoff,
			BoundaryDate: cutoff,
		}
	}

	for i := range periods {
		if periods[i].Locks(date) {
			p := periods[i]
			return Result{
				Reason:       ReasonAccountingPeriod,
				PeriodName:   p.Name,
				BoundaryDate: p.EndDate,
				Period:       &p,
			}
		}
	}

	return Allow()
}

// MatchingPeriods returns every locked period containing date, in input order
func MatchingPeriods(date CalendarDate, periods []LockedPeriod) []LockedPeriod {
	var out []LockedPeriod
	for _, p := range periods {
		if p.Locks(date) {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot is the lock configuration of one tenant at a point in time
type Snapshot struct {
	Settings GlobalLockSetting
	Periods  []LockedPeriod
}

// Evaluate applies Evaluate to the snapshot
func (s Snapshot) Evaluate(date CalendarDate) Result {
	return Evaluate(date, s.Settings, s.Periods)
}

// LockedPeriods returns the periods currently locked
func (s Snapshot) LockedPeriods() []LockedPeriod {
	out := make([]LockedPeriod, 0, len(s.Periods))
	for _, p := range s.Periods {
		if p.IsLocked {
			out = append(out, p)
		}
	}
	return out
}
