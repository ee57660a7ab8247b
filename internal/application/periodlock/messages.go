package periodlock

import (
	"fmt"

	"github.com/commandx/backend/internal/domain/periodlock"
)

const (
	// MsgCannotVerify is returned when the lock configuration cannot be read
	MsgCannotVerify = "Cannot verify accounting period status. Transaction blocked for safety. Please contact an administrator."
	// MsgUnexpected is returned when the check itself fails unexpectedly
	MsgUnexpected = "Cannot verify accounting period status due to an unexpected error. Transaction blocked for safety."
)

func globalLockedMessage(date, cutoff periodlock.CalendarDate) string {
	return fmt.Sprintf("Transaction date %s is in a locked accounting period (locked through %s). This change will not be synced.",
		date, cutoff)
}

func periodLockedMessage(date periodlock.CalendarDate, p *periodlock.LockedPeriod) string {
	return fmt.Sprintf("Transaction date %s falls within locked accounting period \"%s\" (%s to %s). This change will not be synced.",
		date, p.Name, p.StartDate, p.EndDate)
}

func advisoryMessage(entityLabel string, date periodlock.CalendarDate, r periodlock.Result) string {
	if r.Reason == periodlock.ReasonGlobalCutoff {
		return fmt.Sprintf("Cannot create/edit %s dated %s. Accounting period is locked through %s.",
			entityLabel, date, r.BoundaryDate)
	}
	return fmt.Sprintf("Cannot create/edit %s dated %s. Accounting period \"%s\" is locked.",
		entityLabel, date, r.PeriodName)
}
