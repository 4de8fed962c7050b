package services

import (
	"time"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

// standardMonths is the coverage length of the base warranty.
const standardMonths = 12

// PeriodFor derives the coverage window for a tier from the purchase date.
// Only the base tier has a defined period today; the paid tiers return
// ErrPeriodNotDefined and their guarantees carry no dates.
func PeriodFor(tier domain.Tier, purchase time.Time) (start, end time.Time, err error) {
	if tier != domain.TierStandard {
		return time.Time{}, time.Time{}, ErrPeriodNotDefined
	}
	start = time.Date(purchase.Year(), purchase.Month(), purchase.Day(), 0, 0, 0, 0, time.UTC)
	return start, addMonthsClamped(start, standardMonths), nil
}

// addMonthsClamped adds calendar months, clamping the day to the last day of
// the target month instead of letting it normalize into the next one
// (31 Jan + 1 month = 28/29 Feb, not 2/3 Mar).
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	target := first.AddDate(0, months, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, t.Location())
}
