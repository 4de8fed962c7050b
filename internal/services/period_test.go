package services

import (
	"errors"
	"testing"
	"time"

	"github.com/warrantyhub/warranty-bot/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodFor_Standard(t *testing.T) {
	cases := []struct {
		purchase time.Time
		wantEnd  time.Time
	}{
		{date(2024, 3, 10), date(2025, 3, 10)},
		// End-of-month clamping.
		{date(2024, 2, 29), date(2025, 2, 28)},
		{date(2023, 2, 28), date(2024, 2, 28)},
		{date(2024, 8, 31), date(2025, 8, 31)},
		// Year rollover.
		{date(2024, 12, 31), date(2025, 12, 31)},
	}
	for _, tc := range cases {
		start, end, err := PeriodFor(domain.TierStandard, tc.purchase)
		if err != nil {
			t.Errorf("PeriodFor(%v): %v", tc.purchase, err)
			continue
		}
		if !start.Equal(tc.purchase) {
			t.Errorf("start for %v = %v, want purchase date", tc.purchase, start)
		}
		if !end.Equal(tc.wantEnd) {
			t.Errorf("end for %v = %v, want %v", tc.purchase, end, tc.wantEnd)
		}
	}
}

func TestPeriodFor_PaidTiersUndefined(t *testing.T) {
	for _, tier := range []domain.Tier{domain.TierComfort, domain.TierPremium} {
		if _, _, err := PeriodFor(tier, date(2024, 1, 1)); !errors.Is(err, ErrPeriodNotDefined) {
			t.Errorf("PeriodFor(%s) = %v, want ErrPeriodNotDefined", tier, err)
		}
	}
}

func TestAddMonthsClamped(t *testing.T) {
	// 31 Jan + 1 month must clamp into February, not normalize into March.
	got := addMonthsClamped(date(2024, 1, 31), 1)
	if !got.Equal(date(2024, 2, 29)) {
		t.Fatalf("leap year clamp = %v", got)
	}
	got = addMonthsClamped(date(2023, 1, 31), 1)
	if !got.Equal(date(2023, 2, 28)) {
		t.Fatalf("non-leap clamp = %v", got)
	}
}
