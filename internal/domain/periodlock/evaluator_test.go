package periodlock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cutoffSetting(enabled bool, cutoff string) GlobalLockSetting {
	s := GlobalLockSetting{TenantID: uuid.New(), Enabled: enabled}
	if cutoff != "" {
		s.CutoffDate = MustParseDate(cutoff).Ptr()
	}
	return s
}

func period(name, start, end string, locked bool) LockedPeriod {
	return LockedPeriod{
		Name:      name,
		StartDate: MustParseDate(start),
		EndDate:   MustParseDate(end),
		IsLocked:  locked,
	}
}

func TestEvaluate_GlobalCutoff(t *testing.T) {
	settings := cutoffSetting(true, "2025-06-30")

	t.Run("cutoff day itself is locked", func(t *testing.T) {
		r := Evaluate(MustParseDate("2025-06-30"), settings, nil)
		assert.False(t, r.Allowed)
		assert.Equal(t, ReasonGlobalCutoff, r.Reason)
		assert.Equal(t, "2025-06-30", r.BoundaryDate.String())
		assert.Empty(t, r.PeriodName)
	})

	t.Run("earlier dates are locked", func(t *testing.T) {
		r := Evaluate(MustParseDate("2019-01-01"), settings, nil)
		assert.False(t, r.Allowed)
		assert.Equal(t, ReasonGlobalCutoff, r.Reason)
	})

	t.Run("day after cutoff is allowed", func(t *testing.T) {
		r := Evaluate(MustParseDate("2025-07-01"), settings, nil)
		assert.True(t, r.Allowed)
		assert.Equal(t, ReasonNone, r.Reason)
	})

	t.Run("late evening in a western offset still counts as the cutoff day", func(t *testing.T) {
		r := Evaluate(MustParseDate("2025-06-30T23:30:00-07:00"), settings, nil)
		assert.False(t, r.Allowed)
	})

	t.Run("global cutoff wins over a matching period", func(t *testing.T) {
		periods := []LockedPeriod{period("Q2 Close", "2025-04-01", "2025-06-30", true)}
		r := Evaluate(MustParseDate("2025-05-15"), settings, periods)
		assert.Equal(t, ReasonGlobalCutoff, r.Reason)
		assert.Nil(t, r.Period)
	})
}

func TestEvaluate_DisabledNeverBlocksOnCutoff(t *testing.T) {
	dates := []string{"1900-01-01", "2025-06-29", "2025-06-30", "2025-07-01", "2100-12-31"}

	for _, s := range []GlobalLockSetting{
		cutoffSetting(false, "2025-06-30"),
		cutoffSetting(true, ""),
		DisabledSetting(uuid.New()),
	} {
		for _, d := range dates {
			r := Evaluate(MustParseDate(d), s, nil)
			assert.True(t, r.Allowed, "date %s enabled=%v", d, s.Enabled)
		}
	}
}

func TestEvaluate_NamedPeriod(t *testing.T) {
	settings := DisabledSetting(uuid.New())
	periods := []LockedPeriod{period("Q1 Close", "2025-01-01", "2025-03-31", true)}

	for _, d := range []string{"2025-01-01", "2025-02-15", "2025-03-31"} {
		r := Evaluate(MustParseDate(d), settings, periods)
		assert.False(t, r.Allowed, d)
		assert.Equal(t, ReasonAccountingPeriod, r.Reason, d)
		assert.Equal(t, "Q1 Close", r.PeriodName, d)
		assert.Equal(t, "2025-03-31", r.BoundaryDate.String(), d)
		require.NotNil(t, r.Period, d)
		assert.Equal(t, "2025-01-01", r.Period.StartDate.String())
	}

	for _, d := range []string{"2024-12-31", "2025-04-01"} {
		assert.True(t, Evaluate(MustParseDate(d), settings, periods).Allowed, d)
	}
}

func TestEvaluate_UnlockedPeriodIgnored(t *testing.T) {
	periods := []LockedPeriod{period("Q1 Close", "2025-01-01", "2025-03-31", false)}
	r := Evaluate(MustParseDate("2025-02-15"), DisabledSetting(uuid.New()), periods)
	assert.True(t, r.Allowed)
}

func TestEvaluate_OverlapFirstMatchWins(t *testing.T) {
	periods := []LockedPeriod{
		period("Open March", "2025-03-01", "2025-03-31", false),
		period("Q1 Close", "2025-01-01", "2025-03-31", true),
		period("March Close", "2025-03-01", "2025-03-31", true),
	}
	d := MustParseDate("2025-03-15")

	r := Evaluate(d, DisabledSetting(uuid.New()), periods)
	assert.Equal(t, "Q1 Close", r.PeriodName)

	matches := MatchingPeriods(d, periods)
	require.Len(t, matches, 2)
	assert.Equal(t, "Q1 Close", matches[0].Name)
	assert.Equal(t, "March Close", matches[1].Name)
}

func TestEvaluate_Idempotent(t *testing.T) {
	snap := Snapshot{
		Settings: cutoffSetting(true, "2024-12-31"),
		Periods:  []LockedPeriod{period("Q1 Close", "2025-01-01", "2025-03-31", true)},
	}
	d := MustParseDate("2025-02-15")

	first := snap.Evaluate(d)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, snap.Evaluate(d))
	}
	assert.Len(t, snap.LockedPeriods(), 1)
}

func TestGlobalLockSetting(t *testing.T) {
	t.Run("min allowed date is the day after cutoff", func(t *testing.T) {
		s := cutoffSetting(true, "2025-06-30")
		require.NotNil(t, s.MinAllowedDate())
		assert.Equal(t, "2025-07-01", s.MinAllowedDate().String())
		assert.Nil(t, cutoffSetting(false, "2025-06-30").MinAllowedDate())
	})

	t.Run("legacy dates predate the cutover", func(t *testing.T) {
		s := DisabledSetting(uuid.New())
		assert.False(t, s.IsLegacy(MustParseDate("2020-01-01")))

		s.CutoverDate = MustParseDate("2024-01-01").Ptr()
		assert.True(t, s.IsLegacy(MustParseDate("2023-12-31")))
		assert.False(t, s.IsLegacy(MustParseDate("2024-01-01")))
	})

	t.Run("enabling requires a cutoff", func(t *testing.T) {
		s := DisabledSetting(uuid.New())
		err := s.Update(true, nil, nil, uuid.New())
		assert.ErrorIs(t, err, ErrCutoffRequired)
		assert.False(t, s.Enabled)

		cutoff := MustParseDate("2025-03-31")
		require.NoError(t, s.Update(true, &cutoff, nil, uuid.New()))
		assert.True(t, s.Enabled)
		assert.Equal(t, "2025-03-31", s.CutoffDate.String())
	})
}
