package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, tod)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("abc")
	assert.Error(t, err)

	tod, err = ParseTimeOfDay("")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{}, tod)
}

func TestValidateRejectsMisconfiguration(t *testing.T) {
	assert.Error(t, Spec{Frequency: FrequencyEveryDays, IntervalDays: 0}.Validate())
	assert.Error(t, Spec{Frequency: FrequencyEveryDays, IntervalDays: -3}.Validate())
	assert.Error(t, Spec{Frequency: FrequencyWeekly}.Validate())
	assert.Error(t, Spec{Frequency: "anual"}.Validate())

	assert.NoError(t, Spec{Frequency: FrequencyEveryDays, IntervalDays: 3}.Validate())
	assert.NoError(t, Spec{Frequency: FrequencyWeekly, Weekdays: []time.Weekday{time.Monday}}.Validate())
	assert.NoError(t, Spec{Frequency: FrequencyOnce}.Validate())
}

func TestOnceWithTargetDateAppliesLeadDays(t *testing.T) {
	spec := Spec{
		Frequency:   FrequencyOnce,
		LeadDays:    7,
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.March, 1, 10, 0),
	}
	target := date(2026, time.March, 15, 0, 0)

	got := NextFireAt(spec, &target, nil, date(2026, time.March, 8, 9, 1))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 8, 9, 0), *got)

	// already fired: never again
	fired := date(2026, time.March, 8, 9, 0)
	assert.Nil(t, NextFireAt(spec, &target, &fired, date(2026, time.March, 9, 9, 1)))
}

func TestOnceWithoutTargetFiresAtActivation(t *testing.T) {
	spec := Spec{Frequency: FrequencyOnce, ActivatedAt: date(2026, time.March, 1, 10, 0)}

	got := NextFireAt(spec, nil, nil, date(2026, time.March, 1, 10, 5))
	require.NotNil(t, got)
	assert.Equal(t, spec.ActivatedAt, *got)
}

func TestDailyFiresOncePerDay(t *testing.T) {
	spec := Spec{
		Frequency:   FrequencyDaily,
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.March, 1, 8, 0),
	}

	// never fired, past today's slot: due at today's slot
	got := NextFireAt(spec, nil, nil, date(2026, time.March, 2, 9, 1))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 2, 9, 0), *got)

	// fired at today's slot: next is tomorrow
	fired := *got
	got = NextFireAt(spec, nil, &fired, date(2026, time.March, 2, 9, 5))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 3, 9, 0), *got)
}

func TestDailyDoesNotClaimSlotsBeforeActivation(t *testing.T) {
	spec := Spec{
		Frequency:   FrequencyDaily,
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.March, 2, 10, 0), // activated after today's slot
	}

	got := NextFireAt(spec, nil, nil, date(2026, time.March, 2, 10, 5))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 3, 9, 0), *got, "should wait for tomorrow, not fire yesterday's slot")
}

func TestDailyMissedSlotsOnlyMostRecentFires(t *testing.T) {
	spec := Spec{
		Frequency:   FrequencyDaily,
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.March, 1, 8, 0),
	}
	// process was down for three days after firing on the 2nd
	fired := date(2026, time.March, 2, 9, 0)

	got := NextFireAt(spec, nil, &fired, date(2026, time.March, 5, 12, 0))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 5, 9, 0), *got, "only the most recent missed slot fires, no backlog")
}

func TestWeeklyRespectsWeekdaySet(t *testing.T) {
	// 2026-03-02 is a Monday
	spec := Spec{
		Frequency:   FrequencyWeekly,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.March, 1, 8, 0),
	}

	// Tuesday 09:01: not in set, next due instant is Wednesday 09:00
	got := NextFireAt(spec, nil, nil, date(2026, time.March, 3, 9, 1))
	require.NotNil(t, got)
	assert.True(t, got.After(date(2026, time.March, 3, 9, 1)), "Tuesday must not be due")
	assert.Equal(t, date(2026, time.March, 4, 9, 0), *got)

	// Wednesday 09:01, never fired: Wednesday's slot is due
	got = NextFireAt(spec, nil, nil, date(2026, time.March, 4, 9, 1))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 4, 9, 0), *got)
}

func TestWeeklyEmptySetNeverFires(t *testing.T) {
	spec := Spec{Frequency: FrequencyWeekly, SendAt: TimeOfDay{Hour: 9}, ActivatedAt: date(2026, time.March, 1, 8, 0)}
	assert.Nil(t, NextFireAt(spec, nil, nil, date(2026, time.March, 4, 9, 1)))
}

func TestMonthlyClampsShortMonths(t *testing.T) {
	// activated on the 31st: February fires on the 28th
	spec := Spec{
		Frequency:   FrequencyMonthly,
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.January, 31, 9, 0),
	}
	fired := date(2026, time.January, 31, 9, 0)

	got := NextFireAt(spec, nil, &fired, date(2026, time.February, 28, 9, 30))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.February, 28, 9, 0), *got)

	// after February fires, March goes back to the 31st
	febFired := *got
	got = NextFireAt(spec, nil, &febFired, date(2026, time.March, 31, 10, 0))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 31, 9, 0), *got)
}

func TestEveryNDaysSpacing(t *testing.T) {
	spec := Spec{
		Frequency:    FrequencyEveryDays,
		IntervalDays: 3,
		SendAt:       TimeOfDay{Hour: 9},
		ActivatedAt:  date(2026, time.March, 1, 8, 0),
	}

	// never fired: first slot on the activation day
	got := NextFireAt(spec, nil, nil, date(2026, time.March, 1, 9, 30))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 1, 9, 0), *got)

	// consecutive firings always >= 3 days apart
	fired := *got
	got = NextFireAt(spec, nil, &fired, date(2026, time.March, 2, 9, 30))
	require.NotNil(t, got)
	assert.True(t, got.After(date(2026, time.March, 2, 9, 30)), "not due one day later")
	assert.Equal(t, date(2026, time.March, 4, 9, 0), *got)

	got = NextFireAt(spec, nil, &fired, date(2026, time.March, 4, 9, 30))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 4, 9, 0), *got)
	assert.True(t, got.Sub(fired) >= 3*24*time.Hour)
}

func TestEveryNDaysMissedSlotsCollapse(t *testing.T) {
	spec := Spec{
		Frequency:    FrequencyEveryDays,
		IntervalDays: 2,
		SendAt:       TimeOfDay{Hour: 9},
		ActivatedAt:  date(2026, time.March, 1, 8, 0),
	}
	fired := date(2026, time.March, 1, 9, 0)

	// four slots missed (3rd, 5th, 7th, 9th): only the 9th fires
	got := NextFireAt(spec, nil, &fired, date(2026, time.March, 9, 12, 0))
	require.NotNil(t, got)
	assert.Equal(t, date(2026, time.March, 9, 9, 0), *got)
}

func TestEveryNDaysInvalidInterval(t *testing.T) {
	spec := Spec{Frequency: FrequencyEveryDays, IntervalDays: 0, ActivatedAt: date(2026, time.March, 1, 8, 0)}
	assert.Nil(t, NextFireAt(spec, nil, nil, date(2026, time.March, 2, 9, 0)))
}

func TestNextFireAtIsPure(t *testing.T) {
	spec := Spec{
		Frequency:   FrequencyDaily,
		SendAt:      TimeOfDay{Hour: 9},
		ActivatedAt: date(2026, time.March, 1, 8, 0),
	}
	now := date(2026, time.March, 2, 9, 1)
	fired := date(2026, time.March, 1, 9, 0)

	first := NextFireAt(spec, nil, &fired, now)
	for i := 0; i < 5; i++ {
		again := NextFireAt(spec, nil, &fired, now)
		require.NotNil(t, again)
		assert.Equal(t, *first, *again)
	}
}

func TestPeriodKeyBuckets(t *testing.T) {
	at := date(2026, time.March, 4, 9, 0)

	assert.Equal(t, "2026-03-04", PeriodKey(Spec{Frequency: FrequencyDaily}, at))
	assert.Equal(t, "2026-W10-3", PeriodKey(Spec{Frequency: FrequencyWeekly}, at))
	assert.Equal(t, "2026-03", PeriodKey(Spec{Frequency: FrequencyMonthly}, at))
	assert.Equal(t, "unica", PeriodKey(Spec{Frequency: FrequencyOnce}, at))

	// a multi-weekday type keys each configured day separately, and Sunday
	// maps to 7 so it never shares a bucket with Monday's 1
	monday := date(2026, time.March, 2, 9, 0)
	sunday := date(2026, time.March, 8, 9, 0)
	assert.Equal(t, "2026-W10-1", PeriodKey(Spec{Frequency: FrequencyWeekly}, monday))
	assert.Equal(t, "2026-W10-7", PeriodKey(Spec{Frequency: FrequencyWeekly}, sunday))

	cxd := Spec{Frequency: FrequencyEveryDays, IntervalDays: 3, ActivatedAt: date(2026, time.March, 1, 8, 0)}
	assert.Equal(t, "cxd-1", PeriodKey(cxd, at))
	assert.Equal(t, "cxd-0", PeriodKey(cxd, date(2026, time.March, 2, 9, 0)))

	// same slot, same key, regardless of when inside the period it is asked
	assert.Equal(t,
		PeriodKey(Spec{Frequency: FrequencyDaily}, date(2026, time.March, 4, 0, 1)),
		PeriodKey(Spec{Frequency: FrequencyDaily}, date(2026, time.March, 4, 23, 59)),
	)
}
