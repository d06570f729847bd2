package recurrence

import (
	"fmt"
	"time"
)

// NextFireAt computes the instant at which the next alert for this spec
// becomes due. It is a pure function of its arguments: no state is read
// or mutated, so repeated calls always return the same instant.
//
// targetDate is the entity's reference date (e.g. a vaccine due date),
// only meaningful for unica. lastFiredAt is the last firing recorded for
// the same (type, entity) pair, nil if it never fired.
//
// Returns nil when the spec can never fire again (unica already fired,
// semanal with empty weekday set, cada_x_dias with interval <= 0).
// When several slots were missed, only the single most recent missed
// slot is returned so a restart never floods the inbox.
func NextFireAt(spec Spec, targetDate, lastFiredAt *time.Time, now time.Time) *time.Time {
	switch spec.Frequency {
	case FrequencyOnce:
		return nextOnce(spec, targetDate, lastFiredAt)
	case FrequencyDaily:
		return nextPeriodic(spec, lastFiredAt, now, everyDay)
	case FrequencyWeekly:
		if len(spec.Weekdays) == 0 {
			return nil
		}
		return nextPeriodic(spec, lastFiredAt, now, spec.firesOn)
	case FrequencyMonthly:
		return nextMonthly(spec, lastFiredAt, now)
	case FrequencyEveryDays:
		return nextEveryDays(spec, lastFiredAt, now)
	}
	return nil
}

// PeriodKey derives the deterministic firing-period bucket used as part
// of the dedup key, so a re-evaluated tick inside the same period can
// never create a second instance.
func PeriodKey(spec Spec, firingAt time.Time) string {
	switch spec.Frequency {
	case FrequencyDaily:
		return firingAt.Format("2006-01-02")
	case FrequencyWeekly:
		// each configured weekday is its own firing period; keying by the
		// ISO week alone would collapse a Mon+Wed type into one firing
		year, week := firingAt.ISOWeek()
		return fmt.Sprintf("%d-W%02d-%d", year, week, isoWeekday(firingAt))
	case FrequencyMonthly:
		return firingAt.Format("2006-01")
	case FrequencyEveryDays:
		if spec.IntervalDays <= 0 {
			return "cxd-0"
		}
		days := int(startOfDay(firingAt).Sub(startOfDay(spec.ActivatedAt)).Hours() / 24)
		if days < 0 {
			days = 0
		}
		return fmt.Sprintf("cxd-%d", days/spec.IntervalDays)
	}
	return string(FrequencyOnce)
}

func nextOnce(spec Spec, targetDate, lastFiredAt *time.Time) *time.Time {
	if lastFiredAt != nil {
		return nil
	}
	if targetDate != nil {
		at := spec.SendAt.on(targetDate.AddDate(0, 0, -spec.LeadDays))
		return &at
	}
	// no reference date: due immediately upon activation
	at := spec.ActivatedAt
	return &at
}

// slotDue reports whether a slot on the recurrence grid is still owed:
// strictly after the last firing, or not before activation when the type
// never fired, so a freshly activated type does not claim slots from
// before it existed.
func slotDue(spec Spec, lastFiredAt *time.Time, slot time.Time) bool {
	if lastFiredAt != nil {
		return slot.After(*lastFiredAt)
	}
	return !slot.Before(spec.ActivatedAt)
}

// nextPeriodic handles the daily grid, optionally restricted to a weekday
// set. eligible reports whether the grid includes a given weekday.
// Catch-up after downtime only applies to types that fired before; a type
// that never fired claims today's slot at most, never a previous day's.
func nextPeriodic(spec Spec, lastFiredAt *time.Time, now time.Time, eligible func(time.Weekday) bool) *time.Time {
	maxBack := 8
	if lastFiredAt == nil {
		maxBack = 1
	}

	// most recent eligible slot at or before now
	for back := 0; back < maxBack; back++ {
		day := now.AddDate(0, 0, -back)
		slot := spec.SendAt.on(day)
		if slot.After(now) || !eligible(slot.Weekday()) {
			continue
		}
		if slotDue(spec, lastFiredAt, slot) {
			return &slot
		}
		break // already fired for this slot
	}

	// first eligible slot in the future
	for ahead := 0; ahead < 8; ahead++ {
		day := now.AddDate(0, 0, ahead)
		slot := spec.SendAt.on(day)
		if !slot.After(now) || !eligible(slot.Weekday()) {
			continue
		}
		return &slot
	}
	return nil
}

func nextMonthly(spec Spec, lastFiredAt *time.Time, now time.Time) *time.Time {
	anchorDay := spec.ActivatedAt.Day()

	// time.Date normalizes month overflow, so year/month+offset is safe
	// where AddDate on a day-31 value would skip February.
	slotIn := func(year int, month time.Month) time.Time {
		day := anchorDay
		if last := daysInMonth(year, month); day > last {
			day = last // clamp for shorter months
		}
		return time.Date(year, month, day, spec.SendAt.Hour, spec.SendAt.Minute, 0, 0, now.Location())
	}

	recent := slotIn(now.Year(), now.Month())
	if recent.After(now) {
		if lastFiredAt == nil {
			// never fired: wait for this month's slot, no previous-month catch-up
			return &recent
		}
		prev := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		recent = slotIn(prev.Year(), prev.Month())
	}
	if slotDue(spec, lastFiredAt, recent) {
		return &recent
	}

	nextMonth := time.Date(recent.Year(), recent.Month()+1, 1, 0, 0, 0, 0, now.Location())
	next := slotIn(nextMonth.Year(), nextMonth.Month())
	for !next.After(now) {
		nextMonth = time.Date(next.Year(), next.Month()+1, 1, 0, 0, 0, 0, now.Location())
		next = slotIn(nextMonth.Year(), nextMonth.Month())
	}
	return &next
}

func nextEveryDays(spec Spec, lastFiredAt *time.Time, now time.Time) *time.Time {
	n := spec.IntervalDays
	if n <= 0 {
		return nil
	}

	anchor := spec.ActivatedAt
	firstOffset := 0
	if lastFiredAt != nil {
		anchor = *lastFiredAt
		firstOffset = n // never closer than N days after the last firing
	}

	// most recent due slot on the N-day grid at or before now
	var recent *time.Time
	for k := firstOffset; ; k += n {
		slot := spec.SendAt.on(anchor.AddDate(0, 0, k))
		if slot.After(now) {
			if recent == nil {
				return &slot // nothing due yet, report the upcoming slot
			}
			break
		}
		if slotDue(spec, lastFiredAt, slot) {
			recent = &slot
		}
	}
	return recent
}

func everyDay(time.Weekday) bool { return true }

// isoWeekday numbers Monday 1 through Sunday 7, matching ISO 8601.
func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func (t TimeOfDay) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
