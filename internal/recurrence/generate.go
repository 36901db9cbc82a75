package recurrence

import "time"

// GenerateDates expands start and rule into an ordered series of calendar
// dates. The first element is always start. The result never holds more than
// MaxOccurrences dates.
func GenerateDates(start time.Time, rule Rule) []time.Time {
	start = DateOf(start)
	unit, interval := rule.step()

	switch {
	case rule.Type == TypeCustom && rule.EndCondition == EndDate:
		if rule.EndDate == nil {
			return []time.Time{start}
		}
		end := dateIn(*rule.EndDate, start.Location())
		dates := []time.Time{start}
		for i := 1; i < MaxOccurrences; i++ {
			next := Step(start, unit, i*interval)
			if next.After(end) {
				break
			}
			dates = append(dates, next)
		}
		return dates
	default:
		n := occurrences(rule)
		dates := make([]time.Time, 0, n)
		for i := 0; i < n; i++ {
			dates = append(dates, Step(start, unit, i*interval))
		}
		return dates
	}
}

// occurrences is the length of a count-bounded series.
func occurrences(rule Rule) int {
	switch rule.Type {
	case TypeDaily, TypeWeekly, TypeMonthly:
		return clampCount(rule.Count)
	case TypeCustom:
		if rule.EndCondition == EndCount {
			return clampCount(rule.EndCount)
		}
		return MaxOccurrences
	default:
		return 1
	}
}

// Step returns start moved forward by n units. Month and year steps keep the
// day of month where possible and clamp it to the last day of shorter months.
func Step(start time.Time, unit Unit, n int) time.Time {
	switch unit {
	case UnitWeek:
		return start.AddDate(0, 0, 7*n)
	case UnitMonth:
		return addMonths(start, n)
	case UnitYear:
		return addMonths(start, 12*n)
	default:
		return start.AddDate(0, 0, n)
	}
}

func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	if last := daysInMonth(target.Month(), target.Year()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// DateOf truncates t to midnight of its calendar day in t's location.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// dateIn reads the calendar day of t and places it at midnight in loc.
func dateIn(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// CalendarDay is UTC midnight of t's calendar day, the form activity dates
// are stored in.
func CalendarDay(t time.Time) time.Time {
	return dateIn(t, time.UTC)
}
