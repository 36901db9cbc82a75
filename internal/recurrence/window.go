package recurrence

import "time"

// CalculateActivationEnd returns the last date GenerateDates would produce for
// the same arguments, without building the series.
func CalculateActivationEnd(start time.Time, rule Rule) time.Time {
	start = DateOf(start)
	unit, interval := rule.step()

	if rule.Type != TypeCustom || rule.EndCondition != EndDate {
		return Step(start, unit, (occurrences(rule)-1)*interval)
	}
	if rule.EndDate == nil {
		return start
	}
	end := dateIn(*rule.EndDate, start.Location())
	if !end.After(start) {
		return start
	}

	k := estimateSteps(start, end, unit) / interval
	for k > 0 && Step(start, unit, k*interval).After(end) {
		k--
	}
	for k < MaxOccurrences-1 && !Step(start, unit, (k+1)*interval).After(end) {
		k++
	}
	if k > MaxOccurrences-1 {
		k = MaxOccurrences - 1
	}
	return Step(start, unit, k*interval)
}

// estimateSteps approximates how many single units fit between start and end.
func estimateSteps(start, end time.Time, unit Unit) int {
	switch unit {
	case UnitWeek:
		return daysBetween(start, end) / 7
	case UnitMonth:
		return monthsBetween(start, end)
	case UnitYear:
		return monthsBetween(start, end) / 12
	default:
		return daysBetween(start, end)
	}
}

// daysBetween counts calendar days, ignoring DST shifts of the location.
func daysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}
