package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// RRule renders the rule as an RFC 5545 recurrence rule anchored at start.
// The MaxOccurrences ceiling is carried as COUNT for open-ended rules; month
// end clamping has no RFC equivalent, so RFC consumers skip short months
// where GenerateDates clamps.
func (r Rule) RRule(start time.Time) (*rrule.RRule, error) {
	r = r.Normalize()
	start = DateOf(start)
	unit, interval := r.step()

	opt := rrule.ROption{
		Dtstart:  start,
		Interval: interval,
	}
	switch unit {
	case UnitWeek:
		opt.Freq = rrule.WEEKLY
	case UnitMonth:
		opt.Freq = rrule.MONTHLY
	case UnitYear:
		opt.Freq = rrule.YEARLY
	default:
		opt.Freq = rrule.DAILY
	}

	switch {
	case r.Type == TypeCustom && r.EndCondition == EndDate && r.EndDate != nil:
		opt.Until = dateIn(*r.EndDate, start.Location())
	default:
		opt.Count = occurrences(r)
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rule, nil
}

// RRuleString is RRule without the DTSTART line, e.g. "FREQ=WEEKLY;INTERVAL=2;COUNT=4".
func (r Rule) RRuleString(start time.Time) (string, error) {
	rule, err := r.RRule(start)
	if err != nil {
		return "", err
	}
	return rule.OrigOptions.RRuleString(), nil
}
