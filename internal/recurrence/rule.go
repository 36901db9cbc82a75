package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxOccurrences bounds every generated series. Rules asking for more are
// clamped to this many dates.
const MaxOccurrences = 365

// Type selects how a rule repeats.
type Type string

const (
	TypeNone    Type = "none"
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeCustom  Type = "custom"
)

// Unit is the step unit of a custom rule.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// EndCondition decides when a custom rule stops.
type EndCondition string

const (
	EndNever EndCondition = "never"
	EndDate  EndCondition = "date"
	EndCount EndCondition = "count"
)

var (
	ErrInvalidRule    = errors.New("invalid recurrence rule")
	ErrEndBeforeStart = errors.New("recurrence end date is before start date")
)

// Rule describes how a single activity repeats. Count governs the simple
// types (daily, weekly, monthly); the Custom* fields and the end condition
// govern TypeCustom.
type Rule struct {
	Type           Type         `json:"type"`
	Count          int          `json:"count,omitempty"`
	CustomInterval int          `json:"customInterval,omitempty"`
	CustomUnit     Unit         `json:"customUnit,omitempty"`
	EndCondition   EndCondition `json:"endCondition,omitempty"`
	EndDate        *time.Time   `json:"endDate,omitempty"`
	EndCount       int          `json:"endCount,omitempty"`
}

// Once is the rule of a one-off activity.
func Once() Rule {
	return Rule{Type: TypeNone}
}

// IsRecurring reports whether the rule can produce more than one date.
func (r Rule) IsRecurring() bool {
	switch r.Type {
	case TypeDaily, TypeWeekly, TypeMonthly, TypeCustom:
		return true
	default:
		return false
	}
}

// Normalize clamps counts and intervals into [1, MaxOccurrences] and fills
// defaults for an incomplete custom rule.
func (r Rule) Normalize() Rule {
	if r.Type == "" {
		r.Type = TypeNone
	}
	r.Count = clampCount(r.Count)
	if r.Type != TypeCustom {
		return r
	}
	if r.CustomInterval < 1 {
		r.CustomInterval = 1
	}
	if r.CustomUnit == "" {
		r.CustomUnit = UnitDay
	}
	if r.EndCondition == "" {
		r.EndCondition = EndNever
	}
	r.EndCount = clampCount(r.EndCount)
	return r
}

// Validate rejects rules that cannot be materialized as the user meant them.
func (r Rule) Validate(start time.Time) error {
	switch r.Type {
	case TypeNone, TypeDaily, TypeWeekly, TypeMonthly:
		return nil
	case TypeCustom:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRule, r.Type)
	}

	if _, err := ParseUnit(string(r.CustomUnit)); err != nil {
		return err
	}
	switch r.EndCondition {
	case EndNever, EndCount:
		return nil
	case EndDate:
		if r.EndDate == nil {
			return fmt.Errorf("%w: end date is required", ErrInvalidRule)
		}
		if dateIn(*r.EndDate, start.Location()).Before(DateOf(start)) {
			return ErrEndBeforeStart
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown end condition %q", ErrInvalidRule, r.EndCondition)
	}
}

// step returns the unit and interval between consecutive dates.
func (r Rule) step() (Unit, int) {
	switch r.Type {
	case TypeDaily:
		return UnitDay, 1
	case TypeWeekly:
		return UnitWeek, 1
	case TypeMonthly:
		return UnitMonth, 1
	case TypeCustom:
		interval := r.CustomInterval
		if interval < 1 {
			interval = 1
		}
		unit := r.CustomUnit
		if unit == "" {
			unit = UnitDay
		}
		return unit, interval
	default:
		return UnitDay, 1
	}
}

func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TypeNone, nil
	case TypeNone, TypeDaily, TypeWeekly, TypeMonthly, TypeCustom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidRule, raw)
	}
}

func ParseUnit(raw string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(raw))); u {
	case "":
		return UnitDay, nil
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return u, nil
	default:
		return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidRule, raw)
	}
}

func ParseEndCondition(raw string) (EndCondition, error) {
	switch c := EndCondition(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return EndNever, nil
	case EndNever, EndDate, EndCount:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown end condition %q", ErrInvalidRule, raw)
	}
}

func clampCount(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxOccurrences:
		return MaxOccurrences
	default:
		return n
	}
}
