package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DayPart is a named segment of the day used to pick a default start time.
type DayPart string

const (
	EarlyMorning DayPart = "early_morning"
	Morning      DayPart = "morning"
	Afternoon    DayPart = "afternoon"
	Evening      DayPart = "evening"
	Night        DayPart = "night"
)

// DayParts lists every day part in chronological order.
var DayParts = []DayPart{EarlyMorning, Morning, Afternoon, Evening, Night}

var ErrUnknownDayPart = errors.New("unknown day part")

func ParseDayPart(raw string) (DayPart, error) {
	p := DayPart(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range DayParts {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDayPart, raw)
}

// Label is the human-readable name shown in chat keyboards.
func (p DayPart) Label() string {
	switch p {
	case EarlyMorning:
		return "🌅 Early morning"
	case Morning:
		return "☀️ Morning"
	case Afternoon:
		return "🌤 Afternoon"
	case Evening:
		return "🌇 Evening"
	case Night:
		return "🌙 Night"
	default:
		return string(p)
	}
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay accepts HH:MM.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// DayPartTimes maps every day part to its start time. Values built with
// DefaultDayPartTimes or ParseDayPartTimes are complete.
type DayPartTimes map[DayPart]TimeOfDay

func DefaultDayPartTimes() DayPartTimes {
	return DayPartTimes{
		EarlyMorning: {Hour: 6, Minute: 0},
		Morning:      {Hour: 9, Minute: 0},
		Afternoon:    {Hour: 14, Minute: 0},
		Evening:      {Hour: 19, Minute: 0},
		Night:        {Hour: 22, Minute: 0},
	}
}

// ParseDayPartTimes reads overrides like "morning=08:30,evening=20:00" on top
// of the defaults.
func ParseDayPartTimes(raw string) (DayPartTimes, error) {
	times := DefaultDayPartTimes()
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid day part override %q, expected part=HH:MM", pair)
		}
		part, err := ParseDayPart(key)
		if err != nil {
			return nil, err
		}
		at, err := ParseTimeOfDay(value)
		if err != nil {
			return nil, err
		}
		times[part] = at
	}
	return times, nil
}

// At returns the start time of a day part.
func (t DayPartTimes) At(p DayPart) (TimeOfDay, error) {
	at, ok := t[p]
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrUnknownDayPart, p)
	}
	return at, nil
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
