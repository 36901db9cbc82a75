// Package calendar renders activities as iCalendar data.
package calendar

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"mindplanner/internal/model"
	"mindplanner/internal/planner"
)

const productID = "-//mindplanner//Activity Export//EN"

// PropStatus carries the planned/completed state, which VEVENT STATUS cannot
// express.
const PropStatus = "X-MINDPLANNER-STATUS"

// Build turns activities into a calendar with one VEVENT per activity. Timed
// activities start at their start time in loc; the rest become all-day events.
// Occurrences of one group share a RELATED-TO value.
func Build(activities []model.Activity, loc *time.Location, stamp time.Time) (*ical.Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, a := range activities {
		event, err := buildEvent(a, loc, stamp)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return cal, nil
}

// Export writes activities as an .ics stream.
func Export(w io.Writer, activities []model.Activity, loc *time.Location, stamp time.Time) error {
	cal, err := Build(activities, loc, stamp)
	if err != nil {
		return err
	}
	return Encode(w, cal)
}

func Encode(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func buildEvent(a model.Activity, loc *time.Location, stamp time.Time) (*ical.Event, error) {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, UID(a.ID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetText(ical.PropSummary, summary(a))
	if a.Description != "" {
		event.Props.SetText(ical.PropDescription, a.Description)
	}
	if a.Category != "" {
		event.Props.SetText(ical.PropCategories, a.Category)
	}
	event.Props.SetText(PropStatus, string(a.Status))

	y, m, d := a.Date.UTC().Date()
	if a.StartTime == nil {
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		event.Props.SetDate(ical.PropDateTimeStart, day)
		event.Props.SetDate(ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
	} else {
		at, err := planner.ParseTimeOfDay(*a.StartTime)
		if err != nil {
			return nil, err
		}
		start := time.Date(y, m, d, at.Hour, at.Minute, 0, 0, loc)
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		if a.DurationMinutes > 0 {
			event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Duration(a.DurationMinutes)*time.Minute).UTC())
		}
	}

	if related := relatedTo(a); related != "" {
		event.Props.SetText(ical.PropRelatedTo, related)
	}
	if a.ReminderMinutes != nil && *a.ReminderMinutes > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, a.Title)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = "-PT" + strconv.Itoa(*a.ReminderMinutes) + "M"
		alarm.Props.Set(trigger)
		event.Children = append(event.Children, alarm)
	}
	return event, nil
}

// UID is the stable iCalendar identifier of an activity.
func UID(id uint) string {
	return fmt.Sprintf("activity-%d@mindplanner", id)
}

func summary(a model.Activity) string {
	if a.Emoji == "" {
		return a.Title
	}
	return a.Emoji + " " + a.Title
}

func relatedTo(a model.Activity) string {
	switch {
	case a.RecurrenceGroupID != nil:
		return "series-" + *a.RecurrenceGroupID + "@mindplanner"
	case a.UserPresetID != nil:
		return fmt.Sprintf("preset-%d@mindplanner", *a.UserPresetID)
	default:
		return ""
	}
}
