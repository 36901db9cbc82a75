package planner

import (
	"time"

	"github.com/google/uuid"

	"mindplanner/internal/model"
	"mindplanner/internal/recurrence"
)

// Group is the membership stamped on every row of one materialization.
type Group struct {
	RecurrenceGroupID *string
	UserPresetID      *uint
}

// NoGroup marks one-off activities.
var NoGroup = Group{}

// NewRecurrenceGroup returns a group with a fresh random identifier.
func NewRecurrenceGroup() Group {
	id := uuid.NewString()
	return Group{RecurrenceGroupID: &id}
}

// PresetGroup tags rows with the preset that produced them.
func PresetGroup(presetID uint) Group {
	return Group{UserPresetID: &presetID}
}

// Key is the GroupKey matching rows stamped with g.
func (g Group) Key() GroupKey {
	return GroupKey(g)
}

// MaterializeActivities builds one planned activity per date from tmpl. All
// rows share the template attributes and the group; each gets its own date.
// The start time is the template override or the day part's time.
func MaterializeActivities(userID uint, dates []time.Time, tmpl Template, times DayPartTimes, group Group) ([]model.Activity, error) {
	tmpl = tmpl.Normalize()
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	var startAt TimeOfDay
	if tmpl.StartTime != nil {
		startAt = *tmpl.StartTime
	} else {
		at, err := times.At(tmpl.DayPart)
		if err != nil {
			return nil, err
		}
		startAt = at
	}

	activities := make([]model.Activity, 0, len(dates))
	for _, date := range dates {
		start := startAt.String()
		a := model.Activity{
			UserID:          userID,
			Title:           tmpl.Title,
			Category:        tmpl.Category,
			ImpactType:      tmpl.ImpactType,
			DurationMinutes: tmpl.DurationMinutes,
			Emoji:           tmpl.Emoji,
			Description:     tmpl.Description,
			Date:            recurrence.CalendarDay(date),
			StartTime:       &start,
			Status:          model.StatusPlanned,
		}
		if tmpl.ReminderMinutes != nil {
			reminder := *tmpl.ReminderMinutes
			a.ReminderMinutes = &reminder
		}
		if group.RecurrenceGroupID != nil {
			id := *group.RecurrenceGroupID
			a.RecurrenceGroupID = &id
		}
		if group.UserPresetID != nil {
			id := *group.UserPresetID
			a.UserPresetID = &id
		}
		activities = append(activities, a)
	}
	return activities, nil
}
