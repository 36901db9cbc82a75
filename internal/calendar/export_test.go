package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindplanner/internal/model"
)

func TestExportRoundTrip(t *testing.T) {
	group := "5d3c2a"
	start := "09:30"
	reminder := 15
	presetID := uint(4)
	activities := []model.Activity{
		{
			ID:                1,
			Title:             "Meditation",
			Emoji:             "🧘",
			Category:          "mindfulness",
			Date:              time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			StartTime:         &start,
			DurationMinutes:   20,
			Status:            model.StatusPlanned,
			ReminderMinutes:   &reminder,
			RecurrenceGroupID: &group,
		},
		{
			ID:           2,
			Title:        "Screens off",
			Date:         time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			Status:       model.StatusCompleted,
			UserPresetID: &presetID,
		},
	}
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, activities, time.UTC, stamp))
	out := buf.String()
	assert.Contains(t, out, "PRODID:"+productID)
	assert.Contains(t, out, "DTSTART:20240310T093000Z")
	assert.Contains(t, out, "DTEND:20240310T095000Z")
	assert.Contains(t, out, "TRIGGER:-PT15M")

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "activity-1@mindplanner", uid)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "🧘 Meditation", summary)

	related, err := events[0].Props.Text(ical.PropRelatedTo)
	require.NoError(t, err)
	assert.Equal(t, "series-5d3c2a@mindplanner", related)

	allDay := events[1].Props.Get(ical.PropDateTimeStart)
	require.NotNil(t, allDay)
	assert.Equal(t, "20240311", allDay.Value)
	assert.Equal(t, ical.ValueDate, allDay.ValueType())

	status, err := events[1].Props.Text(PropStatus)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)

	related, err = events[1].Props.Text(ical.PropRelatedTo)
	require.NoError(t, err)
	assert.Equal(t, "preset-4@mindplanner", related)
}

func TestBuildUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	start := "08:00"
	cal, err := Build([]model.Activity{{
		ID:        9,
		Title:     "Walk",
		Date:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		StartTime: &start,
	}}, loc, time.Now())
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)
	dt, err := events[0].Props.DateTime(ical.PropDateTimeStart, nil)
	require.NoError(t, err)
	assert.True(t, dt.Equal(time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)))
	assert.Nil(t, events[0].Props.Get(ical.PropDateTimeEnd))
}

func TestBuildRejectsBadStartTime(t *testing.T) {
	bad := "25:99"
	_, err := Build([]model.Activity{{ID: 1, Title: "x", StartTime: &bad}}, nil, time.Now())
	assert.Error(t, err)
}
