package planner

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindplanner/internal/model"
	"mindplanner/internal/recurrence"
)

func TestDayPartTimes_DefaultsAreTotal(t *testing.T) {
	times := DefaultDayPartTimes()
	for _, p := range DayParts {
		_, err := times.At(p)
		require.NoError(t, err, p)
	}

	_, err := times.At("brunch")
	assert.ErrorIs(t, err, ErrUnknownDayPart)
}

func TestParseDayPartTimes(t *testing.T) {
	times, err := ParseDayPartTimes("morning=08:30, evening=20:15")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, times[Morning])
	assert.Equal(t, TimeOfDay{Hour: 20, Minute: 15}, times[Evening])
	assert.Equal(t, TimeOfDay{Hour: 22}, times[Night])
	assert.Len(t, times, len(DayParts))

	_, err = ParseDayPartTimes("brunch=11:00")
	assert.ErrorIs(t, err, ErrUnknownDayPart)

	_, err = ParseDayPartTimes("morning=25:00")
	assert.Error(t, err)

	_, err = ParseDayPartTimes("morning")
	assert.Error(t, err)
}

func TestTimeOfDay_Text(t *testing.T) {
	var at TimeOfDay
	require.NoError(t, at.UnmarshalText([]byte("07:05")))
	assert.Equal(t, "07:05", at.String())

	assert.Error(t, at.UnmarshalText([]byte("7")))
}

func TestMaterializeActivities(t *testing.T) {
	dates := recurrence.GenerateDates(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), recurrence.Rule{Type: recurrence.TypeDaily, Count: 5})
	tmpl := Template{Title: " Walk ", Category: "movement", DurationMinutes: 30, Emoji: "🚶", DayPart: Evening}

	group := NewRecurrenceGroup()
	rows, err := MaterializeActivities(7, dates, tmpl, DefaultDayPartTimes(), group)
	require.NoError(t, err)
	require.Len(t, rows, len(dates))

	seen := map[time.Time]bool{}
	for i, row := range rows {
		assert.Equal(t, uint(7), row.UserID)
		assert.Equal(t, "Walk", row.Title)
		assert.Equal(t, "movement", row.Category)
		assert.Equal(t, 30, row.DurationMinutes)
		assert.Equal(t, "🚶", row.Emoji)
		assert.Equal(t, model.ImpactPositive, row.ImpactType)
		assert.Equal(t, model.StatusPlanned, row.Status)
		require.NotNil(t, row.StartTime)
		assert.Equal(t, "19:00", *row.StartTime)
		require.NotNil(t, row.RecurrenceGroupID)
		assert.Equal(t, *group.RecurrenceGroupID, *row.RecurrenceGroupID)
		assert.Nil(t, row.UserPresetID)
		assert.Equal(t, dates[i], row.Date)
		assert.False(t, seen[row.Date])
		seen[row.Date] = true
	}

	// Rows must not alias each other's pointers.
	*rows[0].StartTime = "05:00"
	assert.Equal(t, "19:00", *rows[1].StartTime)
}

func TestMaterializeActivities_StartTimeOverrideAndPreset(t *testing.T) {
	at := TimeOfDay{Hour: 7, Minute: 45}
	rows, err := MaterializeActivities(1, []time.Time{time.Now()}, Template{Title: "Run", StartTime: &at}, DefaultDayPartTimes(), PresetGroup(3))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "07:45", *rows[0].StartTime)
	require.NotNil(t, rows[0].UserPresetID)
	assert.Equal(t, uint(3), *rows[0].UserPresetID)
	assert.Nil(t, rows[0].RecurrenceGroupID)
}

func TestMaterializeActivities_Errors(t *testing.T) {
	_, err := MaterializeActivities(1, []time.Time{time.Now()}, Template{Title: "  "}, DefaultDayPartTimes(), NoGroup)
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = MaterializeActivities(1, []time.Time{time.Now()}, Template{Title: "Nap", DayPart: "siesta"}, DefaultDayPartTimes(), NoGroup)
	assert.ErrorIs(t, err, ErrUnknownDayPart)

	partial := DayPartTimes{Morning: {Hour: 9}}
	_, err = MaterializeActivities(1, []time.Time{time.Now()}, Template{Title: "Nap", DayPart: Night}, partial, NoGroup)
	assert.ErrorIs(t, err, ErrUnknownDayPart)
}

func groupID(s string) *string { return &s }
func presetID(id uint) *uint   { return &id }

func TestResolveGroupIDs(t *testing.T) {
	rows := []model.Activity{
		{ID: 1, UserID: 1, RecurrenceGroupID: groupID("g")},
		{ID: 2, UserID: 1, RecurrenceGroupID: groupID("g")},
		{ID: 3, UserID: 1, RecurrenceGroupID: groupID("other")},
		{ID: 4, UserID: 1},
		{ID: 5, UserID: 2, RecurrenceGroupID: groupID("g")},
		{ID: 6, UserID: 1, UserPresetID: presetID(9)},
		{ID: 7, UserID: 1, UserPresetID: presetID(9), RecurrenceGroupID: groupID("g")},
	}

	assert.Equal(t, []uint{1, 2, 7}, ResolveGroupIDs(1, GroupKey{RecurrenceGroupID: groupID("g")}, rows))
	assert.Equal(t, []uint{6, 7}, ResolveGroupIDs(1, GroupKey{UserPresetID: presetID(9)}, rows))
	assert.Empty(t, ResolveGroupIDs(1, GroupKey{}, rows))
	assert.Equal(t, []uint{1, 2, 7}, ResolveGroupIDs(1, KeyOf(rows[0]), rows))
	assert.Empty(t, ResolveGroupIDs(1, KeyOf(rows[3]), rows))
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeSingle, s)

	s, err = ParseScope("ALL")
	require.NoError(t, err)
	assert.Equal(t, ScopeGroup, s)

	_, err = ParseScope("some")
	assert.Error(t, err)
}

func TestNeedsScopeChoice(t *testing.T) {
	assert.False(t, NeedsScopeChoice(model.Activity{}))
	assert.True(t, NeedsScopeChoice(model.Activity{RecurrenceGroupID: groupID("g")}))
	assert.True(t, NeedsScopeChoice(model.Activity{UserPresetID: presetID(1)}))
}

func TestPatch_SharedDropsPerOccurrenceFields(t *testing.T) {
	p := Patch{
		Title:           mo.Some("Evening walk"),
		DurationMinutes: mo.Some(45),
		Date:            mo.Some(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		StartTime:       mo.Some(TimeOfDay{Hour: 18}),
		Status:          mo.Some(model.StatusCompleted),
	}

	shared := p.Shared()
	assert.Equal(t, map[string]any{"title": "Evening walk", "duration_minutes": 45}, shared.Columns())

	original := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	a := model.Activity{Title: "Walk", DurationMinutes: 30, Date: original, Status: model.StatusPlanned}
	shared.Apply(&a)
	assert.Equal(t, "Evening walk", a.Title)
	assert.Equal(t, 45, a.DurationMinutes)
	assert.Equal(t, original, a.Date)
	assert.Equal(t, model.StatusPlanned, a.Status)
	assert.Nil(t, a.StartTime)
}

func TestPatch_ReminderClears(t *testing.T) {
	cols := Patch{ReminderMinutes: mo.Some(0)}.Columns()
	v, ok := cols["reminder_minutes"]
	assert.True(t, ok)
	assert.Nil(t, v)

	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{Emoji: mo.Some("🙂")}.IsEmpty())
}

func TestPresetActivityTemplate(t *testing.T) {
	tmpl := PresetActivityTemplate(model.PresetActivity{TemplateKey: "walk", DurationMinutes: 45})
	assert.Equal(t, "Walk outside", tmpl.Title)
	assert.Equal(t, 45, tmpl.DurationMinutes)
	assert.Equal(t, Afternoon, tmpl.DayPart)

	custom := PresetActivityTemplate(model.PresetActivity{Title: "Yoga", DayPart: string(Evening)})
	assert.Equal(t, "Yoga", custom.Title)
	assert.Equal(t, Evening, custom.DayPart)
	assert.Equal(t, model.ImpactPositive, custom.ImpactType)
}

func TestDefaultPresets_AreValid(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range DefaultPresets() {
		require.NoError(t, p.Rule.Validate(start), p.Name)
		require.NotEmpty(t, p.Activities, p.Name)
		for _, pa := range p.Activities {
			require.NoError(t, PresetActivityTemplate(pa).Validate(), p.Name)
		}
	}
}
