package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mindplanner/internal/events"
	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/repository"
)

type harness struct {
	db         *gorm.DB
	users      *repository.UserRepository
	activities *repository.ActivityRepository
	presets    *repository.PresetRepository
	dispatcher *events.Dispatcher
	activity   *ActivityService
	preset     *PresetService
	reminders  *ReminderService

	mu     sync.Mutex
	events []events.Event
}

func newHarness(t *testing.T, chunkSize int) *harness {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	h := &harness{
		db:         db,
		users:      repository.NewUserRepository(db),
		activities: repository.NewActivityRepository(db),
		presets:    repository.NewPresetRepository(db),
		dispatcher: events.NewDispatcher(),
	}
	categories := NewCategoryService(repository.NewCategoryRepository(db))
	h.activity = NewActivityService(h.activities, categories, h.dispatcher, nil, chunkSize)
	h.preset = NewPresetService(h.presets, h.activities, h.dispatcher, nil, chunkSize)
	h.reminders = NewReminderService(h.activities, h.presets)
	h.dispatcher.Subscribe(func(e events.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, e)
	})
	return h
}

func (h *harness) user(t *testing.T, subject string) *model.User {
	t.Helper()
	u, _, err := h.users.EnsureBySubject(context.Background(), subject)
	require.NoError(t, err)
	return u
}

func (h *harness) published() []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.Event(nil), h.events...)
}

func (h *harness) all(t *testing.T, user *model.User) []model.Activity {
	t.Helper()
	rows, err := h.activity.List(context.Background(), user, nil, nil)
	require.NoError(t, err)
	return rows
}

var jan15 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func walk() planner.Template {
	return planner.Template{Title: "Walk", Category: "movement", DurationMinutes: 30, DayPart: planner.Afternoon}
}

func TestActivityService_PlanDailySharesGroup(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")

	res, err := h.activity.Plan(context.Background(), u, PlanInput{
		Template: walk(),
		Date:     jan15,
		Rule:     recurrence.Rule{Type: recurrence.TypeDaily, Count: 3},
	})
	require.NoError(t, err)
	require.NotNil(t, res.GroupID)
	require.Len(t, res.Activities, 3)

	rows := h.all(t, u)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, jan15.AddDate(0, 0, i), row.Date.UTC())
		require.NotNil(t, row.RecurrenceGroupID)
		assert.Equal(t, *res.GroupID, *row.RecurrenceGroupID)
		assert.Nil(t, row.UserPresetID)
		require.NotNil(t, row.StartTime)
		assert.Equal(t, "14:00", *row.StartTime)
		assert.Equal(t, model.StatusPlanned, row.Status)
	}

	evs := h.published()
	require.Len(t, evs, 1)
	assert.Equal(t, events.ActivityUpdated, evs[0].Kind)
	assert.Equal(t, *res.GroupID, evs[0].GroupID)
	assert.Len(t, evs[0].ActivityIDs, 3)

	categories, err := NewCategoryService(repository.NewCategoryRepository(h.db)).List(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "movement", categories[0].Name)
}

func TestActivityService_PlanOnceHasNoGroup(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")

	res, err := h.activity.Plan(context.Background(), u, PlanInput{Template: walk(), Date: jan15, Rule: recurrence.Once()})
	require.NoError(t, err)
	assert.Nil(t, res.GroupID)
	require.Len(t, res.Activities, 1)
	assert.False(t, res.Activities[0].InGroup())
}

func TestActivityService_PlanRejectsEndBeforeStart(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	end := jan15.AddDate(0, 0, -1)

	_, err := h.activity.Plan(context.Background(), u, PlanInput{
		Template: walk(),
		Date:     jan15,
		Rule: recurrence.Rule{
			Type:           recurrence.TypeCustom,
			CustomInterval: 1,
			CustomUnit:     recurrence.UnitDay,
			EndCondition:   recurrence.EndDate,
			EndDate:        &end,
		},
	})
	assert.ErrorIs(t, err, recurrence.ErrEndBeforeStart)
	assert.Empty(t, h.all(t, u))
}

func TestActivityService_PlanRequiresTitle(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")

	_, err := h.activity.Plan(context.Background(), u, PlanInput{Template: planner.Template{Title: "  "}, Date: jan15, Rule: recurrence.Once()})
	assert.ErrorIs(t, err, planner.ErrTitleRequired)
}

func TestActivityService_PlanReportsPartialMaterialization(t *testing.T) {
	h := newHarness(t, 2)
	u := h.user(t, "ann")

	calls := 0
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:fail_second", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*[]model.Activity); !ok {
			return
		}
		calls++
		if calls == 2 {
			tx.AddError(errors.New("disk full"))
		}
	}))

	res, err := h.activity.Plan(context.Background(), u, PlanInput{
		Template: walk(),
		Date:     jan15,
		Rule:     recurrence.Rule{Type: recurrence.TypeDaily, Count: 5},
	})
	var partial *PartialMaterializationError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Created)
	assert.Equal(t, 5, partial.Total)
	assert.NotEmpty(t, partial.GroupID)
	assert.Contains(t, err.Error(), "2 of 5 activities created")

	require.NotNil(t, res)
	assert.Len(t, res.Activities, 2)
	assert.Len(t, h.all(t, u), 2)
}

func planDaily(t *testing.T, h *harness, u *model.User, title string, n int) *PlanResult {
	t.Helper()
	tmpl := walk()
	tmpl.Title = title
	res, err := h.activity.Plan(context.Background(), u, PlanInput{
		Template: tmpl,
		Date:     jan15,
		Rule:     recurrence.Rule{Type: recurrence.TypeDaily, Count: n},
	})
	require.NoError(t, err)
	return res
}

func TestActivityService_GroupUpdatePropagatesSharedFields(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	res := planDaily(t, h, u, "Walk", 3)
	other := planDaily(t, h, u, "Read", 2)

	n, err := h.activity.Update(context.Background(), u, res.Activities[1].ID, planner.ScopeGroup, planner.Patch{
		Title:           mo.Some("Run"),
		DurationMinutes: mo.Some(40),
		Date:            mo.Some(jan15.AddDate(0, 1, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, row := range h.all(t, u) {
		switch *row.RecurrenceGroupID {
		case *res.GroupID:
			assert.Equal(t, "Run", row.Title)
			assert.Equal(t, 40, row.DurationMinutes)
			assert.Equal(t, time.January, row.Date.UTC().Month())
		case *other.GroupID:
			assert.Equal(t, "Read", row.Title)
		}
	}
}

func TestActivityService_SingleUpdateTouchesOneRow(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	res := planDaily(t, h, u, "Walk", 3)

	n, err := h.activity.Update(context.Background(), u, res.Activities[0].ID, planner.ScopeSingle, planner.Patch{Title: mo.Some("Solo")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows := h.all(t, u)
	assert.Equal(t, "Solo", rows[0].Title)
	assert.Equal(t, "Walk", rows[1].Title)
	assert.Equal(t, "Walk", rows[2].Title)
}

func TestActivityService_GroupUpdateWithOnlyPerRowFieldsIsEmpty(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	res := planDaily(t, h, u, "Walk", 2)

	_, err := h.activity.Update(context.Background(), u, res.Activities[0].ID, planner.ScopeGroup, planner.Patch{
		Status: mo.Some(model.StatusCompleted),
	})
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestActivityService_UpdateValidatesPatch(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	res := planDaily(t, h, u, "Walk", 1)

	_, err := h.activity.Update(context.Background(), u, res.Activities[0].ID, planner.ScopeSingle, planner.Patch{Status: mo.Some(model.ActivityStatus("skipped"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = h.activity.Update(context.Background(), u, res.Activities[0].ID, planner.ScopeSingle, planner.Patch{Title: mo.Some("")})
	assert.ErrorIs(t, err, planner.ErrTitleRequired)
}

func TestActivityService_GroupDeleteLeavesOthers(t *testing.T) {
	h := newHarness(t, 0)
	ann := h.user(t, "ann")
	bob := h.user(t, "bob")

	target := planDaily(t, h, ann, "Walk", 4)
	keep := planDaily(t, h, ann, "Read", 2)
	_, err := h.activity.Plan(context.Background(), ann, PlanInput{Template: walk(), Date: jan15, Rule: recurrence.Once()})
	require.NoError(t, err)
	planDaily(t, h, bob, "Walk", 3)

	n, err := h.activity.Delete(context.Background(), ann, target.Activities[2].ID, planner.ScopeGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	left := h.all(t, ann)
	assert.Len(t, left, 3)
	for _, row := range left {
		if row.RecurrenceGroupID != nil {
			assert.Equal(t, *keep.GroupID, *row.RecurrenceGroupID)
		}
	}
	assert.Len(t, h.all(t, bob), 3)
}

func TestActivityService_GroupScopeOnOneOffFallsBackToSingle(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	res, err := h.activity.Plan(context.Background(), u, PlanInput{Template: walk(), Date: jan15, Rule: recurrence.Once()})
	require.NoError(t, err)
	planDaily(t, h, u, "Read", 2)

	n, err := h.activity.Delete(context.Background(), u, res.Activities[0].ID, planner.ScopeGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, h.all(t, u), 2)
}

func TestActivityService_OtherUsersRowsAreNotFound(t *testing.T) {
	h := newHarness(t, 0)
	ann := h.user(t, "ann")
	bob := h.user(t, "bob")
	res := planDaily(t, h, ann, "Walk", 2)

	_, err := h.activity.Delete(context.Background(), bob, res.Activities[0].ID, planner.ScopeGroup)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, h.all(t, ann), 2)
}

func TestActivityService_SetStatusAndReschedule(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	res := planDaily(t, h, u, "Walk", 2)
	id := res.Activities[1].ID

	a, err := h.activity.SetStatus(context.Background(), u, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, a.Status)

	at := planner.TimeOfDay{Hour: 7, Minute: 30}
	moved := jan15.AddDate(0, 0, 10)
	a, err = h.activity.Reschedule(context.Background(), u, id, moved, &at)
	require.NoError(t, err)
	assert.Equal(t, moved, a.Date.UTC())

	stored, err := h.activity.Get(context.Background(), u, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, moved, stored.Date.UTC())
	require.NotNil(t, stored.StartTime)
	assert.Equal(t, "07:30", *stored.StartTime)
	require.NotNil(t, stored.RecurrenceGroupID)
	assert.Equal(t, *res.GroupID, *stored.RecurrenceGroupID)
}

func TestActivityService_ListByStatus(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()
	res := planDaily(t, h, u, "Walk", 3)

	_, err := h.activity.SetStatus(ctx, u, res.Activities[2].ID, model.StatusCompleted)
	require.NoError(t, err)

	done, err := h.activity.ListByStatus(ctx, u, model.StatusCompleted, nil, nil)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, res.Activities[2].ID, done[0].ID)

	from := jan15.AddDate(0, 0, 1)
	planned, err := h.activity.ListByStatus(ctx, u, model.StatusPlanned, &from, nil)
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, res.Activities[1].ID, planned[0].ID)

	_, err = h.activity.ListByStatus(ctx, u, "skipped", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPreviewDates(t *testing.T) {
	p, err := PreviewDates(jan15, recurrence.Rule{Type: recurrence.TypeWeekly, Count: 3})
	require.NoError(t, err)
	require.Len(t, p.Dates, 3)
	assert.Equal(t, p.Dates[2], p.ActivationEnd)
	assert.Equal(t, jan15.AddDate(0, 0, 14), p.ActivationEnd)
	assert.Contains(t, p.RRule, "FREQ=WEEKLY")
}

func TestPresetService_SeedDefaultsOnce(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()

	require.NoError(t, h.preset.SeedDefaults(ctx, u))
	require.NoError(t, h.preset.SeedDefaults(ctx, u))

	presets, err := h.preset.List(ctx, u)
	require.NoError(t, err)
	assert.Len(t, presets, len(planner.DefaultPresets()))
	for _, p := range presets {
		assert.False(t, p.IsActive)
		assert.NotEmpty(t, p.Activities)
	}
}

func TestPresetService_CreateValidates(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()

	assert.ErrorIs(t, h.preset.Create(ctx, u, &model.Preset{Name: "Empty"}), ErrPresetEmpty)
	err := h.preset.Create(ctx, u, &model.Preset{Name: "Bad", Activities: []model.PresetActivity{{Title: "x", DayPart: "brunch"}}})
	assert.ErrorIs(t, err, planner.ErrUnknownDayPart)
}

func calmPreset(t *testing.T, h *harness, u *model.User) *model.Preset {
	t.Helper()
	p := &model.Preset{
		Name: "Calm",
		Rule: recurrence.Rule{Type: recurrence.TypeDaily, Count: 5},
		Activities: []model.PresetActivity{
			{TemplateKey: "breathing"},
			{TemplateKey: "meditation", Repetitions: 2},
		},
	}
	require.NoError(t, h.preset.Create(context.Background(), u, p))
	return p
}

func TestPresetService_ActivateAndDeactivate(t *testing.T) {
	h := newHarness(t, 7)
	u := h.user(t, "ann")
	ctx := context.Background()
	p := calmPreset(t, h, u)
	planDaily(t, h, u, "Walk", 2)

	res, err := h.preset.Activate(ctx, u, p.ID, jan15, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Created)
	assert.True(t, res.Preset.IsActive)
	require.NotNil(t, res.Preset.ActivationEndDate)
	assert.Equal(t, jan15.AddDate(0, 0, 4), res.Preset.ActivationEndDate.UTC())

	for _, row := range h.all(t, u) {
		if row.UserPresetID != nil {
			assert.Equal(t, p.ID, *row.UserPresetID)
			assert.Nil(t, row.RecurrenceGroupID)
		}
	}

	again, err := h.preset.Activate(ctx, u, p.ID, jan15.AddDate(0, 0, 1), &recurrence.Rule{Type: recurrence.TypeDaily, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, again.Created)
	assert.Len(t, h.all(t, u), 8)

	removed, err := h.preset.Deactivate(ctx, u, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), removed)
	assert.Len(t, h.all(t, u), 2)

	stored, err := h.preset.Get(ctx, u, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Nil(t, stored.ActivationEndDate)
	assert.Equal(t, 2, stored.Rule.Count)
}

func TestPresetService_FailedReactivationClearsWindow(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()
	p := calmPreset(t, h, u)

	_, err := h.preset.Activate(ctx, u, p.ID, jan15, nil)
	require.NoError(t, err)
	require.Len(t, h.all(t, u), 15)

	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:fail_all", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*[]model.Activity); ok {
			tx.AddError(errors.New("disk full"))
		}
	}))

	res, err := h.preset.Activate(ctx, u, p.ID, jan15.AddDate(0, 0, 1), nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, h.all(t, u))

	stored, err := h.preset.Get(ctx, u, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Nil(t, stored.ActivationStartDate)
	assert.Nil(t, stored.ActivationEndDate)
}

func TestPresetService_GroupEditOnPresetRows(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()
	p := calmPreset(t, h, u)
	res, err := h.preset.Activate(ctx, u, p.ID, jan15, nil)
	require.NoError(t, err)

	rows := h.all(t, u)
	n, err := h.activity.Update(ctx, u, rows[0].ID, planner.ScopeGroup, planner.Patch{Emoji: mo.Some("🌿")})
	require.NoError(t, err)
	assert.Equal(t, int64(res.Created), n)

	evs := h.published()
	assert.Equal(t, "preset-1", evs[len(evs)-1].GroupID)
}

func TestPresetService_ExpireFinished(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()
	p := calmPreset(t, h, u)
	_, err := h.preset.Activate(ctx, u, p.ID, jan15, nil)
	require.NoError(t, err)

	n, err := h.preset.ExpireFinished(ctx, jan15.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = h.preset.ExpireFinished(ctx, jan15.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := h.preset.Get(ctx, u, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Len(t, h.all(t, u), 15)
}

func TestPresetService_DeleteRemovesRows(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()
	p := calmPreset(t, h, u)
	_, err := h.preset.Activate(ctx, u, p.ID, jan15, nil)
	require.NoError(t, err)

	require.NoError(t, h.preset.Delete(ctx, u, p.ID))
	assert.Empty(t, h.all(t, u))
	_, err = h.preset.Get(ctx, u, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReminderService_DailySummary(t *testing.T) {
	h := newHarness(t, 0)
	u := h.user(t, "ann")
	ctx := context.Background()
	now := jan15.Add(8 * time.Hour)

	res := planDaily(t, h, u, "Walk <fast>", 2)
	_, err := h.activity.SetStatus(ctx, u, res.Activities[0].ID, model.StatusCompleted)
	require.NoError(t, err)

	p := &model.Preset{Name: "Short", Rule: recurrence.Once(), Activities: []model.PresetActivity{{TemplateKey: "reading"}}}
	require.NoError(t, h.preset.Create(ctx, u, p))
	_, err = h.preset.Activate(ctx, u, p.ID, jan15, nil)
	require.NoError(t, err)

	summary, err := h.reminders.DailySummary(ctx, *u, now)
	require.NoError(t, err)
	assert.Contains(t, summary, "Walk &lt;fast&gt;")
	assert.Contains(t, summary, "Reading")
	assert.Contains(t, summary, "1 of 2 done")
	assert.Contains(t, summary, "Last day of: Short")

	empty, err := h.reminders.DailySummary(ctx, *u, now.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Contains(t, empty, "nothing planned")
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("08:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 8 * * *", spec)

	_, err = buildDailySpec("25:00")
	assert.Error(t, err)
}

func TestSchedulerService_RegistersJobs(t *testing.T) {
	h := newHarness(t, 0)
	s := NewSchedulerService(time.UTC)

	_, err := s.ScheduleDaily("07:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleExpiry(time.Hour, h.preset)
	require.NoError(t, err)
	_, err = s.ScheduleInterval(0, func() {})
	assert.Error(t, err)
	assert.Equal(t, 2, s.Entries())
}
