package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/mo"

	"mindplanner/internal/events"
	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/repository"
)

// PlanInput represents data required to plan an activity series.
type PlanInput struct {
	Template planner.Template
	Date     time.Time
	Rule     recurrence.Rule
}

// PlanResult describes a completed materialization.
type PlanResult struct {
	Activities []model.Activity
	GroupID    *string
}

// Preview is the series a rule would produce, without touching storage.
type Preview struct {
	Dates         []time.Time `json:"dates"`
	ActivationEnd time.Time   `json:"activationEnd"`
	RRule         string      `json:"rrule"`
}

// ActivityService wraps activity-related business logic.
type ActivityService struct {
	activities *repository.ActivityRepository
	categories *CategoryService
	dispatcher *events.Dispatcher
	times      planner.DayPartTimes
	chunkSize  int
}

func NewActivityService(activities *repository.ActivityRepository, categories *CategoryService, dispatcher *events.Dispatcher, times planner.DayPartTimes, chunkSize int) *ActivityService {
	if times == nil {
		times = planner.DefaultDayPartTimes()
	}
	if chunkSize <= 0 {
		chunkSize = repository.DefaultChunkSize
	}
	return &ActivityService{
		activities: activities,
		categories: categories,
		dispatcher: dispatcher,
		times:      times,
		chunkSize:  chunkSize,
	}
}

// PreviewDates expands a rule without storing anything.
func PreviewDates(start time.Time, rule recurrence.Rule) (*Preview, error) {
	if err := rule.Validate(start); err != nil {
		return nil, err
	}
	rule = rule.Normalize()
	rrule, err := rule.RRuleString(start)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Dates:         recurrence.GenerateDates(start, rule),
		ActivationEnd: recurrence.CalculateActivationEnd(start, rule),
		RRule:         rrule,
	}, nil
}

// Plan expands the rule from input.Date and stores one activity per date.
// Recurring rules stamp every row with a fresh recurrence group id.
func (s *ActivityService) Plan(ctx context.Context, user *model.User, input PlanInput) (*PlanResult, error) {
	tmpl := input.Template.Normalize()
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	if err := input.Rule.Validate(input.Date); err != nil {
		return nil, err
	}
	rule := input.Rule.Normalize()

	group := planner.NoGroup
	if rule.IsRecurring() {
		group = planner.NewRecurrenceGroup()
	}

	dates := recurrence.GenerateDates(input.Date, rule)
	rows, err := planner.MaterializeActivities(user.ID, dates, tmpl, s.times, group)
	if err != nil {
		return nil, err
	}

	if s.categories != nil && tmpl.Category != "" {
		if err := s.categories.Remember(ctx, user, tmpl.Category); err != nil {
			log.Printf("remember category %q for user %d: %v", tmpl.Category, user.ID, err)
		}
	}

	created, err := s.activities.InsertBatch(ctx, rows, s.chunkSize)
	if created > 0 {
		s.publish(user.ID, rows[:created], group.RecurrenceGroupID)
	}
	if err != nil {
		if created == 0 {
			return nil, fmt.Errorf("plan activities: %w", err)
		}
		partial := &PartialMaterializationError{Created: created, Total: len(rows), Err: err}
		if group.RecurrenceGroupID != nil {
			partial.GroupID = *group.RecurrenceGroupID
		}
		log.Printf("plan activities user=%d: %v", user.ID, partial)
		return &PlanResult{Activities: rows[:created], GroupID: group.RecurrenceGroupID}, partial
	}

	log.Printf("[info] planned %d activities user=%d recurring=%t", created, user.ID, rule.IsRecurring())
	return &PlanResult{Activities: rows, GroupID: group.RecurrenceGroupID}, nil
}

// List returns the user's activities between from and to, inclusive. Nil
// bounds are open.
func (s *ActivityService) List(ctx context.Context, user *model.User, from, to *time.Time) ([]model.Activity, error) {
	return s.ListByStatus(ctx, user, "", from, to)
}

// ListByStatus is List narrowed to one status. An empty status matches all.
func (s *ActivityService) ListByStatus(ctx context.Context, user *model.User, status model.ActivityStatus, from, to *time.Time) ([]model.Activity, error) {
	if status != "" && status != model.StatusPlanned && status != model.StatusCompleted {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.activities.Select(ctx, repository.ActivityFilter{UserID: user.ID, From: from, To: to, Status: status})
}

func (s *ActivityService) Get(ctx context.Context, user *model.User, id uint) (*model.Activity, error) {
	return s.activities.FindByID(ctx, user.ID, id)
}

// Update applies patch to one activity (ScopeSingle) or to every activity of
// its group (ScopeGroup). Group updates never touch dates, start times or
// statuses. It returns how many rows were updated.
func (s *ActivityService) Update(ctx context.Context, user *model.User, id uint, scope planner.Scope, patch planner.Patch) (int64, error) {
	if err := validatePatch(patch); err != nil {
		return 0, err
	}
	target, err := s.activities.FindByID(ctx, user.ID, id)
	if err != nil {
		return 0, err
	}

	ids, groupID, err := s.resolveScope(ctx, user, target, scope)
	if err != nil {
		return 0, err
	}
	if groupID != "" {
		patch = patch.Shared()
	}
	if patch.IsEmpty() {
		return 0, ErrEmptyPatch
	}

	n, err := s.activities.Update(ctx, repository.ActivityFilter{UserID: user.ID, IDs: ids}, patch.Columns())
	if err != nil {
		return 0, err
	}
	s.dispatcher.Publish(events.Event{Kind: events.ActivityUpdated, UserID: user.ID, ActivityIDs: ids, GroupID: groupID})
	log.Printf("[info] updated %d activities user=%d scope=%s", n, user.ID, scope)
	return n, nil
}

// Delete removes one activity (ScopeSingle) or its whole group (ScopeGroup)
// and returns how many rows were removed.
func (s *ActivityService) Delete(ctx context.Context, user *model.User, id uint, scope planner.Scope) (int64, error) {
	target, err := s.activities.FindByID(ctx, user.ID, id)
	if err != nil {
		return 0, err
	}
	ids, groupID, err := s.resolveScope(ctx, user, target, scope)
	if err != nil {
		return 0, err
	}

	n, err := s.activities.Delete(ctx, repository.ActivityFilter{UserID: user.ID, IDs: ids})
	if err != nil {
		return 0, err
	}
	s.dispatcher.Publish(events.Event{Kind: events.ActivityUpdated, UserID: user.ID, ActivityIDs: ids, GroupID: groupID})
	log.Printf("[info] deleted %d activities user=%d scope=%s", n, user.ID, scope)
	return n, nil
}

// SetStatus marks a single occurrence planned or completed.
func (s *ActivityService) SetStatus(ctx context.Context, user *model.User, id uint, status model.ActivityStatus) (*model.Activity, error) {
	return s.updateOne(ctx, user, id, planner.Patch{Status: mo.Some(status)})
}

// Reschedule moves a single occurrence. A nil startTime keeps the current one.
func (s *ActivityService) Reschedule(ctx context.Context, user *model.User, id uint, date time.Time, startTime *planner.TimeOfDay) (*model.Activity, error) {
	patch := planner.Patch{Date: mo.Some(date)}
	if startTime != nil {
		patch.StartTime = mo.Some(*startTime)
	}
	return s.updateOne(ctx, user, id, patch)
}

func (s *ActivityService) updateOne(ctx context.Context, user *model.User, id uint, patch planner.Patch) (*model.Activity, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	activity, err := s.activities.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.activities.Update(ctx, repository.ActivityFilter{UserID: user.ID, IDs: []uint{id}}, patch.Columns()); err != nil {
		return nil, err
	}
	patch.Apply(activity)
	s.dispatcher.Publish(events.Event{Kind: events.ActivityUpdated, UserID: user.ID, ActivityIDs: []uint{id}})
	return activity, nil
}

// resolveScope returns the ids a mutation of target reaches. Group scope on
// an activity without group markers falls back to the activity itself.
func (s *ActivityService) resolveScope(ctx context.Context, user *model.User, target *model.Activity, scope planner.Scope) ([]uint, string, error) {
	key := planner.KeyOf(*target)
	if scope != planner.ScopeGroup || key.IsZero() {
		return []uint{target.ID}, "", nil
	}

	filter := repository.ActivityFilter{UserID: user.ID}
	groupID := ""
	if key.RecurrenceGroupID != nil {
		filter.RecurrenceGroupID = key.RecurrenceGroupID
		groupID = *key.RecurrenceGroupID
	} else {
		filter.UserPresetID = key.UserPresetID
		groupID = presetGroupID(*key.UserPresetID)
	}
	rows, err := s.activities.Select(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	ids := planner.ResolveGroupIDs(user.ID, key, rows)
	if len(ids) == 0 {
		return nil, "", fmt.Errorf("activity group: %w", ErrNotFound)
	}
	return ids, groupID, nil
}

func (s *ActivityService) publish(userID uint, rows []model.Activity, groupID *string) {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	e := events.Event{Kind: events.ActivityUpdated, UserID: userID, ActivityIDs: ids}
	if groupID != nil {
		e.GroupID = *groupID
	}
	s.dispatcher.Publish(e)
}

func validatePatch(p planner.Patch) error {
	if v, ok := p.Status.Get(); ok && v != model.StatusPlanned && v != model.StatusCompleted {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	if v, ok := p.Title.Get(); ok && strings.TrimSpace(v) == "" {
		return planner.ErrTitleRequired
	}
	if v, ok := p.DurationMinutes.Get(); ok && v < 0 {
		return ErrNegativeDuration
	}
	return nil
}
