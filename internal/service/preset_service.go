package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mindplanner/internal/events"
	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/repository"
)

var (
	ErrPresetEmpty        = errors.New("preset has no activities")
	ErrPresetNameRequired = errors.New("preset name is required")
)

// ActivationResult describes an activated preset window.
type ActivationResult struct {
	Preset  *model.Preset
	Created int
}

// PresetService manages presets and their activation windows.
type PresetService struct {
	presets    *repository.PresetRepository
	activities *repository.ActivityRepository
	dispatcher *events.Dispatcher
	times      planner.DayPartTimes
	chunkSize  int
}

func NewPresetService(presets *repository.PresetRepository, activities *repository.ActivityRepository, dispatcher *events.Dispatcher, times planner.DayPartTimes, chunkSize int) *PresetService {
	if times == nil {
		times = planner.DefaultDayPartTimes()
	}
	if chunkSize <= 0 {
		chunkSize = repository.DefaultChunkSize
	}
	return &PresetService{
		presets:    presets,
		activities: activities,
		dispatcher: dispatcher,
		times:      times,
		chunkSize:  chunkSize,
	}
}

// Create validates and stores a new preset for user.
func (s *PresetService) Create(ctx context.Context, user *model.User, preset *model.Preset) error {
	preset.Name = strings.TrimSpace(preset.Name)
	if preset.Name == "" {
		return ErrPresetNameRequired
	}
	if len(preset.Activities) == 0 {
		return ErrPresetEmpty
	}
	for i := range preset.Activities {
		pa := &preset.Activities[i]
		if err := planner.PresetActivityTemplate(*pa).Validate(); err != nil {
			return fmt.Errorf("preset activity %d: %w", i+1, err)
		}
		pa.ID = 0
		pa.Position = i
		if pa.Repetitions < 1 {
			pa.Repetitions = 1
		}
	}
	preset.ID = 0
	preset.UserID = user.ID
	preset.Rule = preset.Rule.Normalize()
	preset.IsActive = false
	preset.ActivationStartDate = nil
	preset.ActivationEndDate = nil
	return s.presets.Create(ctx, preset)
}

func (s *PresetService) List(ctx context.Context, user *model.User) ([]model.Preset, error) {
	return s.presets.ListByUser(ctx, user.ID)
}

func (s *PresetService) Get(ctx context.Context, user *model.User, id uint) (*model.Preset, error) {
	return s.presets.FindByID(ctx, user.ID, id)
}

// SeedDefaults gives a user without presets the built-in catalogue.
func (s *PresetService) SeedDefaults(ctx context.Context, user *model.User) error {
	n, err := s.presets.CountByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, preset := range planner.DefaultPresets() {
		preset := preset
		if err := s.Create(ctx, user, &preset); err != nil {
			return fmt.Errorf("seed preset %q: %w", preset.Name, err)
		}
	}
	log.Printf("[info] seeded default presets user=%d", user.ID)
	return nil
}

// Activate materializes the preset from start. A non-nil rule replaces the
// stored one. An active preset is deactivated first so windows never stack.
func (s *PresetService) Activate(ctx context.Context, user *model.User, id uint, start time.Time, rule *recurrence.Rule) (*ActivationResult, error) {
	preset, err := s.presets.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}
	if len(preset.Activities) == 0 {
		return nil, ErrPresetEmpty
	}
	if rule != nil {
		preset.Rule = *rule
	}
	if err := preset.Rule.Validate(start); err != nil {
		return nil, err
	}
	preset.Rule = preset.Rule.Normalize()

	wasActive := preset.IsActive
	if wasActive {
		if _, err := s.removeRows(ctx, user, preset.ID); err != nil {
			return nil, err
		}
	}

	dates := recurrence.GenerateDates(start, preset.Rule)
	group := planner.PresetGroup(preset.ID)
	var rows []model.Activity
	for _, pa := range preset.Activities {
		tmpl := planner.PresetActivityTemplate(pa)
		reps := pa.Repetitions
		if reps < 1 {
			reps = 1
		}
		for r := 0; r < reps; r++ {
			batch, err := planner.MaterializeActivities(user.ID, dates, tmpl, s.times, group)
			if err != nil {
				return nil, fmt.Errorf("preset activity %q: %w", tmpl.Title, err)
			}
			rows = append(rows, batch...)
		}
	}

	created, insertErr := s.activities.InsertBatch(ctx, rows, s.chunkSize)
	if created == 0 && insertErr != nil {
		if wasActive {
			// The old window is gone, so the stored one must go too.
			if err := s.clearWindow(ctx, preset); err != nil {
				log.Printf("clear window of preset %d user=%d: %v", preset.ID, user.ID, err)
			}
		}
		return nil, fmt.Errorf("activate preset: %w", insertErr)
	}

	startDay := recurrence.CalendarDay(start)
	endDay := recurrence.CalendarDay(recurrence.CalculateActivationEnd(start, preset.Rule))
	preset.IsActive = true
	preset.ActivationStartDate = &startDay
	preset.ActivationEndDate = &endDay
	if err := s.presets.SaveActivation(ctx, preset); err != nil {
		return nil, err
	}
	s.dispatcher.Publish(events.Event{Kind: events.ActivityUpdated, UserID: user.ID, GroupID: presetGroupID(preset.ID)})

	result := &ActivationResult{Preset: preset, Created: created}
	if insertErr != nil {
		partial := &PartialMaterializationError{Created: created, Total: len(rows), GroupID: presetGroupID(preset.ID), Err: insertErr}
		log.Printf("activate preset %d user=%d: %v", preset.ID, user.ID, partial)
		return result, partial
	}
	log.Printf("[info] preset activated id=%d user=%d activities=%d until=%s", preset.ID, user.ID, created, endDay.Format(time.DateOnly))
	return result, nil
}

// Deactivate removes every activity the preset materialized and clears its
// window. It returns how many activities were removed.
func (s *PresetService) Deactivate(ctx context.Context, user *model.User, id uint) (int64, error) {
	preset, err := s.presets.FindByID(ctx, user.ID, id)
	if err != nil {
		return 0, err
	}
	n, err := s.removeRows(ctx, user, preset.ID)
	if err != nil {
		return 0, err
	}
	if err := s.clearWindow(ctx, preset); err != nil {
		return 0, err
	}
	log.Printf("[info] preset deactivated id=%d user=%d removed=%d", preset.ID, user.ID, n)
	return n, nil
}

// Delete deactivates and removes a preset.
func (s *PresetService) Delete(ctx context.Context, user *model.User, id uint) error {
	if _, err := s.Deactivate(ctx, user, id); err != nil {
		return err
	}
	return s.presets.Delete(ctx, user.ID, id)
}

// ExpireFinished marks presets whose window ended before now's day inactive.
// Their activities stay as history. It returns how many presets expired.
func (s *PresetService) ExpireFinished(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.presets.ListExpired(ctx, recurrence.CalendarDay(now))
	if err != nil {
		return 0, err
	}
	for i := range expired {
		p := &expired[i]
		p.IsActive = false
		if err := s.presets.SaveActivation(ctx, p); err != nil {
			return i, err
		}
	}
	if len(expired) > 0 {
		log.Printf("[info] expired %d presets", len(expired))
	}
	return len(expired), nil
}

func (s *PresetService) clearWindow(ctx context.Context, preset *model.Preset) error {
	preset.IsActive = false
	preset.ActivationStartDate = nil
	preset.ActivationEndDate = nil
	return s.presets.SaveActivation(ctx, preset)
}

func (s *PresetService) removeRows(ctx context.Context, user *model.User, presetID uint) (int64, error) {
	id := presetID
	n, err := s.activities.Delete(ctx, repository.ActivityFilter{UserID: user.ID, UserPresetID: &id})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.dispatcher.Publish(events.Event{Kind: events.ActivityUpdated, UserID: user.ID, GroupID: presetGroupID(presetID)})
	}
	return n, nil
}

func presetGroupID(id uint) string {
	return fmt.Sprintf("preset-%d", id)
}
