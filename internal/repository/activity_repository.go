package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mindplanner/internal/model"
	"mindplanner/internal/recurrence"
)

// DefaultChunkSize is how many activities go into one INSERT statement.
const DefaultChunkSize = 100

var ErrUnboundedFilter = errors.New("filter must name ids, a recurrence group or a preset")

// ActivityFilter selects a user's activities. Zero fields do not filter.
type ActivityFilter struct {
	UserID            uint
	IDs               []uint
	RecurrenceGroupID *string
	UserPresetID      *uint
	From              *time.Time // inclusive, compared by calendar day
	To                *time.Time // inclusive, compared by calendar day
	Status            model.ActivityStatus
}

func (f ActivityFilter) bounded() bool {
	return len(f.IDs) > 0 || f.RecurrenceGroupID != nil || f.UserPresetID != nil
}

func (f ActivityFilter) apply(db *gorm.DB) *gorm.DB {
	db = db.Where("user_id = ?", f.UserID)
	if len(f.IDs) > 0 {
		db = db.Where("id IN ?", f.IDs)
	}
	if f.RecurrenceGroupID != nil {
		db = db.Where("recurrence_group_id = ?", *f.RecurrenceGroupID)
	}
	if f.UserPresetID != nil {
		db = db.Where("user_preset_id = ?", *f.UserPresetID)
	}
	if f.From != nil {
		db = db.Where("date >= ?", recurrence.CalendarDay(*f.From))
	}
	if f.To != nil {
		db = db.Where("date <= ?", recurrence.CalendarDay(*f.To))
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	return db
}

// ActivityRepository is the record-oriented client for activities.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// InsertBatch inserts rows in chunks of chunkSize. Chunks are independent:
// a failing chunk stops the batch but earlier chunks stay committed. It
// returns how many rows were inserted; their IDs are filled in place.
func (r *ActivityRepository) InsertBatch(ctx context.Context, rows []model.Activity, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	inserted := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		if err := r.db.WithContext(ctx).Create(&chunk).Error; err != nil {
			return inserted, fmt.Errorf("insert activities %d-%d: %w", start+1, end, err)
		}
		inserted += len(chunk)
	}
	return inserted, nil
}

func (r *ActivityRepository) FindByID(ctx context.Context, userID, id uint) (*model.Activity, error) {
	var activity model.Activity
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&activity).Error; err != nil {
		return nil, notFound(err, "activity")
	}
	return &activity, nil
}

// Select returns matching rows ordered by date and start time.
func (r *ActivityRepository) Select(ctx context.Context, filter ActivityFilter) ([]model.Activity, error) {
	var activities []model.Activity
	if err := filter.apply(r.db.WithContext(ctx)).
		Order("date ASC, start_time ASC, id ASC").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	return activities, nil
}

// Update applies columns to every matching row and returns how many changed.
func (r *ActivityRepository) Update(ctx context.Context, filter ActivityFilter, columns map[string]any) (int64, error) {
	if !filter.bounded() {
		return 0, ErrUnboundedFilter
	}
	if len(columns) == 0 {
		return 0, nil
	}
	res := filter.apply(r.db.WithContext(ctx).Model(&model.Activity{})).Updates(columns)
	if res.Error != nil {
		return 0, fmt.Errorf("update activities: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes every matching row and returns how many were removed.
func (r *ActivityRepository) Delete(ctx context.Context, filter ActivityFilter) (int64, error) {
	if !filter.bounded() {
		return 0, ErrUnboundedFilter
	}
	res := filter.apply(r.db.WithContext(ctx)).Delete(&model.Activity{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete activities: %w", res.Error)
	}
	return res.RowsAffected, nil
}
