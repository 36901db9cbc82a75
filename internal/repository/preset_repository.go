package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mindplanner/internal/model"
)

// PresetRepository stores presets and their template entries.
type PresetRepository struct {
	db *gorm.DB
}

func NewPresetRepository(db *gorm.DB) *PresetRepository {
	return &PresetRepository{db: db}
}

// Create stores the preset together with its activities.
func (r *PresetRepository) Create(ctx context.Context, preset *model.Preset) error {
	if err := r.db.WithContext(ctx).Create(preset).Error; err != nil {
		return fmt.Errorf("create preset: %w", err)
	}
	return nil
}

func (r *PresetRepository) ListByUser(ctx context.Context, userID uint) ([]model.Preset, error) {
	var presets []model.Preset
	if err := r.db.WithContext(ctx).
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return presets, nil
}

func (r *PresetRepository) FindByID(ctx context.Context, userID, id uint) (*model.Preset, error) {
	var preset model.Preset
	if err := r.db.WithContext(ctx).
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ? AND id = ?", userID, id).
		First(&preset).Error; err != nil {
		return nil, notFound(err, "preset")
	}
	return &preset, nil
}

// SaveActivation persists the rule and activation window of a preset.
func (r *PresetRepository) SaveActivation(ctx context.Context, preset *model.Preset) error {
	if err := r.db.WithContext(ctx).Model(preset).Select(
		"rule_type", "rule_count", "rule_custom_interval", "rule_custom_unit",
		"rule_end_condition", "rule_end_date", "rule_end_count",
		"is_active", "activation_start_date", "activation_end_date",
	).Updates(preset).Error; err != nil {
		return fmt.Errorf("save preset activation: %w", err)
	}
	return nil
}

// Delete removes the preset and its template entries.
func (r *PresetRepository) Delete(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&model.Preset{})
		if res.Error != nil {
			return fmt.Errorf("delete preset: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("preset: %w", ErrNotFound)
		}
		if err := tx.Where("preset_id = ?", id).Delete(&model.PresetActivity{}).Error; err != nil {
			return fmt.Errorf("delete preset activities: %w", err)
		}
		return nil
	})
}

func (r *PresetRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Preset{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count presets: %w", err)
	}
	return n, nil
}

// ListExpired returns active presets whose window ended before day.
func (r *PresetRepository) ListExpired(ctx context.Context, day time.Time) ([]model.Preset, error) {
	var presets []model.Preset
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND activation_end_date IS NOT NULL AND activation_end_date < ?", true, day).
		Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("list expired presets: %w", err)
	}
	return presets, nil
}
