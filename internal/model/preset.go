package model

import (
	"time"

	"mindplanner/internal/recurrence"
)

// Preset is a saved bundle of activity templates and a recurrence rule. While
// active, its materialized rows are tagged with the preset ID.
type Preset struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	UserID              uint             `gorm:"index" json:"userId"`
	Name                string           `gorm:"size:200;not null" json:"name"`
	Description         string           `gorm:"size:1000" json:"description,omitempty"`
	Activities          []PresetActivity `gorm:"foreignKey:PresetID;constraint:OnDelete:CASCADE" json:"activities"`
	Rule                recurrence.Rule  `gorm:"embedded;embeddedPrefix:rule_" json:"recurrenceRule"`
	IsActive            bool             `gorm:"default:false" json:"isActive"`
	ActivationStartDate *time.Time       `json:"activationStartDate,omitempty"`
	ActivationEndDate   *time.Time       `json:"activationEndDate,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// PresetActivity is one template entry of a preset, ordered by Position.
type PresetActivity struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	PresetID        uint   `gorm:"index" json:"presetId"`
	Position        int    `json:"position"`
	TemplateKey     string `gorm:"size:50" json:"templateKey,omitempty"`
	Title           string `gorm:"size:200" json:"title"`
	Category        string `gorm:"size:100" json:"category"`
	ImpactType      string `gorm:"size:20" json:"impactType"`
	Emoji           string `gorm:"size:16" json:"emoji"`
	DayPart         string `gorm:"size:20" json:"dayPart"`
	DurationMinutes int    `json:"durationMinutes"`
	Repetitions     int    `gorm:"default:1" json:"repetitions"`
}
