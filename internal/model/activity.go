package model

import "time"

type ActivityStatus string

const (
	StatusPlanned   ActivityStatus = "planned"
	StatusCompleted ActivityStatus = "completed"
)

// Impact types describe how an activity tends to affect the user's mood.
const (
	ImpactPositive = "positive"
	ImpactNeutral  = "neutral"
	ImpactNegative = "negative"
)

// Activity is one dated calendar entry. Rows produced together by a
// recurrence rule share RecurrenceGroupID; rows produced by an activated
// preset carry its UserPresetID. One-off rows carry neither.
type Activity struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"index" json:"userId"`
	Title             string         `gorm:"size:200;not null" json:"title"`
	Category          string         `gorm:"size:100" json:"category"`
	ImpactType        string         `gorm:"size:20" json:"impactType"`
	DurationMinutes   int            `json:"durationMinutes"`
	Emoji             string         `gorm:"size:16" json:"emoji"`
	Description       string         `gorm:"size:1000" json:"description,omitempty"`
	Date              time.Time      `gorm:"index" json:"date"`
	StartTime         *string        `gorm:"size:5" json:"startTime,omitempty"` // HH:MM
	Status            ActivityStatus `gorm:"size:20;default:planned" json:"status"`
	ReminderMinutes   *int           `json:"reminderMinutes,omitempty"`
	RecurrenceGroupID *string        `gorm:"size:36;index" json:"recurrenceGroupId,omitempty"`
	UserPresetID      *uint          `gorm:"index" json:"userPresetId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// InGroup reports whether the activity belongs to a recurrence group or an
// activated preset.
func (a Activity) InGroup() bool {
	return a.RecurrenceGroupID != nil || a.UserPresetID != nil
}
