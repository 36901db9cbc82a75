package model

import "time"

// User is a planner owner. Telegram users are keyed by TelegramID, API
// callers by the Subject handed over by the external auth provider.
type User struct {
	ID         uint    `gorm:"primaryKey"`
	TelegramID *int64  `gorm:"uniqueIndex"`
	Subject    *string `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
