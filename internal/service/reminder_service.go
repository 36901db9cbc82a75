package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"mindplanner/internal/model"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	activities *repository.ActivityRepository
	presets    *repository.PresetRepository
}

func NewReminderService(activities *repository.ActivityRepository, presets *repository.PresetRepository) *ReminderService {
	return &ReminderService{activities: activities, presets: presets}
}

// DailySummary lists the user's activities for now's day and the presets
// whose window ends today.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	today := recurrence.CalendarDay(now)
	activities, err := s.activities.Select(ctx, repository.ActivityFilter{UserID: user.ID, From: &today, To: &today})
	if err != nil {
		return "", err
	}

	presets, err := s.presets.ListByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Today's plan</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	if len(activities) == 0 {
		builder.WriteString("— nothing planned, a good day to rest\n")
	} else {
		done := 0
		for _, a := range activities {
			if a.Status == model.StatusCompleted {
				done++
			}
			builder.WriteString(FormatActivity(a))
		}
		builder.WriteString(fmt.Sprintf("\n✅ %d of %d done\n", done, len(activities)))
	}

	var ending []string
	for _, p := range presets {
		if p.IsActive && p.ActivationEndDate != nil && recurrence.CalendarDay(*p.ActivationEndDate).Equal(today) {
			ending = append(ending, html.EscapeString(p.Name))
		}
	}
	if len(ending) > 0 {
		builder.WriteString(fmt.Sprintf("\n⏳ Last day of: %s\n", strings.Join(ending, ", ")))
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatActivity renders one activity line with HTML escaping for Telegram.
func FormatActivity(a model.Activity) string {
	var sb strings.Builder

	icon := "🟢"
	if a.Status == model.StatusCompleted {
		icon = "✅"
	}
	sb.WriteString(icon)
	if a.StartTime != nil {
		sb.WriteString(" " + *a.StartTime)
	}
	if a.Emoji != "" {
		sb.WriteString(" " + a.Emoji)
	}
	sb.WriteString(" " + html.EscapeString(strings.TrimSpace(a.Title)))

	if c := strings.TrimSpace(a.Category); c != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(c)))
	}
	if a.DurationMinutes > 0 {
		sb.WriteString(fmt.Sprintf(" · %d min", a.DurationMinutes))
	}
	if a.InGroup() {
		sb.WriteString(" ♻️")
	}
	sb.WriteString(fmt.Sprintf(" [#%d]", a.ID))

	sb.WriteByte('\n')
	return sb.String()
}
