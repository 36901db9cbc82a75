package planner

import (
	"errors"
	"strings"

	"mindplanner/internal/model"
	"mindplanner/internal/recurrence"
)

var ErrTitleRequired = errors.New("title is required")

// Template carries the attributes copied onto every materialized activity.
type Template struct {
	Key             string     `json:"key,omitempty"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	ImpactType      string     `json:"impactType"`
	DurationMinutes int        `json:"durationMinutes"`
	Emoji           string     `json:"emoji"`
	Description     string     `json:"description,omitempty"`
	ReminderMinutes *int       `json:"reminderMinutes,omitempty"`
	DayPart         DayPart    `json:"dayPart"`
	StartTime       *TimeOfDay `json:"startTime,omitempty"` // overrides DayPart
}

// Normalize trims text fields and fills defaults.
func (t Template) Normalize() Template {
	t.Title = strings.TrimSpace(t.Title)
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	if t.ImpactType == "" {
		t.ImpactType = model.ImpactPositive
	}
	if t.DurationMinutes < 0 {
		t.DurationMinutes = 0
	}
	if t.DayPart == "" {
		t.DayPart = Morning
	}
	return t
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleRequired
	}
	if t.StartTime == nil {
		if _, err := ParseDayPart(string(t.DayPart)); err != nil {
			return err
		}
	}
	return nil
}

// Templates is the built-in activity catalogue offered when planning.
var Templates = map[string]Template{
	"walk":        {Key: "walk", Title: "Walk outside", Category: "movement", ImpactType: model.ImpactPositive, DurationMinutes: 30, Emoji: "🚶", DayPart: Afternoon},
	"meditation":  {Key: "meditation", Title: "Meditation", Category: "mindfulness", ImpactType: model.ImpactPositive, DurationMinutes: 10, Emoji: "🧘", DayPart: Morning},
	"breathing":   {Key: "breathing", Title: "Breathing exercise", Category: "mindfulness", ImpactType: model.ImpactPositive, DurationMinutes: 5, Emoji: "🌬", DayPart: EarlyMorning},
	"journaling":  {Key: "journaling", Title: "Journaling", Category: "reflection", ImpactType: model.ImpactPositive, DurationMinutes: 15, Emoji: "📓", DayPart: Evening},
	"stretching":  {Key: "stretching", Title: "Stretching", Category: "movement", ImpactType: model.ImpactPositive, DurationMinutes: 15, Emoji: "🤸", DayPart: Morning},
	"reading":     {Key: "reading", Title: "Reading", Category: "rest", ImpactType: model.ImpactPositive, DurationMinutes: 30, Emoji: "📖", DayPart: Night},
	"call_friend": {Key: "call_friend", Title: "Call a friend", Category: "social", ImpactType: model.ImpactPositive, DurationMinutes: 20, Emoji: "📞", DayPart: Evening},
	"screen_off":  {Key: "screen_off", Title: "Screens off", Category: "sleep", ImpactType: model.ImpactPositive, DurationMinutes: 60, Emoji: "📵", DayPart: Night},
}

// TemplateByKey looks up a catalogue entry.
func TemplateByKey(key string) (Template, bool) {
	t, ok := Templates[strings.ToLower(strings.TrimSpace(key))]
	return t, ok
}

// PresetActivityTemplate turns a stored preset entry into a template,
// starting from its catalogue entry when it references one.
func PresetActivityTemplate(pa model.PresetActivity) Template {
	t, _ := TemplateByKey(pa.TemplateKey)
	if pa.Title != "" {
		t.Title = pa.Title
	}
	if pa.Category != "" {
		t.Category = pa.Category
	}
	if pa.ImpactType != "" {
		t.ImpactType = pa.ImpactType
	}
	if pa.Emoji != "" {
		t.Emoji = pa.Emoji
	}
	if pa.DurationMinutes > 0 {
		t.DurationMinutes = pa.DurationMinutes
	}
	if pa.DayPart != "" {
		t.DayPart = DayPart(pa.DayPart)
	}
	return t.Normalize()
}

// DefaultPresets is seeded for new users.
func DefaultPresets() []model.Preset {
	return []model.Preset{
		{
			Name:        "Calm mornings",
			Description: "Breathing and meditation every day for two weeks.",
			Rule:        recurrence.Rule{Type: recurrence.TypeDaily, Count: 14},
			Activities: []model.PresetActivity{
				{Position: 0, TemplateKey: "breathing", DayPart: string(EarlyMorning), Repetitions: 1},
				{Position: 1, TemplateKey: "meditation", DayPart: string(Morning), Repetitions: 1},
			},
		},
		{
			Name:        "Active week",
			Description: "Move twice a day for a week.",
			Rule:        recurrence.Rule{Type: recurrence.TypeDaily, Count: 7},
			Activities: []model.PresetActivity{
				{Position: 0, TemplateKey: "stretching", DayPart: string(Morning), Repetitions: 1},
				{Position: 1, TemplateKey: "walk", DayPart: string(Afternoon), DurationMinutes: 45, Repetitions: 1},
			},
		},
		{
			Name:        "Evening wind-down",
			Description: "Journal and switch screens off once a week for a month.",
			Rule: recurrence.Rule{
				Type:           recurrence.TypeCustom,
				CustomInterval: 1,
				CustomUnit:     recurrence.UnitWeek,
				EndCondition:   recurrence.EndCount,
				EndCount:       4,
			},
			Activities: []model.PresetActivity{
				{Position: 0, TemplateKey: "journaling", DayPart: string(Evening), Repetitions: 1},
				{Position: 1, TemplateKey: "screen_off", DayPart: string(Night), Repetitions: 1},
			},
		},
	}
}
