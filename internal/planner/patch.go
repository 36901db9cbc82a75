package planner

import (
	"time"

	"github.com/samber/mo"

	"mindplanner/internal/model"
	"mindplanner/internal/recurrence"
)

// Patch is a partial update of an activity. Absent options leave the column
// untouched.
type Patch struct {
	Title           mo.Option[string]
	Category        mo.Option[string]
	ImpactType      mo.Option[string]
	DurationMinutes mo.Option[int]
	Emoji           mo.Option[string]
	Description     mo.Option[string]
	ReminderMinutes mo.Option[int] // <= 0 clears the reminder
	Status          mo.Option[model.ActivityStatus]
	Date            mo.Option[time.Time]
	StartTime       mo.Option[TimeOfDay]
}

// Shared keeps only the attributes that propagate across a group. Each
// occurrence keeps its own date, start time and status.
func (p Patch) Shared() Patch {
	p.Date = mo.None[time.Time]()
	p.StartTime = mo.None[TimeOfDay]()
	p.Status = mo.None[model.ActivityStatus]()
	return p
}

func (p Patch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Columns renders the patch as a column map for a bulk update.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any)
	if v, ok := p.Title.Get(); ok {
		cols["title"] = v
	}
	if v, ok := p.Category.Get(); ok {
		cols["category"] = v
	}
	if v, ok := p.ImpactType.Get(); ok {
		cols["impact_type"] = v
	}
	if v, ok := p.DurationMinutes.Get(); ok {
		cols["duration_minutes"] = v
	}
	if v, ok := p.Emoji.Get(); ok {
		cols["emoji"] = v
	}
	if v, ok := p.Description.Get(); ok {
		cols["description"] = v
	}
	if v, ok := p.ReminderMinutes.Get(); ok {
		if v > 0 {
			cols["reminder_minutes"] = v
		} else {
			cols["reminder_minutes"] = nil
		}
	}
	if v, ok := p.Status.Get(); ok {
		cols["status"] = v
	}
	if v, ok := p.Date.Get(); ok {
		cols["date"] = recurrence.CalendarDay(v)
	}
	if v, ok := p.StartTime.Get(); ok {
		cols["start_time"] = v.String()
	}
	return cols
}

// Apply mutates a in memory the same way Columns would in storage.
func (p Patch) Apply(a *model.Activity) {
	a.Title = p.Title.OrElse(a.Title)
	a.Category = p.Category.OrElse(a.Category)
	a.ImpactType = p.ImpactType.OrElse(a.ImpactType)
	a.DurationMinutes = p.DurationMinutes.OrElse(a.DurationMinutes)
	a.Emoji = p.Emoji.OrElse(a.Emoji)
	a.Description = p.Description.OrElse(a.Description)
	if v, ok := p.ReminderMinutes.Get(); ok {
		if v > 0 {
			a.ReminderMinutes = &v
		} else {
			a.ReminderMinutes = nil
		}
	}
	a.Status = p.Status.OrElse(a.Status)
	if v, ok := p.Date.Get(); ok {
		a.Date = recurrence.CalendarDay(v)
	}
	if v, ok := p.StartTime.Get(); ok {
		s := v.String()
		a.StartTime = &s
	}
}
