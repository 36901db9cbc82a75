package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/service"
)

const (
	cbDone       = "done"
	cbDelete     = "del"
	cbRename     = "ren"
	cbActivate   = "act"
	cbDeactivate = "deact"
	cbCancel     = "cancel"
)

// callbackData packs an inline button payload as action:scope:id.
func callbackData(action string, scope planner.Scope, id uint) string {
	return fmt.Sprintf("%s:%s:%d", action, scope, id)
}

type callback struct {
	action string
	scope  planner.Scope
	id     uint
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	if len(parts) == 1 && parts[0] == cbCancel {
		return callback{action: cbCancel}, nil
	}
	if len(parts) != 3 {
		return callback{}, fmt.Errorf("malformed callback %q", data)
	}
	id, err := parseID(parts[2])
	if err != nil {
		return callback{}, err
	}
	cb := callback{action: parts[0], id: id}
	if parts[1] != "" {
		scope, err := planner.ParseScope(parts[1])
		if err != nil {
			return callback{}, err
		}
		cb.scope = scope
	}
	return cb, nil
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", raw, err)
	}
	return uint(value), nil
}

// describeRule renders a rule in one short human phrase.
func describeRule(rule recurrence.Rule) string {
	rule = rule.Normalize()
	switch rule.Type {
	case recurrence.TypeDaily:
		return fmt.Sprintf("every day, %d times", rule.Count)
	case recurrence.TypeWeekly:
		return fmt.Sprintf("every week, %d times", rule.Count)
	case recurrence.TypeMonthly:
		return fmt.Sprintf("every month, %d times", rule.Count)
	case recurrence.TypeCustom:
		every := fmt.Sprintf("every %s", rule.CustomUnit)
		if rule.CustomInterval > 1 {
			every = fmt.Sprintf("every %d %ss", rule.CustomInterval, rule.CustomUnit)
		}
		switch rule.EndCondition {
		case recurrence.EndDate:
			if rule.EndDate != nil {
				return fmt.Sprintf("%s until %s", every, rule.EndDate.Format(time.DateOnly))
			}
			return every
		case recurrence.EndCount:
			return fmt.Sprintf("%s, %d times", every, rule.EndCount)
		default:
			return fmt.Sprintf("%s (up to %d times)", every, recurrence.MaxOccurrences)
		}
	default:
		return "once"
	}
}

func describePlan(input service.PlanInput, preview *service.Preview) string {
	tmpl := input.Template.Normalize()
	var b strings.Builder
	b.WriteString("📝 <b>Check your plan</b>\n")
	b.WriteString(fmt.Sprintf("• <b>Activity:</b> %s\n", escape(strings.TrimSpace(tmpl.Emoji+" "+normalizeTitle(tmpl.Title)))))
	if tmpl.Category != "" {
		b.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", escape(tmpl.Category)))
	}
	b.WriteString(fmt.Sprintf("• <b>Time:</b> %s\n", tmpl.DayPart.Label()))
	b.WriteString(fmt.Sprintf("• <b>Repeat:</b> %s\n", escape(describeRule(input.Rule))))
	b.WriteString(fmt.Sprintf("• <b>From:</b> %s\n", input.Date.Format("Mon, 02 Jan 2006")))
	if len(preview.Dates) > 1 {
		b.WriteString(fmt.Sprintf("• <b>Until:</b> %s (%d activities)\n", preview.ActivationEnd.Format("Mon, 02 Jan 2006"), len(preview.Dates)))
	}
	return strings.TrimSpace(b.String())
}

func describePreset(p model.Preset) string {
	var b strings.Builder
	status := "💤"
	if p.IsActive {
		status = "✅"
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", status, p.ID, escape(p.Name)))
	if p.Description != "" {
		b.WriteString(fmt.Sprintf("   %s\n", escape(p.Description)))
	}
	b.WriteString(fmt.Sprintf("   🔁 %s\n", escape(describeRule(p.Rule))))
	for _, pa := range p.Activities {
		tmpl := planner.PresetActivityTemplate(pa)
		b.WriteString(fmt.Sprintf("   • %s\n", escape(templateLabel(tmpl))))
	}
	if p.IsActive && p.ActivationStartDate != nil && p.ActivationEndDate != nil {
		b.WriteString(fmt.Sprintf("   📅 %s → %s\n", p.ActivationStartDate.Format(time.DateOnly), p.ActivationEndDate.Format(time.DateOnly)))
	}
	return b.String()
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
