package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageCategory
	stageDayPart
	stageDate
	stageRepeat
	stageCount
	stageCustomInterval
	stageCustomUnit
	stageEndCondition
	stageEndDate
	stageEndCount
	stageConfirm
)

type conversationState struct {
	stage conversationStage
	input service.PlanInput
}

// reply is what the bot answers after a conversation step.
type reply struct {
	text   string
	markup interface{}
}

// errRetry marks input the user should re-enter; the message is shown as is.
type errRetry struct {
	msg    string
	markup interface{}
}

func (e *errRetry) Error() string { return e.msg }

func retry(msg string, markup interface{}) error {
	return &errRetry{msg: msg, markup: markup}
}

func newConversation() *conversationState {
	return &conversationState{stage: stageTitle, input: service.PlanInput{Rule: recurrence.Once()}}
}

// step consumes one message of the /plan dialog and returns the next prompt.
// It never touches storage; reaching stageConfirm means the input is complete.
func (s *conversationState) step(text string, now time.Time) (reply, error) {
	text = strings.TrimSpace(text)
	switch s.stage {
	case stageTitle:
		if text == "" {
			return reply{}, retry("The title cannot be empty. What would you like to do?", templateKeyboard())
		}
		if tmpl, ok := templateFromInput(text); ok {
			s.input.Template = tmpl
			s.stage = stageDate
			return reply{text: fmt.Sprintf("%s %s picked.\n<b>When</b> should it start? Send <code>today</code>, <code>tomorrow</code> or a date like <code>2025-11-30</code>.", tmpl.Emoji, escape(tmpl.Title)), markup: dateKeyboard()}, nil
		}
		s.input.Template = planner.Template{Title: text}
		s.stage = stageCategory
		return reply{text: "🏷 Pick a category or send your own (or skip).", markup: categoryKeyboard()}, nil
	case stageCategory:
		if !isSkipInput(text) {
			s.input.Template.Category = text
		}
		s.stage = stageDayPart
		return reply{text: "🕰 Which part of the day?", markup: dayPartKeyboard()}, nil
	case stageDayPart:
		part, ok := dayPartFromInput(text)
		if !ok {
			return reply{}, retry("Pick one of the day parts below.", dayPartKeyboard())
		}
		s.input.Template.DayPart = part
		s.stage = stageDate
		return reply{text: "📅 <b>When</b> should it start? Send <code>today</code>, <code>tomorrow</code> or a date like <code>2025-11-30</code>.", markup: dateKeyboard()}, nil
	case stageDate:
		date, err := parseDay(text, now)
		if err != nil {
			return reply{}, retry("I can't read that date. Use <code>2025-11-30</code>, <code>today</code> or <code>tomorrow</code>.", dateKeyboard())
		}
		s.input.Date = date
		s.stage = stageRepeat
		return reply{text: "🔁 How often should it repeat?", markup: repeatKeyboard()}, nil
	case stageRepeat:
		t, ok := repeatFromInput(text)
		if !ok {
			return reply{}, retry("Pick one of the options below.", repeatKeyboard())
		}
		s.input.Rule = recurrence.Rule{Type: t}
		switch t {
		case recurrence.TypeNone:
			return s.confirm()
		case recurrence.TypeCustom:
			s.stage = stageCustomInterval
			return reply{text: "↔️ Repeat every how many units? (for example <code>2</code>)", markup: tgbotapi.NewRemoveKeyboard(true)}, nil
		default:
			s.stage = stageCount
			return reply{text: fmt.Sprintf("🔢 How many times in total? (1–%d)", recurrence.MaxOccurrences), markup: tgbotapi.NewRemoveKeyboard(true)}, nil
		}
	case stageCount:
		n, ok := parseCount(text)
		if !ok {
			return reply{}, retry(countHint(), nil)
		}
		s.input.Rule.Count = n
		return s.confirm()
	case stageCustomInterval:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			return reply{}, retry("The interval must be a positive number.", nil)
		}
		s.input.Rule.CustomInterval = n
		s.stage = stageCustomUnit
		return reply{text: "📏 Days, weeks, months or years?", markup: unitKeyboard()}, nil
	case stageCustomUnit:
		unit, err := recurrence.ParseUnit(strings.TrimSuffix(strings.ToLower(text), "s"))
		if err != nil || text == "" {
			return reply{}, retry("Pick one of the units below.", unitKeyboard())
		}
		s.input.Rule.CustomUnit = unit
		s.stage = stageEndCondition
		return reply{text: "🏁 When should it stop?", markup: endKeyboard()}, nil
	case stageEndCondition:
		cond, ok := endFromInput(text)
		if !ok {
			return reply{}, retry("Pick one of the options below.", endKeyboard())
		}
		s.input.Rule.EndCondition = cond
		switch cond {
		case recurrence.EndDate:
			s.stage = stageEndDate
			return reply{text: "📅 Last possible date? (for example <code>2025-12-31</code>)", markup: tgbotapi.NewRemoveKeyboard(true)}, nil
		case recurrence.EndCount:
			s.stage = stageEndCount
			return reply{text: fmt.Sprintf("🔢 How many times in total? (1–%d)", recurrence.MaxOccurrences), markup: tgbotapi.NewRemoveKeyboard(true)}, nil
		default:
			return s.confirm()
		}
	case stageEndDate:
		end, err := parseDay(text, now)
		if err != nil {
			return reply{}, retry("I can't read that date. Use <code>2025-12-31</code>.", nil)
		}
		s.input.Rule.EndDate = &end
		if err := s.input.Rule.Validate(s.input.Date); err != nil {
			if errors.Is(err, recurrence.ErrEndBeforeStart) {
				return reply{}, retry(fmt.Sprintf("The end date must not be before %s.", s.input.Date.Format(time.DateOnly)), nil)
			}
			return reply{}, retry(escape(err.Error()), nil)
		}
		return s.confirm()
	case stageEndCount:
		n, ok := parseCount(text)
		if !ok {
			return reply{}, retry(countHint(), nil)
		}
		s.input.Rule.EndCount = n
		return s.confirm()
	default:
		return reply{}, fmt.Errorf("unexpected conversation stage %d", s.stage)
	}
}

func (s *conversationState) confirm() (reply, error) {
	preview, err := service.PreviewDates(s.input.Date, s.input.Rule)
	if err != nil {
		return reply{}, retry(escape(err.Error()), nil)
	}
	s.stage = stageConfirm
	return reply{text: describePlan(s.input, preview), markup: confirmKeyboard()}, nil
}

func templateFromInput(text string) (planner.Template, bool) {
	if tmpl, ok := planner.TemplateByKey(text); ok {
		return tmpl, true
	}
	for _, tmpl := range planner.Templates {
		if strings.EqualFold(text, templateLabel(tmpl)) || strings.EqualFold(text, tmpl.Title) {
			return tmpl, true
		}
	}
	return planner.Template{}, false
}

func dayPartFromInput(text string) (planner.DayPart, bool) {
	if p, err := planner.ParseDayPart(strings.ReplaceAll(text, " ", "_")); err == nil {
		return p, true
	}
	for _, p := range planner.DayParts {
		if strings.EqualFold(text, p.Label()) {
			return p, true
		}
	}
	return "", false
}

func repeatFromInput(text string) (recurrence.Type, bool) {
	lower := strings.ToLower(text)
	for _, opt := range repeatOptions {
		if lower == strings.ToLower(opt.label) {
			return opt.value, true
		}
	}
	if lower == "once" || lower == "no" {
		return recurrence.TypeNone, true
	}
	t, err := recurrence.ParseType(lower)
	if err != nil || lower == "" {
		return "", false
	}
	return t, true
}

func endFromInput(text string) (recurrence.EndCondition, bool) {
	lower := strings.ToLower(text)
	for _, opt := range endOptions {
		if lower == strings.ToLower(opt.label) {
			return opt.value, true
		}
	}
	c, err := recurrence.ParseEndCondition(lower)
	if err != nil || lower == "" {
		return "", false
	}
	return c, true
}

// parseDay accepts today, tomorrow or YYYY-MM-DD relative to now's location.
func parseDay(text string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "today", strings.ToLower(btnToday):
		return recurrence.DateOf(now), nil
	case "tomorrow", strings.ToLower(btnTomorrow):
		return recurrence.DateOf(now).AddDate(0, 0, 1), nil
	}
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(text), now.Location())
}

func parseCount(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > recurrence.MaxOccurrences {
		return 0, false
	}
	return n, true
}

func countHint() string {
	return fmt.Sprintf("Send a number from 1 to %d.", recurrence.MaxOccurrences)
}
