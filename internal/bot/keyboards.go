package bot

import (
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
)

const (
	btnSkip             = "⏭️ Skip"
	btnConfirm          = "✅ Confirm"
	btnCancel           = "↩️ Cancel"
	btnCancelDialog     = "⏪ Stop input"
	btnToday            = "📅 Today"
	btnTomorrow         = "➡️ Tomorrow"
	menuLabelPlan       = "➕ Plan activity"
	menuLabelToday      = "📋 Today"
	menuLabelPresets    = "🧩 Presets"
	menuLabelHelp       = "ℹ️ Help"
	menuLabelCategories = "📂 Categories"
)

type option[T any] struct {
	label string
	value T
}

var repeatOptions = []option[recurrence.Type]{
	{"1️⃣ Once", recurrence.TypeNone},
	{"🔁 Daily", recurrence.TypeDaily},
	{"📆 Weekly", recurrence.TypeWeekly},
	{"🗓 Monthly", recurrence.TypeMonthly},
	{"⚙️ Custom", recurrence.TypeCustom},
}

var endOptions = []option[recurrence.EndCondition]{
	{"♾ Never", recurrence.EndNever},
	{"📅 On a date", recurrence.EndDate},
	{"🔢 After N times", recurrence.EndCount},
}

func replyKeyboard(rows ...[]tgbotapi.KeyboardButton) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPlan),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPresets),
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// templateKeyboard offers the activity catalogue two per row.
func templateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keys := make([]string, 0, len(planner.Templates))
	for key := range planner.Templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(keys); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(templateLabel(planner.Templates[keys[i]])))
		if i+1 < len(keys) {
			row = append(row, tgbotapi.NewKeyboardButton(templateLabel(planner.Templates[keys[i+1]])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	return replyKeyboard(rows...)
}

func templateLabel(t planner.Template) string {
	return strings.TrimSpace(t.Emoji + " " + t.Title)
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("movement"),
			tgbotapi.NewKeyboardButton("mindfulness"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("rest"),
			tgbotapi.NewKeyboardButton("social"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
}

func dayPartKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, p := range planner.DayParts {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(p.Label())))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	return replyKeyboard(rows...)
}

func dateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnTomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
}

func repeatKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(repeatOptions[0].label),
			tgbotapi.NewKeyboardButton(repeatOptions[1].label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(repeatOptions[2].label),
			tgbotapi.NewKeyboardButton(repeatOptions[3].label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(repeatOptions[4].label),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
}

func unitKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Days"),
			tgbotapi.NewKeyboardButton("Weeks"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Months"),
			tgbotapi.NewKeyboardButton("Years"),
		),
	)
}

func endKeyboard() tgbotapi.ReplyKeyboardMarkup {
	row := tgbotapi.NewKeyboardButtonRow()
	for _, opt := range endOptions {
		row = append(row, tgbotapi.NewKeyboardButton(opt.label))
	}
	return replyKeyboard(row, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
}

// scopeKeyboard asks whether a change reaches one occurrence or the series.
func scopeKeyboard(action string, id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Only this one", callbackData(action, planner.ScopeSingle, id)),
			tgbotapi.NewInlineKeyboardButtonData("♻️ Whole series", callbackData(action, planner.ScopeGroup, id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancel),
		),
	)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "stop"
}
