package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/mo"

	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/repository"
	"mindplanner/internal/service"
)

type confirmationRequest struct {
	activityID uint
}

// Services bundles what the bot needs from the service layer.
type Services struct {
	Users      *repository.UserRepository
	Categories *service.CategoryService
	Activities *service.ActivityService
	Presets    *service.PresetService
	Reminders  *service.ReminderService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	loc           *time.Location
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	renames       map[int64]string
	mu            sync.Mutex
}

func New(token string, svc Services, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:           api,
		svc:           svc,
		loc:           loc,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		renames:       make(map[int64]string),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) now() time.Time {
	return time.Now().In(b.loc)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input stopped. Start again whenever you like.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		log.Printf("[info] conversation step %d from %d", state.stage, msg.From.ID)
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Send /plan to add an activity or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "plan":
		return b.startPlanConversation(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "rename":
		return b.handleRename(ctx, msg)
	case "presets":
		return b.handlePresets(ctx, msg)
	case "activate":
		return b.handleActivate(ctx, msg)
	case "deactivate":
		return b.handleDeactivate(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input stopped.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Take a look at /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "friend"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I help you plan small things that keep you well.</b>\n\n"+
			"• /plan to schedule an activity, once or repeating\n"+
			"• /today for what's planned today\n"+
			"• /presets for ready-made routines\n"+
			"• /help for everything else",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /plan — plan an activity step by step\n" +
		"• /today — today's activities with buttons\n" +
		"• /done &lt;id&gt; — mark an activity done\n" +
		"• /delete &lt;id&gt; — delete one activity or its whole series\n" +
		"• /rename &lt;id&gt; &lt;title&gt; — rename one activity or its whole series\n" +
		"• /presets — list routines\n" +
		"• /activate &lt;id&gt; [YYYY-MM-DD] — start a routine\n" +
		"• /deactivate &lt;id&gt; — stop a routine and remove its activities\n" +
		"• /categories — your categories\n" +
		"• /report — today's summary\n" +
		"• /cancel — stop the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Reminders.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the summary: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startPlanConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start plan conversation user=%d", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, newConversation())
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Let's plan something.\n<b>Step 1:</b> pick an activity or type your own title.", templateKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	if state.stage == stageConfirm {
		switch {
		case isConfirmInput(msg.Text):
			b.clearConversation(msg.From.ID)
			return b.finishPlan(ctx, msg.From, state.input, msg.Chat.ID)
		case isCancelInput(msg.Text):
			b.clearConversation(msg.From.ID)
			return b.sendTextWithRemove(msg.Chat.ID, "Nothing was planned.")
		default:
			return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the plan.", confirmKeyboard())
		}
	}

	next, err := state.step(msg.Text, b.now())
	if err != nil {
		var r *errRetry
		if errors.As(err, &r) {
			if r.markup != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, r.msg, r.markup)
			}
			return b.sendWithReplyMarkup(msg.Chat.ID, r.msg, tgbotapi.NewRemoveKeyboard(true))
		}
		b.clearConversation(msg.From.ID)
		log.Printf("conversation user=%d: %v", msg.From.ID, err)
		return b.sendText(msg.Chat.ID, "The dialog was reset. Try /plan again.")
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, next.text, next.markup)
}

func (b *Bot) finishPlan(ctx context.Context, from *tgbotapi.User, input service.PlanInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	res, err := b.svc.Activities.Plan(ctx, user, input)
	if err != nil {
		var partial *service.PartialMaterializationError
		if !errors.As(err, &partial) {
			return b.sendTextWithRemove(chatID, fmt.Sprintf("Could not save the plan: %s", escape(err.Error())))
		}
		if sendErr := b.sendTextWithRemove(chatID, fmt.Sprintf("⚠️ Only %d of %d activities were saved. Try planning the rest again later.", partial.Created, partial.Total)); sendErr != nil {
			return sendErr
		}
	} else {
		text := fmt.Sprintf("✅ <b>Planned</b> %s", escape(normalizeTitle(input.Template.Title)))
		if n := len(res.Activities); n > 1 {
			text += fmt.Sprintf(" · %d times, until %s", n, res.Activities[n-1].Date.Format(time.DateOnly))
		}
		if err := b.sendTextWithRemove(chatID, text); err != nil {
			return err
		}
	}
	return b.sendDay(ctx, chatID, user, input.Date)
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	log.Printf("[info] list today for user=%d", user.ID)
	return b.sendDay(ctx, msg.Chat.ID, user, b.now())
}

// sendDay lists one day's activities with done and delete buttons.
func (b *Bot) sendDay(ctx context.Context, chatID int64, user *model.User, day time.Time) error {
	d := recurrence.CalendarDay(day)
	activities, err := b.svc.Activities.List(ctx, user, &d, &d)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load activities: %s", escape(err.Error())))
	}
	if len(activities) == 0 {
		return b.sendText(chatID, fmt.Sprintf("Nothing planned for %s. Add something with /plan.", day.Format("Mon, 02 Jan")))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>%s</b>\n\n", day.Format("Mon, 02 Jan 2006")))
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, a := range activities {
		builder.WriteString(service.FormatActivity(a))
		var row []tgbotapi.InlineKeyboardButton
		if a.Status != model.StatusCompleted {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", a.ID, shortTitle(a.Title, 20)), callbackData(cbDone, "", a.ID)))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑", callbackData(cbDelete, "", a.ID)))
		buttons = append(buttons, row)
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the activity ID: /done 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.completeActivity(ctx, msg.Chat.ID, user, id)
}

func (b *Bot) completeActivity(ctx context.Context, chatID int64, user *model.User, id uint) error {
	a, err := b.svc.Activities.SetStatus(ctx, user, id, model.StatusCompleted)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	log.Printf("[info] activity completed id=%d user=%d", a.ID, user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ %s done. Well done!", escape(normalizeTitle(a.Title))))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the activity ID: /delete 12")
	}
	return b.askDelete(ctx, msg.Chat.ID, msg.From, id)
}

// askDelete asks for the scope when the activity belongs to a series and for
// a plain confirmation otherwise.
func (b *Bot) askDelete(ctx context.Context, chatID int64, from *tgbotapi.User, id uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	a, err := b.svc.Activities.Get(ctx, user, id)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}

	if planner.NeedsScopeChoice(*a) {
		text := fmt.Sprintf("«%s» (#%d) is part of a series. Delete only this one or the whole series?", escape(normalizeTitle(a.Title)), a.ID)
		return b.sendWithReplyMarkup(chatID, text, scopeKeyboard(cbDelete, a.ID))
	}

	b.setConfirmation(from.ID, confirmationRequest{activityID: a.ID})
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete «%s» (#%d)?", escape(normalizeTitle(a.Title)), a.ID), confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	switch {
	case isConfirmInput(msg.Text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteActivity(ctx, msg.Chat.ID, msg.From, req.activityID, planner.ScopeSingle)
	case isCancelInput(msg.Text):
		b.clearConfirmation(msg.From.ID)
		return b.sendTextWithRemove(msg.Chat.ID, "Kept it.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteActivity(ctx context.Context, chatID int64, from *tgbotapi.User, id uint, scope planner.Scope) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	n, err := b.svc.Activities.Delete(ctx, user, id, scope)
	if err != nil {
		return b.sendTextWithRemove(chatID, errorText(err))
	}
	log.Printf("[info] activity deleted id=%d user=%d scope=%s removed=%d", id, user.ID, scope, n)
	if n > 1 {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Deleted the series, %d activities.", n))
	}
	return b.sendTextWithRemove(chatID, "🗑 Deleted.")
}

func (b *Bot) handleRename(ctx context.Context, msg *tgbotapi.Message) error {
	rawID, title, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	id, err := parseID(rawID)
	title = strings.TrimSpace(title)
	if err != nil || title == "" {
		return b.sendText(msg.Chat.ID, "Usage: /rename 12 Evening walk")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	a, err := b.svc.Activities.Get(ctx, user, id)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	if planner.NeedsScopeChoice(*a) {
		b.setRename(msg.From.ID, title)
		text := fmt.Sprintf("Rename only «%s» (#%d) or the whole series?", escape(normalizeTitle(a.Title)), a.ID)
		return b.sendWithReplyMarkup(msg.Chat.ID, text, scopeKeyboard(cbRename, a.ID))
	}
	return b.renameActivity(ctx, msg.Chat.ID, user, id, planner.ScopeSingle, title)
}

func (b *Bot) renameActivity(ctx context.Context, chatID int64, user *model.User, id uint, scope planner.Scope, title string) error {
	n, err := b.svc.Activities.Update(ctx, user, id, scope, planner.Patch{Title: mo.Some(title)})
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, fmt.Sprintf("✏️ Renamed %d activities to «%s».", n, escape(title)))
}

func (b *Bot) handlePresets(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	presets, err := b.svc.Presets.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load presets: %s", escape(err.Error())))
	}
	if len(presets) == 0 {
		return b.sendText(msg.Chat.ID, "No presets yet.")
	}

	var builder strings.Builder
	builder.WriteString("🧩 <b>Presets</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, p := range presets {
		builder.WriteString(describePreset(p))
		builder.WriteByte('\n')
		if p.IsActive {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏹ Stop #%d · %s", p.ID, shortTitle(p.Name, 20)), callbackData(cbDeactivate, "", p.ID))))
		} else {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("▶️ Start #%d · %s", p.ID, shortTitle(p.Name, 20)), callbackData(cbActivate, "", p.ID))))
		}
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleActivate(ctx context.Context, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		return b.sendText(msg.Chat.ID, "Give the preset ID: /activate 2 [2025-11-30]")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The preset ID must be a number.")
	}
	start := b.now()
	if len(fields) > 1 {
		if start, err = parseDay(fields[1], b.now()); err != nil {
			return b.sendText(msg.Chat.ID, "Use a date like <code>2025-11-30</code>.")
		}
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.activatePreset(ctx, msg.Chat.ID, user, id, start)
}

func (b *Bot) activatePreset(ctx context.Context, chatID int64, user *model.User, id uint, start time.Time) error {
	res, err := b.svc.Presets.Activate(ctx, user, id, start, nil)
	if err != nil {
		var partial *service.PartialMaterializationError
		if !errors.As(err, &partial) {
			return b.sendText(chatID, errorText(err))
		}
		return b.sendText(chatID, fmt.Sprintf("⚠️ «%s» started, but only %d of %d activities were saved.", escape(res.Preset.Name), partial.Created, partial.Total))
	}
	return b.sendText(chatID, fmt.Sprintf("▶️ «%s» started: %d activities until %s.", escape(res.Preset.Name), res.Created, res.Preset.ActivationEndDate.Format(time.DateOnly)))
}

func (b *Bot) handleDeactivate(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the preset ID: /deactivate 2")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.deactivatePreset(ctx, msg.Chat.ID, user, id)
}

func (b *Bot) deactivatePreset(ctx context.Context, chatID int64, user *model.User, id uint) error {
	n, err := b.svc.Presets.Deactivate(ctx, user, id)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	return b.sendText(chatID, fmt.Sprintf("⏹ Stopped. %d planned activities removed.", n))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.svc.Categories.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load categories: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet. They appear as you plan activities.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Categories</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", escape(strings.TrimSpace(cat.Name))))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data, err := parseCallback(cb.Data)
	if err != nil {
		return nil
	}
	log.Printf("[info] callback %s user=%d id=%d scope=%s", data.action, cb.From.ID, data.id, data.scope)

	chatID := cb.Message.Chat.ID
	switch data.action {
	case cbDone:
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.completeActivity(ctx, chatID, user, data.id)
	case cbDelete:
		if data.scope == "" {
			return b.askDelete(ctx, chatID, cb.From, data.id)
		}
		return b.deleteActivity(ctx, chatID, cb.From, data.id, data.scope)
	case cbRename:
		title, ok := b.takeRename(cb.From.ID)
		if !ok {
			return b.sendText(chatID, "That rename has expired. Send /rename again.")
		}
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.renameActivity(ctx, chatID, user, data.id, data.scope, title)
	case cbActivate:
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.activatePreset(ctx, chatID, user, data.id, b.now())
	case cbDeactivate:
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.deactivatePreset(ctx, chatID, user, data.id)
	default:
		b.takeRename(cb.From.ID)
		return nil
	}
}

// SendDailyReports sends a summary to every Telegram user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.svc.Users.ListTelegramUsers(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.svc.Reminders.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("build summary for user %d: %v", *user.TelegramID, err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			log.Printf("send summary to %d: %v", *user.TelegramID, err)
		}
	}
	return nil
}

// ensureUser upserts the Telegram user and seeds presets on first contact.
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	user, created, err := b.svc.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
	if err != nil {
		return nil, err
	}
	if created {
		if err := b.svc.Presets.SeedDefaults(ctx, user); err != nil {
			log.Printf("seed presets for user %d: %v", user.ID, err)
		}
	}
	return user, nil
}

func errorText(err error) string {
	var partial *service.PartialMaterializationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "Not found. It may have been deleted already."
	case errors.As(err, &partial):
		return fmt.Sprintf("⚠️ Only %d of %d activities were saved.", partial.Created, partial.Total)
	case errors.Is(err, service.ErrEmptyPatch):
		return "Nothing to change for the whole series."
	case errors.Is(err, service.ErrPresetEmpty):
		return "This preset has no activities."
	case errors.Is(err, recurrence.ErrEndBeforeStart):
		return "The end date is before the start date."
	default:
		return fmt.Sprintf("Error: %s", escape(err.Error()))
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if b.getConversation(msg.From.ID) != nil {
		return false, nil
	}
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelPlan):
		return true, b.startPlanConversation(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelPresets):
		return true, b.handlePresets(ctx, msg)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Main menu")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setRename(userID int64, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renames[userID] = title
}

func (b *Bot) takeRename(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	title, ok := b.renames[userID]
	delete(b.renames, userID)
	return title, ok
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
