package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/service"
)

// Engine is what the bot needs from the care engine.
type Engine interface {
	MarkComplete(ctx context.Context, scheduleID string, source model.CompletionSource) error
	Snooze(ctx context.Context, scheduleID string, option service.SnoozeOption) error
	ResolveRecommendation(ctx context.Context, scheduleID string, accept bool) error
	DueBatch(ctx context.Context) (service.Batch, error)
	PauseReminders(ctx context.Context) error
	ResumeReminders(ctx context.Context) error
	SetReminderTime(ctx context.Context, raw string) (time.Time, error)
	Preferences(ctx context.Context) (bool, model.ClockTime, error)
	ListPlants(ctx context.Context) ([]model.Plant, error)
	SchedulesForPlant(ctx context.Context, plantID string) ([]model.CareSchedule, error)
}

// Subscribers registers and removes the chats that get reminders.
type Subscribers interface {
	SubscriberLister
	UpsertFromTelegram(ctx context.Context, chatID int64, firstName, username string) (*model.Subscriber, error)
	Delete(ctx context.Context, chatID int64) error
}

// poller is the Telegram API surface used by the bot.
type poller interface {
	sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot turns Telegram commands and button presses into engine calls.
type Bot struct {
	api         poller
	engine      Engine
	subscribers Subscribers
	notifier    *Notifier
	loc         *time.Location
}

// NewAPI authorizes against Telegram.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("bot authorized", "account", api.Self.UserName)
	return api, nil
}

func New(api poller, engine Engine, subscribers Subscribers, notifier *Notifier, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:         api,
		engine:      engine,
		subscribers: subscribers,
		notifier:    notifier,
		loc:         loc,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}
	return nil
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			logger.Warn("handle callback", "error", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			logger.Warn("handle message", "error", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if msg.IsCommand() {
		logger.Info("command", "chat", msg.Chat.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}
	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}
	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "stop":
		return b.handleStop(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "due":
		return b.handleDue(ctx, msg.Chat.ID)
	case "plants":
		return b.handlePlants(ctx, msg.Chat.ID)
	case "pause":
		return b.handlePause(ctx, msg.Chat.ID)
	case "resume":
		return b.handleResume(ctx, msg.Chat.ID)
	case "time":
		return b.handleTime(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelDue:
		return true, b.handleDue(ctx, msg.Chat.ID)
	case menuLabelPlants:
		return true, b.handlePlants(ctx, msg.Chat.ID)
	case menuLabelPause:
		return true, b.handlePause(ctx, msg.Chat.ID)
	case menuLabelResume:
		return true, b.handleResume(ctx, msg.Chat.ID)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.subscribers.UpsertFromTelegram(ctx, msg.Chat.ID, msg.From.FirstName, msg.From.UserName); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}
	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я напомню, когда растениям нужен уход.</b>\n\n"+
			"Раз в день пришлю список: полив, подкормка, пересадка. "+
			"Под каждой задачей есть кнопки «Готово» и «Отложить».\n\n%s",
		html.EscapeString(name), commandList,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleStop(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.subscribers.Delete(ctx, msg.Chat.ID); err != nil {
		return err
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, "🔕 Больше не пришлю напоминаний в этот чат. Вернуться: /start")
	reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(reply)
	return err
}

const commandList = "Команды:\n" +
	"• /due — что нужно сделать сегодня\n" +
	"• /plants — растения и расписания ухода\n" +
	"• /time &lt;ЧЧ:ММ&gt; — время ежедневного напоминания\n" +
	"• /pause — приостановить напоминания\n" +
	"• /resume — возобновить напоминания\n" +
	"• /stop — отписаться от напоминаний\n" +
	"• /help — подсказки"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Подсказки</b>\n"+commandList)
}

func (b *Bot) handleDue(ctx context.Context, chatID int64) error {
	batch, err := b.engine.DueBatch(ctx)
	if err != nil {
		return b.sendText(chatID, "Не удалось получить список задач. Попробуй позже.")
	}
	if len(batch.Entries) == 0 {
		return b.sendText(chatID, "🌿 На сегодня всё сделано. Растения довольны!")
	}
	return b.notifier.PostTo(ctx, chatID, batch)
}

func (b *Bot) handlePlants(ctx context.Context, chatID int64) error {
	plants, err := b.engine.ListPlants(ctx)
	if err != nil {
		return b.sendText(chatID, "Не удалось загрузить растения.")
	}
	if len(plants) == 0 {
		return b.sendText(chatID, "🪴 Растений пока нет.")
	}

	var sb strings.Builder
	sb.WriteString("🪴 <b>Растения</b>\n")
	var pending []model.CareSchedule
	names := make(map[string]string, len(plants))
	for _, plant := range plants {
		names[plant.ID] = plant.DisplayName()
		schedules, err := b.engine.SchedulesForPlant(ctx, plant.ID)
		if err != nil {
			logger.Warn("load schedules", "plant", plant.ID, "error", err)
			continue
		}
		sb.WriteString(formatPlant(plant, schedules, b.loc))
		for _, schedule := range schedules {
			if schedule.HasPendingRecommendation() {
				pending = append(pending, schedule)
			}
		}
	}
	if err := b.sendText(chatID, strings.TrimSpace(sb.String())); err != nil {
		return err
	}

	for _, schedule := range pending {
		text := fmt.Sprintf("🤖 Для «%s» (%s) рекомендуют уход раз в %d дн. вместо %d. Применить?",
			html.EscapeString(names[schedule.PlantID]),
			strings.ToLower(service.CareTypeLabel(schedule.CareType)),
			*schedule.PendingRecommendedFrequencyDays, schedule.FrequencyDays)
		if err := b.sendWithReplyMarkup(chatID, text, recommendationKeyboard(schedule.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handlePause(ctx context.Context, chatID int64) error {
	if err := b.engine.PauseReminders(ctx); err != nil {
		return b.sendText(chatID, "Не удалось обновить настройки.")
	}
	return b.sendText(chatID, "⏸ Напоминания на паузе. Вернуть: /resume")
}

func (b *Bot) handleResume(ctx context.Context, chatID int64) error {
	if err := b.engine.ResumeReminders(ctx); err != nil {
		return b.sendText(chatID, "Не удалось обновить настройки.")
	}
	_, at, err := b.engine.Preferences(ctx)
	if err != nil {
		return b.sendText(chatID, "▶️ Напоминания снова включены.")
	}
	return b.sendText(chatID, fmt.Sprintf("▶️ Напоминания снова включены. Жди список в %s.", at.String()))
}

func (b *Bot) handleTime(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		paused, at, err := b.engine.Preferences(ctx)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Не удалось прочитать настройки.")
		}
		state := ""
		if paused {
			state = " (сейчас на паузе)"
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("⏰ Напоминаю каждый день в %s%s. Изменить: /time 08:30", at.String(), state))
	}

	next, err := b.engine.SetReminderTime(ctx, args)
	if errors.Is(err, service.ErrInvalidReminderTime) {
		return b.sendText(msg.Chat.ID, "Время должно быть в формате ЧЧ:ММ, например /time 08:30")
	}
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не удалось обновить настройки.")
	}
	text := "⏰ Время напоминаний обновлено."
	if !next.IsZero() {
		text = fmt.Sprintf("⏰ Время напоминаний обновлено. Следующее: %s.", next.In(b.loc).Format("02.01 15:04"))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil {
		return nil
	}

	req, err := service.ParseAction(cb.Data)
	if err != nil {
		logger.Debug("ignore callback", "data", cb.Data, "error", err)
		b.answer(cb.ID, "")
		return nil
	}
	logger.Info("callback", "user", cb.From.ID, "action", req.Kind, "schedule", req.ScheduleID)

	var toast string
	switch req.Kind {
	case service.ActionDone:
		err = b.engine.MarkComplete(ctx, req.ScheduleID, model.SourceNotificationAction)
		toast = "✅ Отмечено"
	case service.ActionSnooze:
		err = b.engine.Snooze(ctx, req.ScheduleID, req.Option)
		toast = "⏰ Отложено: " + strings.ToLower(req.Option.Label())
	case service.ActionAccept, service.ActionDecline:
		accept := req.Kind == service.ActionAccept
		err = b.engine.ResolveRecommendation(ctx, req.ScheduleID, accept)
		toast = "Оставили текущее расписание"
		if accept {
			toast = "Новое расписание применено"
		}
		if err == nil && cb.Message != nil {
			b.clearKeyboard(cb.Message.Chat.ID, cb.Message.MessageID, toast)
		}
	}
	if err != nil {
		b.answer(cb.ID, "Не удалось обновить")
		return err
	}
	b.answer(cb.ID, toast)
	return nil
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.Debug("callback ack", "error", err)
	}
}

func (b *Bot) clearKeyboard(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Request(edit); err != nil {
		logger.Debug("edit resolved recommendation", "error", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func formatPlant(plant model.Plant, schedules []model.CareSchedule, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n<b>%s</b>", html.EscapeString(plant.DisplayName())))
	if plant.Species != "" && plant.Species != plant.DisplayName() {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(plant.Species)))
	}
	sb.WriteByte('\n')
	if len(schedules) == 0 {
		sb.WriteString("   расписания ещё нет\n")
		return sb.String()
	}
	for _, schedule := range schedules {
		status := fmt.Sprintf("срок %s", schedule.NextDue.In(loc).Format("02.01"))
		if !schedule.IsEnabled {
			status = "выключено"
		}
		custom := ""
		if schedule.IsCustom {
			custom = " ✍️"
		}
		sb.WriteString(fmt.Sprintf("   • %s: раз в %d дн.%s · %s\n",
			service.CareTypeLabel(schedule.CareType), schedule.FrequencyDays, custom, status))
	}
	return sb.String()
}
