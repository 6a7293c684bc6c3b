package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/service"
)

// sender is the part of the Telegram API the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SubscriberLister returns the chats that receive care reminders.
type SubscriberLister interface {
	ListAll(ctx context.Context) ([]model.Subscriber, error)
}

type sentMessage struct {
	chatID    int64
	messageID int
}

// Notifier posts care batches to every subscribed chat and keeps track of the
// summary and the message behind each entry so they can be removed later.
// Each chat shows at most one summary.
type Notifier struct {
	api         sender
	subscribers SubscriberLister

	mu        sync.Mutex
	entries   map[string][]sentMessage
	summaries map[int64]int
}

func NewNotifier(api sender, subscribers SubscriberLister) *Notifier {
	return &Notifier{
		api:         api,
		subscribers: subscribers,
		entries:     make(map[string][]sentMessage),
		summaries:   make(map[int64]int),
	}
}

// Post sends the batch to all subscribers.
func (n *Notifier) Post(ctx context.Context, batch service.Batch) error {
	subs, err := n.subscribers.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		logger.Warn("no telegram subscribers, care batch dropped", "entries", len(batch.Entries))
		return nil
	}

	var errs []error
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := n.PostTo(ctx, sub.ChatID, batch); err != nil {
			logger.Warn("send care batch", "chat", sub.ChatID, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(subs) {
		return errors.Join(errs...)
	}
	return nil
}

// PostTo sends the batch to one chat. Entries already shown there are replaced.
func (n *Notifier) PostTo(_ context.Context, chatID int64, batch service.Batch) error {
	if len(batch.Entries) == 0 {
		return nil
	}
	n.dropSummary(chatID)
	summary := tgbotapi.NewMessage(chatID, batch.Summary)
	summary.ParseMode = tgbotapi.ModeHTML
	sent, err := n.api.Send(summary)
	if err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	n.mu.Lock()
	n.summaries[chatID] = sent.MessageID
	n.mu.Unlock()

	for _, entry := range batch.Entries {
		n.dismissInChat(entry.ScheduleID, chatID)

		msg := tgbotapi.NewMessage(chatID, entry.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		if len(entry.Actions) > 0 {
			msg.ReplyMarkup = actionKeyboard(entry.Actions)
		}
		sent, err := n.api.Send(msg)
		if err != nil {
			return fmt.Errorf("send entry %s: %w", entry.ScheduleID, err)
		}
		n.track(entry.ScheduleID, sentMessage{chatID: chatID, messageID: sent.MessageID})
	}
	return nil
}

// Dismiss deletes the entry messages of one schedule in every chat. A summary
// left without entries is deleted too.
func (n *Notifier) Dismiss(_ context.Context, scheduleID string) error {
	n.mu.Lock()
	messages := n.entries[scheduleID]
	delete(n.entries, scheduleID)
	n.mu.Unlock()

	var errs []error
	for _, m := range messages {
		if err := n.delete(m); err != nil {
			errs = append(errs, err)
		}
		if n.entriesInChat(m.chatID) == 0 {
			n.dropSummary(m.chatID)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) entriesInChat(chatID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, messages := range n.entries {
		for _, m := range messages {
			if m.chatID == chatID {
				count++
			}
		}
	}
	return count
}

func (n *Notifier) dropSummary(chatID int64) {
	n.mu.Lock()
	messageID, ok := n.summaries[chatID]
	delete(n.summaries, chatID)
	n.mu.Unlock()
	if !ok {
		return
	}
	if err := n.delete(sentMessage{chatID: chatID, messageID: messageID}); err != nil {
		logger.Debug("delete old summary", "chat", chatID, "error", err)
	}
}

func (n *Notifier) dismissInChat(scheduleID string, chatID int64) {
	n.mu.Lock()
	var kept, stale []sentMessage
	for _, m := range n.entries[scheduleID] {
		if m.chatID == chatID {
			stale = append(stale, m)
		} else {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		delete(n.entries, scheduleID)
	} else {
		n.entries[scheduleID] = kept
	}
	n.mu.Unlock()

	for _, m := range stale {
		if err := n.delete(m); err != nil {
			logger.Debug("delete replaced entry", "schedule", scheduleID, "chat", chatID, "error", err)
		}
	}
}

func (n *Notifier) delete(m sentMessage) error {
	if _, err := n.api.Request(tgbotapi.NewDeleteMessage(m.chatID, m.messageID)); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", m.messageID, m.chatID, err)
	}
	return nil
}

func (n *Notifier) track(scheduleID string, m sentMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries[scheduleID] = append(n.entries[scheduleID], m)
}

// HasSummary reports whether a summary is shown in the chat.
func (n *Notifier) HasSummary(chatID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.summaries[chatID]
	return ok
}

// Tracked reports how many messages are shown for a schedule.
func (n *Notifier) Tracked(scheduleID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries[scheduleID])
}
