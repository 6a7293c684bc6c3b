package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"plant-care/internal/model"
	"plant-care/internal/service"
)

type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	failChat map[int64]bool
	updates  chan tgbotapi.Update
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{failChat: make(map[int64]bool), updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		f.requests = append(f.requests, c)
		return tgbotapi.Message{}, nil
	}
	if f.failChat[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	f.nextID++
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: msg.ChatID}}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	close(f.updates)
}

func (f *fakeAPI) deletes() []tgbotapi.DeleteMessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DeleteMessageConfig
	for _, r := range f.requests {
		if d, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeAPI) toasts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		if cb, ok := r.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

type fakeSubscribers struct {
	chats    []int64
	upserted []int64
	deleted  []int64
}

func (s *fakeSubscribers) ListAll(context.Context) ([]model.Subscriber, error) {
	subs := make([]model.Subscriber, 0, len(s.chats))
	for _, id := range s.chats {
		subs = append(subs, model.Subscriber{ChatID: id})
	}
	return subs, nil
}

func (s *fakeSubscribers) UpsertFromTelegram(_ context.Context, chatID int64, firstName, username string) (*model.Subscriber, error) {
	s.upserted = append(s.upserted, chatID)
	return &model.Subscriber{ChatID: chatID, FirstName: firstName, Username: username}, nil
}

func (s *fakeSubscribers) Delete(_ context.Context, chatID int64) error {
	s.deleted = append(s.deleted, chatID)
	return nil
}

type fakeEngine struct {
	completed []string
	sources   []model.CompletionSource
	snoozed   map[string]service.SnoozeOption
	resolved  map[string]bool
	batch     service.Batch
	actionErr error
	paused    bool
	at        model.ClockTime
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		snoozed:  make(map[string]service.SnoozeOption),
		resolved: make(map[string]bool),
		at:       model.ClockTime{Hour: 9},
	}
}

func (e *fakeEngine) MarkComplete(_ context.Context, id string, source model.CompletionSource) error {
	if e.actionErr != nil {
		return e.actionErr
	}
	e.completed = append(e.completed, id)
	e.sources = append(e.sources, source)
	return nil
}

func (e *fakeEngine) Snooze(_ context.Context, id string, option service.SnoozeOption) error {
	if e.actionErr != nil {
		return e.actionErr
	}
	e.snoozed[id] = option
	return nil
}

func (e *fakeEngine) ResolveRecommendation(_ context.Context, id string, accept bool) error {
	if e.actionErr != nil {
		return e.actionErr
	}
	e.resolved[id] = accept
	return nil
}

func (e *fakeEngine) DueBatch(context.Context) (service.Batch, error) { return e.batch, nil }

func (e *fakeEngine) PauseReminders(context.Context) error {
	e.paused = true
	return nil
}

func (e *fakeEngine) ResumeReminders(context.Context) error {
	e.paused = false
	return nil
}

func (e *fakeEngine) SetReminderTime(_ context.Context, raw string) (time.Time, error) {
	at, err := model.ParseClockTime(raw)
	if err != nil {
		return time.Time{}, service.ErrInvalidReminderTime
	}
	e.at = at
	return time.Date(2026, 10, 17, at.Hour, at.Minute, 0, 0, time.UTC), nil
}

func (e *fakeEngine) Preferences(context.Context) (bool, model.ClockTime, error) {
	return e.paused, e.at, nil
}

func (e *fakeEngine) ListPlants(context.Context) ([]model.Plant, error) {
	return []model.Plant{{ID: "p1", Name: "Monstera"}}, nil
}

func (e *fakeEngine) SchedulesForPlant(context.Context, string) ([]model.CareSchedule, error) {
	pending := 5
	return []model.CareSchedule{{
		ID: "s1", PlantID: "p1", CareType: model.CareWater, FrequencyDays: 7,
		IsCustom: true, IsEnabled: true, PendingRecommendedFrequencyDays: &pending,
	}}, nil
}

func testBatch(ids ...string) service.Batch {
	batch := service.Batch{Summary: "🌿 <b>Уход за растениями</b>"}
	for _, id := range ids {
		batch.Entries = append(batch.Entries, service.Entry{
			ScheduleID: id,
			Text:       "💧 Полив · " + id,
			Actions: []service.Action{
				{Label: "✅ Готово", Data: "done:" + id},
				{Label: "⏰ Завтра", Data: "snooze:" + id + ":1"},
			},
		})
	}
	return batch
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	command := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:     &tgbotapi.User{ID: chatID, FirstName: "Анна", UserName: "anna"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
		Data:    data,
	}}
}

func TestNotifierPostAndDismiss(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	n := NewNotifier(api, &fakeSubscribers{chats: []int64{1, 2}})

	if err := n.Post(ctx, testBatch("a", "b")); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got := len(api.sent); got != 6 {
		t.Fatalf("sent %d messages, want summary+2 entries for 2 chats", got)
	}
	if api.sent[1].ReplyMarkup == nil {
		t.Error("entry sent without action buttons")
	}
	if n.Tracked("a") != 2 {
		t.Errorf("Tracked(a) = %d, want 2", n.Tracked("a"))
	}

	if err := n.Dismiss(ctx, "a"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if got := len(api.deletes()); got != 2 {
		t.Errorf("deleted %d messages, want 2", got)
	}
	if n.Tracked("a") != 0 || n.Tracked("b") != 2 {
		t.Errorf("tracking after dismiss: a=%d b=%d", n.Tracked("a"), n.Tracked("b"))
	}
	if err := n.Dismiss(ctx, "unknown"); err != nil {
		t.Errorf("Dismiss(unknown) = %v", err)
	}
}

func TestNotifierReplacesEntryInSameChat(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	n := NewNotifier(api, &fakeSubscribers{chats: []int64{1}})

	if err := n.Post(ctx, testBatch("a")); err != nil {
		t.Fatalf("first Post: %v", err)
	}
	if err := n.Post(ctx, testBatch("a")); err != nil {
		t.Fatalf("second Post: %v", err)
	}

	deletes := api.deletes()
	if len(deletes) != 2 || deletes[0].MessageID != 1 || deletes[1].MessageID != 2 {
		t.Fatalf("deletes = %+v, want the first summary and entry removed", deletes)
	}
	if n.Tracked("a") != 1 {
		t.Errorf("Tracked(a) = %d, want 1", n.Tracked("a"))
	}
	if !n.HasSummary(1) {
		t.Error("the new summary is not tracked")
	}
}

func TestNotifierDropsSummaryWithLastEntry(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	n := NewNotifier(api, &fakeSubscribers{chats: []int64{1}})

	if err := n.Post(ctx, testBatch("a", "b")); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if err := n.Dismiss(ctx, "a"); err != nil {
		t.Fatalf("Dismiss(a): %v", err)
	}
	if got := len(api.deletes()); got != 1 {
		t.Fatalf("deletes after first Dismiss = %d, want 1", got)
	}
	if !n.HasSummary(1) {
		t.Fatal("summary removed while an entry is still shown")
	}

	if err := n.Dismiss(ctx, "b"); err != nil {
		t.Fatalf("Dismiss(b): %v", err)
	}
	deletes := api.deletes()
	if len(deletes) != 3 || deletes[2].MessageID != 1 {
		t.Fatalf("deletes = %+v, want the summary removed last", deletes)
	}
	if n.HasSummary(1) {
		t.Error("summary still tracked after every entry was dismissed")
	}
}

func TestNotifierPostFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		chats   []int64
		failing []int64
		wantErr bool
	}{
		{name: "no subscribers", chats: nil},
		{name: "one chat fails", chats: []int64{1, 2}, failing: []int64{2}},
		{name: "all chats fail", chats: []int64{1, 2}, failing: []int64{1, 2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			for _, id := range tt.failing {
				api.failChat[id] = true
			}
			n := NewNotifier(api, &fakeSubscribers{chats: tt.chats})
			err := n.Post(ctx, testBatch("a"))
			if (err != nil) != tt.wantErr {
				t.Errorf("Post() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newTestBot(api *fakeAPI, engine *fakeEngine, subs *fakeSubscribers) *Bot {
	return New(api, engine, subs, NewNotifier(api, subs), time.UTC)
}

func TestCallbackActions(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	engine := newFakeEngine()
	b := newTestBot(api, engine, &fakeSubscribers{})

	b.HandleUpdate(ctx, callbackUpdate(1, "done:s1"))
	b.HandleUpdate(ctx, callbackUpdate(1, "snooze:s2:2"))
	b.HandleUpdate(ctx, callbackUpdate(1, "accept:s3"))
	b.HandleUpdate(ctx, callbackUpdate(1, "garbage"))

	if len(engine.completed) != 1 || engine.completed[0] != "s1" || engine.sources[0] != model.SourceNotificationAction {
		t.Errorf("completed = %v sources = %v", engine.completed, engine.sources)
	}
	if option, ok := engine.snoozed["s2"]; !ok || option != service.SnoozeNextCycle {
		t.Errorf("snoozed = %v", engine.snoozed)
	}
	if accept, ok := engine.resolved["s3"]; !ok || !accept {
		t.Errorf("resolved = %v", engine.resolved)
	}
	toasts := api.toasts()
	if len(toasts) != 4 || toasts[0] != "✅ Отмечено" || toasts[3] != "" {
		t.Errorf("toasts = %q", toasts)
	}
}

func TestCallbackErrorShowsGenericToast(t *testing.T) {
	api := newFakeAPI()
	engine := newFakeEngine()
	engine.actionErr = errors.New("database is locked")
	b := newTestBot(api, engine, &fakeSubscribers{})

	b.HandleUpdate(context.Background(), callbackUpdate(1, "done:s1"))

	if toasts := api.toasts(); len(toasts) != 1 || toasts[0] != "Не удалось обновить" {
		t.Errorf("toasts = %q", toasts)
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("start registers the chat", func(t *testing.T) {
		api := newFakeAPI()
		subs := &fakeSubscribers{}
		b := newTestBot(api, newFakeEngine(), subs)
		b.HandleUpdate(ctx, commandUpdate(7, "/start"))
		if len(subs.upserted) != 1 || subs.upserted[0] != 7 {
			t.Errorf("upserted = %v", subs.upserted)
		}
		if !strings.Contains(api.lastText(), "Анна") {
			t.Errorf("greeting = %q", api.lastText())
		}
	})

	t.Run("stop unregisters the chat", func(t *testing.T) {
		subs := &fakeSubscribers{}
		b := newTestBot(newFakeAPI(), newFakeEngine(), subs)
		b.HandleUpdate(ctx, commandUpdate(7, "/stop"))
		if len(subs.deleted) != 1 || subs.deleted[0] != 7 {
			t.Errorf("deleted = %v", subs.deleted)
		}
	})

	t.Run("pause and resume", func(t *testing.T) {
		engine := newFakeEngine()
		api := newFakeAPI()
		b := newTestBot(api, engine, &fakeSubscribers{})
		b.HandleUpdate(ctx, commandUpdate(7, "/pause"))
		if !engine.paused {
			t.Fatal("reminders not paused")
		}
		b.HandleUpdate(ctx, commandUpdate(7, "/resume"))
		if engine.paused {
			t.Fatal("reminders not resumed")
		}
		if !strings.Contains(api.lastText(), "09:00") {
			t.Errorf("resume reply = %q", api.lastText())
		}
	})

	t.Run("time validates input", func(t *testing.T) {
		engine := newFakeEngine()
		api := newFakeAPI()
		b := newTestBot(api, engine, &fakeSubscribers{})
		b.HandleUpdate(ctx, commandUpdate(7, "/time 7pm"))
		if !strings.Contains(api.lastText(), "ЧЧ:ММ") {
			t.Errorf("invalid time reply = %q", api.lastText())
		}
		b.HandleUpdate(ctx, commandUpdate(7, "/time 20:15"))
		if engine.at.String() != "20:15" {
			t.Errorf("stored time = %s", engine.at)
		}
		b.HandleUpdate(ctx, commandUpdate(7, "/time"))
		if !strings.Contains(api.lastText(), "20:15") {
			t.Errorf("current time reply = %q", api.lastText())
		}
	})

	t.Run("due posts entries to the chat", func(t *testing.T) {
		engine := newFakeEngine()
		engine.batch = testBatch("a", "b")
		api := newFakeAPI()
		b := newTestBot(api, engine, &fakeSubscribers{})
		b.HandleUpdate(ctx, commandUpdate(7, "/due"))
		if len(api.sent) != 3 {
			t.Errorf("sent %d messages, want 3", len(api.sent))
		}
	})

	t.Run("plants offers pending recommendations", func(t *testing.T) {
		api := newFakeAPI()
		b := newTestBot(api, newFakeEngine(), &fakeSubscribers{})
		b.HandleUpdate(ctx, commandUpdate(7, "/plants"))
		if len(api.sent) != 2 {
			t.Fatalf("sent %d messages, want listing + recommendation", len(api.sent))
		}
		if !strings.Contains(api.sent[0].Text, "Monstera") {
			t.Errorf("listing = %q", api.sent[0].Text)
		}
		if _, ok := api.sent[1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
			t.Errorf("recommendation sent without accept/decline buttons")
		}
	})
}

func TestMenuAliasAndGroupChats(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	b := newTestBot(api, newFakeEngine(), &fakeSubscribers{})

	b.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		Text: menuLabelDue,
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		From: &tgbotapi.User{ID: 7},
	}})
	if !strings.Contains(api.lastText(), "всё сделано") {
		t.Errorf("empty due reply = %q", api.lastText())
	}

	sent := len(api.sent)
	group := commandUpdate(-100, "/due")
	group.Message.Chat.Type = "group"
	b.HandleUpdate(ctx, group)
	if len(api.sent) != sent {
		t.Error("bot answered in a group chat")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	api := newFakeAPI()
	b := newTestBot(api, newFakeEngine(), &fakeSubscribers{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
