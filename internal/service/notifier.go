package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"plant-care/internal/model"
)

//go:generate mockgen -source=notifier.go -destination=notifier_mock.go -package=service

// Notifier renders the grouped care notification and removes single entries from it.
type Notifier interface {
	// Post shows one summary plus one entry per item. An entry already shown
	// for the same schedule is replaced.
	Post(ctx context.Context, batch Batch) error
	// Dismiss removes the entry of one schedule. Unknown schedules are ignored.
	Dismiss(ctx context.Context, scheduleID string) error
}

// Batch is one grouped notification.
type Batch struct {
	GeneratedAt time.Time
	Summary     string
	Entries     []Entry
}

// Entry is the expandable per-schedule part of a batch.
type Entry struct {
	ScheduleID string
	PlantID    string
	PlantName  string
	CareType   model.CareType
	NextDue    time.Time
	Text       string
	Actions    []Action
}

// Action is a button attached to an entry. Data round-trips through ParseAction.
type Action struct {
	Label string
	Data  string
}

type ActionKind string

const (
	ActionDone    ActionKind = "done"
	ActionSnooze  ActionKind = "snooze"
	ActionAccept  ActionKind = "accept"
	ActionDecline ActionKind = "decline"
)

// ActionRequest is a decoded user action on a schedule.
type ActionRequest struct {
	Kind       ActionKind
	ScheduleID string
	Option     SnoozeOption
}

// Data encodes the request as kind:scheduleID[:option].
func (a ActionRequest) Data() string {
	if a.Kind == ActionSnooze {
		return fmt.Sprintf("%s:%s:%d", a.Kind, a.ScheduleID, a.Option)
	}
	return fmt.Sprintf("%s:%s", a.Kind, a.ScheduleID)
}

func ParseAction(data string) (ActionRequest, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[1] == "" {
		return ActionRequest{}, fmt.Errorf("malformed action %q", data)
	}
	req := ActionRequest{Kind: ActionKind(parts[0]), ScheduleID: parts[1]}
	switch req.Kind {
	case ActionDone, ActionAccept, ActionDecline:
		if len(parts) != 2 {
			return ActionRequest{}, fmt.Errorf("malformed action %q", data)
		}
	case ActionSnooze:
		if len(parts) != 3 {
			return ActionRequest{}, fmt.Errorf("malformed action %q", data)
		}
		option, err := strconv.Atoi(parts[2])
		if err != nil || !SnoozeOption(option).Valid() {
			return ActionRequest{}, fmt.Errorf("action %q: %w", data, ErrInvalidSnoozeOption)
		}
		req.Option = SnoozeOption(option)
	default:
		return ActionRequest{}, fmt.Errorf("unknown action kind %q", parts[0])
	}
	return req, nil
}

func entryActions(scheduleID string) []Action {
	actions := []Action{{
		Label: "✅ Готово",
		Data:  ActionRequest{Kind: ActionDone, ScheduleID: scheduleID}.Data(),
	}}
	for _, option := range SnoozeOptions() {
		actions = append(actions, Action{
			Label: "⏰ " + option.Label(),
			Data:  ActionRequest{Kind: ActionSnooze, ScheduleID: scheduleID, Option: option}.Data(),
		})
	}
	return actions
}
