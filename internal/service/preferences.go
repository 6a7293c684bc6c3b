package service

import (
	"context"

	"plant-care/internal/model"
)

// Preferences exposes the global reminder settings kept outside the engine.
type Preferences interface {
	RemindersPaused(ctx context.Context) (bool, error)
	ReminderTime(ctx context.Context) (model.ClockTime, error)
	SetRemindersPaused(ctx context.Context, paused bool) error
	SetReminderTime(ctx context.Context, clock model.ClockTime) error
}
