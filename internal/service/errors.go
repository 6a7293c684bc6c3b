package service

import "errors"

var (
	ErrInvalidFrequency    = errors.New("frequency must be a positive number of days")
	ErrInvalidSnoozeOption = errors.New("unknown snooze option")
	ErrInvalidSource       = errors.New("unknown completion source")
	ErrInvalidReminderTime = errors.New("reminder time must be HH:MM")
	ErrPlantNotFound       = errors.New("plant not found")
	ErrQueueStopped        = errors.New("work queue stopped")
)
