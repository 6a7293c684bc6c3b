package model

import "time"

// CompletionSource tells where a care completion came from.
type CompletionSource string

const (
	SourceNotificationAction CompletionSource = "notification_action"
	SourceInApp              CompletionSource = "in_app"
	// SourceSnooze rows only track snooze history; they are hidden from
	// completion feeds and never count as the last completion.
	SourceSnooze CompletionSource = "snooze"
)

// CareCompletion is an append-only audit record of a finished care action.
type CareCompletion struct {
	ID          string           `gorm:"primaryKey;size:36"`
	ScheduleID  string           `gorm:"size:36;not null;index:idx_completion_schedule_time,priority:1"`
	CompletedAt time.Time        `gorm:"not null;index:idx_completion_schedule_time,priority:2,sort:desc"`
	Source      CompletionSource `gorm:"size:32;not null"`
	CreatedAt   time.Time
}
