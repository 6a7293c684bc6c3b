package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/repository"
)

// SnoozeOption is one of the fixed snooze choices, selected by ordinal.
type SnoozeOption int

const (
	SnoozeSixHours SnoozeOption = iota
	SnoozeOneDay
	SnoozeNextCycle
)

// suggestAdjustThreshold is the snooze count at which a frequency review is suggested.
const suggestAdjustThreshold = 3

func (o SnoozeOption) Valid() bool {
	return o >= SnoozeSixHours && o <= SnoozeNextCycle
}

func (o SnoozeOption) Label() string {
	switch o {
	case SnoozeSixHours:
		return "На 6 часов"
	case SnoozeOneDay:
		return "Завтра"
	case SnoozeNextCycle:
		return "Следующий цикл"
	default:
		return fmt.Sprintf("option %d", int(o))
	}
}

func SnoozeOptions() []SnoozeOption {
	return []SnoozeOption{SnoozeSixHours, SnoozeOneDay, SnoozeNextCycle}
}

// snoozedUntil returns the new due date. The next-cycle option adds to the
// current due date so repeated snoozes do not drift.
func snoozedUntil(option SnoozeOption, schedule model.CareSchedule, now time.Time) (time.Time, error) {
	switch option {
	case SnoozeSixHours:
		return now.Add(6 * time.Hour), nil
	case SnoozeOneDay:
		return now.Add(day), nil
	case SnoozeNextCycle:
		return schedule.NextDue.Add(schedule.Frequency()), nil
	default:
		return time.Time{}, fmt.Errorf("snooze option %d: %w", int(option), ErrInvalidSnoozeOption)
	}
}

// ActionService applies user actions to schedules. Unknown schedules are
// treated as stale notifications and ignored.
type ActionService struct {
	scheduleRepo *repository.ScheduleRepository
	notifier     Notifier
	alarm        *AlarmService
	clock        Clock
}

func NewActionService(
	scheduleRepo *repository.ScheduleRepository,
	notifier Notifier,
	alarm *AlarmService,
	clock Clock,
) *ActionService {
	return &ActionService{
		scheduleRepo: scheduleRepo,
		notifier:     notifier,
		alarm:        alarm,
		clock:        clock,
	}
}

// MarkComplete records a completion and resets the snooze counter. NextDue is
// left alone; the next read of the schedule moves it forward.
func (s *ActionService) MarkComplete(ctx context.Context, scheduleID string, source model.CompletionSource) error {
	if source != model.SourceNotificationAction && source != model.SourceInApp {
		return fmt.Errorf("mark complete with source %q: %w", source, ErrInvalidSource)
	}

	now := s.clock.now()
	err := s.scheduleRepo.Transaction(ctx, func(repo *repository.ScheduleRepository) error {
		schedule, err := repo.GetScheduleByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		if err := repo.InsertCompletion(ctx, &model.CareCompletion{
			ScheduleID:  schedule.ID,
			CompletedAt: now,
			Source:      source,
		}); err != nil {
			return err
		}
		schedule.SnoozeCount = 0
		return repo.UpdateSchedule(ctx, schedule)
	})
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("complete unknown schedule, ignoring", "schedule", scheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}

	logger.Info("care completed", "schedule", scheduleID, "source", source)
	s.dismiss(ctx, scheduleID)
	s.alarm.ScheduleNextAlarm(ctx)
	return nil
}

// Snooze moves the due date by the chosen option and counts the snooze.
func (s *ActionService) Snooze(ctx context.Context, scheduleID string, option SnoozeOption) error {
	if !option.Valid() {
		return fmt.Errorf("snooze option %d: %w", int(option), ErrInvalidSnoozeOption)
	}

	now := s.clock.now()
	var snoozed model.CareSchedule
	err := s.scheduleRepo.Transaction(ctx, func(repo *repository.ScheduleRepository) error {
		schedule, err := repo.GetScheduleByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		next, err := snoozedUntil(option, *schedule, now)
		if err != nil {
			return err
		}
		schedule.NextDue = next
		schedule.SnoozeCount++
		if schedule.SnoozeCount >= suggestAdjustThreshold {
			schedule.Notes = withSuggestAdjust(schedule.Notes)
		}
		if err := repo.UpdateSchedule(ctx, schedule); err != nil {
			return err
		}
		snoozed = *schedule
		return repo.InsertCompletion(ctx, &model.CareCompletion{
			ScheduleID:  schedule.ID,
			CompletedAt: now,
			Source:      model.SourceSnooze,
		})
	})
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("snooze unknown schedule, ignoring", "schedule", scheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("snooze schedule: %w", err)
	}

	logger.Info("care snoozed", "schedule", scheduleID, "option", option.Label(),
		"next_due", snoozed.NextDue, "snooze_count", snoozed.SnoozeCount)
	s.dismiss(ctx, scheduleID)
	s.alarm.ScheduleNextAlarm(ctx)
	return nil
}

// ToggleRemindersForPlant disables or re-enables every schedule of a plant.
// Re-enabling recomputes due dates from the completion history.
func (s *ActionService) ToggleRemindersForPlant(ctx context.Context, plantID string, enabled bool) error {
	now := s.clock.now()
	err := s.scheduleRepo.Transaction(ctx, func(repo *repository.ScheduleRepository) error {
		if !enabled {
			return repo.SetEnabledForPlant(ctx, plantID, false)
		}
		schedules, err := repo.GetSchedulesByPlant(ctx, plantID)
		if err != nil {
			return err
		}
		if len(schedules) == 0 {
			logger.Debug("plant has no schedules to toggle", "plant", plantID)
		}
		for i := range schedules {
			schedule := &schedules[i]
			if schedule.IsEnabled {
				continue
			}
			last, err := repo.GetLastCompletion(ctx, schedule.ID)
			if err != nil {
				return err
			}
			schedule.NextDue = ComputeNextDue(schedule.FrequencyDays, completedAt(last), now)
			schedule.IsEnabled = true
			if err := repo.UpdateSchedule(ctx, schedule); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("toggle reminders: %w", err)
	}

	if !enabled {
		for _, schedule := range s.schedulesOf(ctx, plantID) {
			s.dismiss(ctx, schedule.ID)
		}
	}
	logger.Info("plant reminders toggled", "plant", plantID, "enabled", enabled)
	s.alarm.ScheduleNextAlarm(ctx)
	return nil
}

// UpdateScheduleFrequency is a user edit: the schedule becomes custom and any
// pending recommendation is dropped.
func (s *ActionService) UpdateScheduleFrequency(ctx context.Context, scheduleID string, days int) error {
	if days <= 0 {
		return fmt.Errorf("frequency %d: %w", days, ErrInvalidFrequency)
	}

	err := s.scheduleRepo.Transaction(ctx, func(repo *repository.ScheduleRepository) error {
		schedule, err := repo.GetScheduleByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		return s.applyUserFrequency(ctx, repo, schedule, days)
	})
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("edit unknown schedule, ignoring", "schedule", scheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update frequency: %w", err)
	}

	logger.Info("schedule frequency changed", "schedule", scheduleID, "frequency_days", days)
	s.alarm.ScheduleNextAlarm(ctx)
	return nil
}

// ResolveRecommendation accepts or declines a pending AI frequency.
func (s *ActionService) ResolveRecommendation(ctx context.Context, scheduleID string, accept bool) error {
	applied := false
	err := s.scheduleRepo.Transaction(ctx, func(repo *repository.ScheduleRepository) error {
		schedule, err := repo.GetScheduleByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		days, ok := pendingFrequency(*schedule)
		if !ok {
			logger.Debug("no pending recommendation", "schedule", scheduleID)
			return nil
		}
		if accept {
			applied = true
			return s.applyUserFrequency(ctx, repo, schedule, days)
		}
		schedule.Notes = stripRecommendation(schedule.Notes)
		schedule.PendingRecommendedFrequencyDays = nil
		return repo.UpdateSchedule(ctx, schedule)
	})
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("resolve recommendation for unknown schedule, ignoring", "schedule", scheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve recommendation: %w", err)
	}

	logger.Info("recommendation resolved", "schedule", scheduleID, "accepted", accept)
	if applied {
		s.alarm.ScheduleNextAlarm(ctx)
	}
	return nil
}

// ListCompletions is the user-facing history of a schedule, newest first.
func (s *ActionService) ListCompletions(ctx context.Context, scheduleID string) ([]model.CareCompletion, error) {
	completions, err := s.scheduleRepo.ListCompletions(ctx, scheduleID, false)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

func (s *ActionService) applyUserFrequency(ctx context.Context, repo *repository.ScheduleRepository, schedule *model.CareSchedule, days int) error {
	last, err := repo.GetLastCompletion(ctx, schedule.ID)
	if err != nil {
		return err
	}
	schedule.FrequencyDays = days
	schedule.IsCustom = true
	schedule.NextDue = ComputeNextDue(days, completedAt(last), s.clock.now())
	schedule.Notes = stripRecommendation(schedule.Notes)
	schedule.PendingRecommendedFrequencyDays = nil
	return repo.UpdateSchedule(ctx, schedule)
}

func (s *ActionService) schedulesOf(ctx context.Context, plantID string) []model.CareSchedule {
	schedules, err := s.scheduleRepo.GetSchedulesByPlant(ctx, plantID)
	if err != nil {
		logger.Warn("list schedules for dismissal", "plant", plantID, "error", err)
		return nil
	}
	return schedules
}

func (s *ActionService) dismiss(ctx context.Context, scheduleID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dismiss(ctx, scheduleID); err != nil {
		logger.Warn("dismiss notification entry", "schedule", scheduleID, "error", err)
	}
}

// pendingFrequency prefers the explicit field and falls back to the notes marker.
func pendingFrequency(schedule model.CareSchedule) (int, bool) {
	if schedule.PendingRecommendedFrequencyDays != nil && *schedule.PendingRecommendedFrequencyDays > 0 {
		return *schedule.PendingRecommendedFrequencyDays, true
	}
	return RecommendedFrequency(schedule.Notes)
}

func completedAt(completion *model.CareCompletion) *time.Time {
	if completion == nil {
		return nil
	}
	at := completion.CompletedAt
	return &at
}
