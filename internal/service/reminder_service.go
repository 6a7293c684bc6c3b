package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/repository"
)

// DueItem pairs a due schedule with its plant.
type DueItem struct {
	Schedule model.CareSchedule
	Plant    model.Plant
}

// TriggerResult summarizes one run of the daily trigger.
type TriggerResult struct {
	Paused bool
	Due    int
	Posted int
}

// ReminderService builds the grouped care notification when the daily wakeup fires.
type ReminderService struct {
	scheduleRepo *repository.ScheduleRepository
	plantRepo    *repository.PlantRepository
	notifier     Notifier
	alarm        *AlarmService
	prefs        Preferences
	loc          *time.Location
	clock        Clock
}

func NewReminderService(
	scheduleRepo *repository.ScheduleRepository,
	plantRepo *repository.PlantRepository,
	notifier Notifier,
	alarm *AlarmService,
	prefs Preferences,
	loc *time.Location,
	clock Clock,
) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		scheduleRepo: scheduleRepo,
		plantRepo:    plantRepo,
		notifier:     notifier,
		alarm:        alarm,
		prefs:        prefs,
		loc:          loc,
		clock:        clock,
	}
}

// RunDailyTrigger posts today's due set as one batch. Re-arming the wakeup is
// always the last step, whatever happened before.
func (s *ReminderService) RunDailyTrigger(ctx context.Context) (TriggerResult, error) {
	var result TriggerResult
	defer s.alarm.ScheduleNextAlarm(ctx)

	paused, err := s.prefs.RemindersPaused(ctx)
	if err != nil {
		logger.Warn("read reminders paused flag", "error", err)
	}
	if paused {
		result.Paused = true
		logger.Info("reminders paused, skipping daily batch")
		return result, nil
	}

	now := s.clock.now()
	items, err := s.DueItems(ctx, now)
	if err != nil {
		return result, err
	}
	result.Due = len(items)
	if len(items) == 0 {
		logger.Info("nothing due today")
		return result, nil
	}

	batch := BuildBatch(items, now, s.loc)
	if err := s.notifier.Post(ctx, batch); err != nil {
		return result, fmt.Errorf("post batch: %w", err)
	}
	result.Posted = len(batch.Entries)
	logger.Info("daily batch posted", "entries", result.Posted)
	return result, nil
}

// RestoreNotifications rebuilds the due notifications from the store after a
// restart cleared them.
func (s *ReminderService) RestoreNotifications(ctx context.Context) (TriggerResult, error) {
	return s.RunDailyTrigger(ctx)
}

// DueItems returns enabled schedules due by the end of now's day, paired with
// their plants. Schedules whose plant is gone are skipped.
func (s *ReminderService) DueItems(ctx context.Context, now time.Time) ([]DueItem, error) {
	endOfToday := EndOfDay(now, s.loc)
	schedules, err := s.scheduleRepo.GetDueSchedules(ctx, endOfToday)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}

	items := make([]DueItem, 0, len(schedules))
	for _, schedule := range schedules {
		rolled, err := s.rollForward(ctx, schedule, now)
		if err != nil {
			logger.Warn("roll schedule forward", "schedule", schedule.ID, "error", err)
		} else {
			schedule = rolled
		}
		if schedule.NextDue.After(endOfToday) {
			continue
		}

		plant, err := s.plantRepo.GetByID(ctx, schedule.PlantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				logger.Debug("skip orphan schedule", "schedule", schedule.ID, "plant", schedule.PlantID)
				continue
			}
			logger.Warn("load plant for schedule", "schedule", schedule.ID, "error", err)
			continue
		}
		items = append(items, DueItem{Schedule: schedule, Plant: *plant})
	}
	return items, nil
}

// rollForward advances NextDue when the task was already completed within its
// current cycle. Completion itself never moves the due date; it is picked up here.
// A snooze newer than the completion wins and keeps its due date.
func (s *ReminderService) rollForward(ctx context.Context, schedule model.CareSchedule, now time.Time) (model.CareSchedule, error) {
	latest, err := s.scheduleRepo.GetLatestActivity(ctx, schedule.ID)
	if err != nil || latest == nil || latest.Source == model.SourceSnooze {
		return schedule, err
	}
	last, err := s.scheduleRepo.GetLastCompletion(ctx, schedule.ID)
	if err != nil || last == nil {
		return schedule, err
	}
	cycleStart := schedule.NextDue.Add(-schedule.Frequency())
	if !last.CompletedAt.After(cycleStart) {
		return schedule, nil
	}
	schedule.NextDue = ComputeNextDue(schedule.FrequencyDays, &last.CompletedAt, now)
	if err := s.scheduleRepo.UpdateSchedule(ctx, &schedule); err != nil {
		return schedule, err
	}
	logger.Debug("schedule completed this cycle, moved forward", "schedule", schedule.ID, "next_due", schedule.NextDue)
	return schedule, nil
}

// BuildBatch renders the summary and one entry per due item.
func BuildBatch(items []DueItem, now time.Time, loc *time.Location) Batch {
	batch := Batch{GeneratedAt: now, Entries: make([]Entry, 0, len(items))}

	var builder strings.Builder
	builder.WriteString("🌿 <b>Уход за растениями</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s · задач: %d\n\n", now.In(loc).Format("02.01.2006"), len(items)))

	for _, item := range items {
		text := formatEntry(item, now, loc)
		builder.WriteString(text)
		builder.WriteByte('\n')

		batch.Entries = append(batch.Entries, Entry{
			ScheduleID: item.Schedule.ID,
			PlantID:    item.Plant.ID,
			PlantName:  item.Plant.DisplayName(),
			CareType:   item.Schedule.CareType,
			NextDue:    item.Schedule.NextDue,
			Text:       text,
			Actions:    entryActions(item.Schedule.ID),
		})
	}

	batch.Summary = strings.TrimSpace(builder.String())
	return batch
}

func formatEntry(item DueItem, now time.Time, loc *time.Location) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s <b>%s</b> · %s", careIcon(item.Schedule.CareType),
		CareTypeLabel(item.Schedule.CareType), html.EscapeString(strings.TrimSpace(item.Plant.DisplayName()))))

	due := item.Schedule.NextDue.In(loc)
	if now.After(due) && EndOfDay(due, loc).Before(now) {
		overdue := int(now.Sub(due).Hours() / 24)
		if overdue < 1 {
			overdue = 1
		}
		sb.WriteString(fmt.Sprintf("\n   ⚠️ срок %s — <b>просрочено на %d дн.</b>", due.Format("02.01"), overdue))
	} else {
		sb.WriteString(fmt.Sprintf("\n   ⏰ срок %s", due.Format("02.01 15:04")))
	}
	sb.WriteString(fmt.Sprintf(" · раз в %d дн.", item.Schedule.FrequencyDays))

	if item.Schedule.SnoozeCount > 0 {
		sb.WriteString(fmt.Sprintf("\n   💤 отложено %d раз", item.Schedule.SnoozeCount))
	}
	return sb.String()
}

func careIcon(careType model.CareType) string {
	switch careType {
	case model.CareWater:
		return "💧"
	case model.CareFertilize:
		return "🧪"
	case model.CareRepot:
		return "🪴"
	default:
		return "🌱"
	}
}

// CareTypeLabel is the user-facing name of a care type.
func CareTypeLabel(careType model.CareType) string {
	switch careType {
	case model.CareWater:
		return "Полив"
	case model.CareFertilize:
		return "Подкормка"
	case model.CareRepot:
		return "Пересадка"
	default:
		return string(careType)
	}
}
