package service

import (
	"context"
	"sync"
	"time"

	"plant-care/internal/logger"
	"plant-care/internal/model"
)

// DailyReminderKey identifies the single daily wakeup of the whole engine.
const DailyReminderKey = "daily_care_reminder"

// AlarmService owns the daily wakeup and re-arms it after every relevant change.
type AlarmService struct {
	waker Waker
	prefs Preferences
	loc   *time.Location
	clock Clock

	mu     sync.Mutex
	onFire func()
}

func NewAlarmService(waker Waker, prefs Preferences, loc *time.Location, clock Clock) *AlarmService {
	if loc == nil {
		loc = time.Local
	}
	return &AlarmService{waker: waker, prefs: prefs, loc: loc, clock: clock}
}

// OnFire sets the handler run when the daily wakeup fires.
func (s *AlarmService) OnFire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFire = fn
}

func (s *AlarmService) fire() {
	s.mu.Lock()
	fn := s.onFire
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// NextAlarmTime returns today's reminder time, or the same time 24h later when it already passed.
func NextAlarmTime(now time.Time, at model.ClockTime, loc *time.Location) time.Time {
	target := at.On(now, loc)
	if !target.After(now) {
		target = target.Add(24 * time.Hour)
	}
	return target
}

// ScheduleNextAlarm registers (or replaces) the daily wakeup and returns its target.
// While reminders are paused the wakeup is cancelled instead and ok is false.
// Registration failures are logged and swallowed: schedules stay correct and the
// next successful re-arm catches up.
func (s *AlarmService) ScheduleNextAlarm(ctx context.Context) (target time.Time, ok bool) {
	paused, err := s.prefs.RemindersPaused(ctx)
	if err != nil {
		logger.Warn("read reminders paused flag", "error", err)
	}
	if paused {
		s.CancelAlarm(ctx)
		return time.Time{}, false
	}

	clock, err := s.prefs.ReminderTime(ctx)
	if err != nil {
		logger.Warn("read reminder time, using fallback", "error", err, "time", clock.String())
	}

	target = NextAlarmTime(s.clock.now(), clock, s.loc)
	if s.waker == nil {
		logger.Debug("no wakeup primitive, alarm not armed", "target", target)
		return target, false
	}
	if err := s.waker.Schedule(DailyReminderKey, target, s.fire); err != nil {
		logger.Warn("arm daily reminder", "target", target, "error", err)
		return target, false
	}
	logger.Debug("daily reminder armed", "target", target)
	return target, true
}

// CancelAlarm removes the daily wakeup unconditionally.
func (s *AlarmService) CancelAlarm(_ context.Context) {
	if s.waker == nil {
		return
	}
	s.waker.Cancel(DailyReminderKey)
	logger.Debug("daily reminder cancelled")
}

// RescheduleAllAlarms re-arms after a process restart; wakeups do not survive one.
func (s *AlarmService) RescheduleAllAlarms(ctx context.Context) (time.Time, bool) {
	target, ok := s.ScheduleNextAlarm(ctx)
	logger.Info("alarms restored after restart", "armed", ok, "target", target)
	return target, ok
}
