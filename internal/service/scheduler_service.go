package service

import (
	"fmt"
	stdlog "log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"plant-care/internal/logger"
)

//go:generate mockgen -source=scheduler_service.go -destination=waker_mock.go -package=service

// Waker is the wakeup primitive: at most one pending wakeup per key, and
// scheduling an existing key replaces it.
type Waker interface {
	Schedule(key string, at time.Time, fire func()) error
	Cancel(key string)
}

// onceSchedule fires a single time at a fixed instant.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	// Zero time tells cron the entry never runs again.
	return time.Time{}
}

type wakeEntry struct {
	id cron.EntryID
	at time.Time
}

// SchedulerService wraps cron and keys one-shot wakeups by name.
type SchedulerService struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]wakeEntry
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	cronLogger := cron.PrintfLogger(stdlog.New(logger.Writer(), "cron: ", stdlog.LstdFlags))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		entries: make(map[string]wakeEntry),
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Schedule registers fire to run once at the given instant under key.
func (s *SchedulerService) Schedule(key string, at time.Time, fire func()) error {
	if !at.After(time.Now()) {
		return fmt.Errorf("wake time %s for %q is not in the future", at.Format(time.RFC3339), key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[key]; ok {
		s.cron.Remove(prev.id)
		delete(s.entries, key)
	}

	var id cron.EntryID
	id = s.cron.Schedule(onceSchedule{at: at}, cron.FuncJob(func() {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.id == id {
			delete(s.entries, key)
			s.cron.Remove(id)
		}
		s.mu.Unlock()
		fire()
	}))
	s.entries[key] = wakeEntry{id: id, at: at}
	return nil
}

// Cancel removes the pending wakeup for key, if any.
func (s *SchedulerService) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[key]; ok {
		s.cron.Remove(prev.id)
		delete(s.entries, key)
	}
}

// Next reports when the wakeup registered under key fires.
func (s *SchedulerService) Next(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry.at, ok
}
