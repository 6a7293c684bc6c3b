package service

import (
	"testing"
	"time"
)

func newStartedScheduler(t *testing.T) *SchedulerService {
	t.Helper()
	s := NewSchedulerService(time.UTC)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestSchedulerFiresOnce(t *testing.T) {
	s := newStartedScheduler(t)
	fired := make(chan struct{}, 2)

	if err := s.Schedule("wake", time.Now().Add(200*time.Millisecond), func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, ok := s.Next("wake"); !ok {
		t.Error("expected a pending wakeup")
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("wakeup did not fire")
	}

	select {
	case <-fired:
		t.Error("wakeup fired twice")
	case <-time.After(300 * time.Millisecond):
	}
	if _, ok := s.Next("wake"); ok {
		t.Error("fired wakeup still registered")
	}
}

func TestSchedulerReplacesByKey(t *testing.T) {
	s := newStartedScheduler(t)
	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)

	if err := s.Schedule("wake", time.Now().Add(200*time.Millisecond), func() { first <- struct{}{} }); err != nil {
		t.Fatalf("Schedule first: %v", err)
	}
	at := time.Now().Add(400 * time.Millisecond)
	if err := s.Schedule("wake", at, func() { second <- struct{}{} }); err != nil {
		t.Fatalf("Schedule second: %v", err)
	}
	if next, ok := s.Next("wake"); !ok || !next.Equal(at) {
		t.Errorf("Next() = %v, %v; want %v", next, ok, at)
	}

	select {
	case <-second:
	case <-time.After(3 * time.Second):
		t.Fatal("replacement wakeup did not fire")
	}
	select {
	case <-first:
		t.Error("replaced wakeup still fired")
	default:
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := newStartedScheduler(t)
	fired := make(chan struct{}, 1)

	if err := s.Schedule("wake", time.Now().Add(200*time.Millisecond), func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Cancel("wake")
	s.Cancel("unknown")

	select {
	case <-fired:
		t.Error("cancelled wakeup fired")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestSchedulerRejectsPastTimes(t *testing.T) {
	s := newStartedScheduler(t)
	if err := s.Schedule("wake", time.Now().Add(-time.Minute), func() {}); err == nil {
		t.Error("expected an error for a past wake time")
	}
}
