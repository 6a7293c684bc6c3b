package repository

import (
	"context"
	"testing"

	"plant-care/internal/model"
)

func TestPreferenceRepositoryDefaultsAndOverrides(t *testing.T) {
	ctx := context.Background()
	defaults := PreferenceDefaults{ReminderTime: model.ClockTime{Hour: 9}}
	repo := NewPreferenceRepository(openTestDB(t), defaults)

	paused, err := repo.RemindersPaused(ctx)
	if err != nil || paused {
		t.Fatalf("RemindersPaused() = %v, %v; want default false", paused, err)
	}
	clock, err := repo.ReminderTime(ctx)
	if err != nil || clock != defaults.ReminderTime {
		t.Fatalf("ReminderTime() = %v, %v; want default", clock, err)
	}

	if err := repo.SetRemindersPaused(ctx, true); err != nil {
		t.Fatalf("SetRemindersPaused: %v", err)
	}
	if err := repo.SetReminderTime(ctx, model.ClockTime{Hour: 20, Minute: 30}); err != nil {
		t.Fatalf("SetReminderTime: %v", err)
	}
	// Overwrite once more to exercise the upsert path.
	if err := repo.SetReminderTime(ctx, model.ClockTime{Hour: 7, Minute: 45}); err != nil {
		t.Fatalf("SetReminderTime: %v", err)
	}

	paused, _ = repo.RemindersPaused(ctx)
	if !paused {
		t.Error("expected reminders to be paused")
	}
	clock, _ = repo.ReminderTime(ctx)
	if clock != (model.ClockTime{Hour: 7, Minute: 45}) {
		t.Errorf("ReminderTime() = %v, want 07:45", clock)
	}
}
