package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"plant-care/internal/model"
	"plant-care/internal/repository"
)

var testLoc = time.FixedZone("MSK", 3*60*60)

type fixture struct {
	db        *gorm.DB
	plants    *repository.PlantRepository
	schedules *repository.ScheduleRepository
	prefs     *repository.PreferenceRepository
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &fixture{
		db:        db,
		plants:    repository.NewPlantRepository(db),
		schedules: repository.NewScheduleRepository(db),
		prefs: repository.NewPreferenceRepository(db, repository.PreferenceDefaults{
			ReminderTime: model.ClockTime{Hour: 9, Minute: 0},
		}),
		now: time.Date(2026, 10, 17, 10, 0, 0, 0, testLoc),
	}
}

func (f *fixture) clock() Clock {
	return func() time.Time { return f.now }
}

// permissiveWaker accepts any number of arm and cancel calls.
func (f *fixture) permissiveWaker(ctrl *gomock.Controller) *MockWaker {
	waker := NewMockWaker(ctrl)
	waker.EXPECT().Schedule(DailyReminderKey, gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	waker.EXPECT().Cancel(DailyReminderKey).AnyTimes()
	return waker
}

func (f *fixture) alarm(waker Waker) *AlarmService {
	return NewAlarmService(waker, f.prefs, testLoc, f.clock())
}

func (f *fixture) plant(t *testing.T, name string) *model.Plant {
	t.Helper()
	plant := &model.Plant{Name: name}
	if err := f.plants.Create(context.Background(), plant); err != nil {
		t.Fatalf("create plant: %v", err)
	}
	return plant
}

func (f *fixture) schedule(t *testing.T, schedule model.CareSchedule) *model.CareSchedule {
	t.Helper()
	if schedule.FrequencyDays == 0 {
		schedule.FrequencyDays = 7
	}
	if err := f.schedules.InsertOrReplaceSchedule(context.Background(), &schedule); err != nil {
		t.Fatalf("insert schedule: %v", err)
	}
	return &schedule
}

func (f *fixture) reload(t *testing.T, id string) *model.CareSchedule {
	t.Helper()
	schedule, err := f.schedules.GetScheduleByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload schedule %s: %v", id, err)
	}
	return schedule
}

func (f *fixture) complete(t *testing.T, scheduleID string, at time.Time) {
	t.Helper()
	err := f.schedules.InsertCompletion(context.Background(), &model.CareCompletion{
		ScheduleID:  scheduleID,
		CompletedAt: at,
		Source:      model.SourceInApp,
	})
	if err != nil {
		t.Fatalf("insert completion: %v", err)
	}
}

type sameInstant time.Time

// atInstant matches a time.Time equal to want regardless of location.
func atInstant(want time.Time) gomock.Matcher {
	return sameInstant(want)
}

func (m sameInstant) Matches(x any) bool {
	got, ok := x.(time.Time)
	return ok && got.Equal(time.Time(m))
}

func (m sameInstant) String() string {
	return "is the instant " + time.Time(m).Format(time.RFC3339)
}
