package service

import (
	"context"
	"errors"
	"fmt"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/repository"
)

// Recommendation is one AI-suggested care task for a plant.
type Recommendation struct {
	CareType      model.CareType `json:"care_type"`
	FrequencyDays int            `json:"frequency_days"`
	Notes         string         `json:"notes,omitempty"`
}

// RecommendationFailure records a recommendation that could not be applied.
type RecommendationFailure struct {
	CareType model.CareType `json:"care_type"`
	Error    string         `json:"error"`
}

// ReconcileResult reports what one reconciliation changed.
type ReconcileResult struct {
	Created           []model.CareSchedule    `json:"created"`
	Updated           []model.CareSchedule    `json:"updated"`
	NeedsConfirmation []model.CareSchedule    `json:"needs_confirmation"`
	Failures          []RecommendationFailure `json:"failures,omitempty"`
}

// ReconcileService merges AI recommendations into a plant's schedules without
// overwriting frequencies the user set by hand.
type ReconcileService struct {
	scheduleRepo *repository.ScheduleRepository
	plantRepo    *repository.PlantRepository
	alarm        *AlarmService
	clock        Clock
}

func NewReconcileService(
	scheduleRepo *repository.ScheduleRepository,
	plantRepo *repository.PlantRepository,
	alarm *AlarmService,
	clock Clock,
) *ReconcileService {
	return &ReconcileService{
		scheduleRepo: scheduleRepo,
		plantRepo:    plantRepo,
		alarm:        alarm,
		clock:        clock,
	}
}

// CreateSchedulesFromRecommendations applies recommendations one by one. A failed
// item is recorded and the rest still run; the daily wakeup is re-armed at the end.
func (s *ReconcileService) CreateSchedulesFromRecommendations(ctx context.Context, plantID string, recs []Recommendation) (ReconcileResult, error) {
	var result ReconcileResult
	if plantID == "" {
		return result, fmt.Errorf("reconcile: empty plant id")
	}
	if _, err := s.plantRepo.GetByID(ctx, plantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, fmt.Errorf("reconcile plant %s: %w", plantID, ErrPlantNotFound)
		}
		return result, fmt.Errorf("load plant: %w", err)
	}
	defer s.alarm.ScheduleNextAlarm(ctx)

	for _, rec := range recs {
		rec.CareType = model.ParseCareType(string(rec.CareType))
		if !rec.CareType.Schedulable() {
			logger.Debug("ignore unschedulable recommendation", "plant", plantID, "care_type", rec.CareType)
			continue
		}
		if rec.FrequencyDays <= 0 {
			result.fail(rec, fmt.Errorf("frequency %d: %w", rec.FrequencyDays, ErrInvalidFrequency))
			continue
		}
		if err := s.reconcileOne(ctx, plantID, rec, &result); err != nil {
			logger.Warn("apply recommendation", "plant", plantID, "care_type", rec.CareType, "error", err)
			result.fail(rec, err)
		}
	}

	logger.Info("recommendations reconciled", "plant", plantID,
		"created", len(result.Created), "updated", len(result.Updated),
		"needs_confirmation", len(result.NeedsConfirmation), "failed", len(result.Failures))
	return result, nil
}

func (s *ReconcileService) reconcileOne(ctx context.Context, plantID string, rec Recommendation, result *ReconcileResult) error {
	now := s.clock.now()

	existing, err := s.scheduleRepo.GetByPlantAndType(ctx, plantID, rec.CareType)
	if errors.Is(err, repository.ErrNotFound) {
		schedule := model.CareSchedule{
			PlantID:       plantID,
			CareType:      rec.CareType,
			FrequencyDays: rec.FrequencyDays,
			NextDue:       ComputeNextDue(rec.FrequencyDays, nil, now),
			IsEnabled:     true,
			Notes:         rec.Notes,
		}
		if err := s.scheduleRepo.InsertOrReplaceSchedule(ctx, &schedule); err != nil {
			return err
		}
		result.Created = append(result.Created, schedule)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find schedule: %w", err)
	}

	if existing.IsCustom {
		if existing.FrequencyDays == rec.FrequencyDays {
			return nil
		}
		days := rec.FrequencyDays
		existing.Notes = withRecommendation(existing.Notes, days)
		existing.PendingRecommendedFrequencyDays = &days
		if err := s.scheduleRepo.UpdateSchedule(ctx, existing); err != nil {
			return err
		}
		result.NeedsConfirmation = append(result.NeedsConfirmation, *existing)
		return nil
	}

	last, err := s.scheduleRepo.GetLastCompletion(ctx, existing.ID)
	if err != nil {
		return err
	}
	existing.FrequencyDays = rec.FrequencyDays
	existing.Notes = rec.Notes
	existing.NextDue = ComputeNextDue(rec.FrequencyDays, completedAt(last), now)
	if err := s.scheduleRepo.UpdateSchedule(ctx, existing); err != nil {
		return err
	}
	result.Updated = append(result.Updated, *existing)
	return nil
}

func (r *ReconcileResult) fail(rec Recommendation, err error) {
	r.Failures = append(r.Failures, RecommendationFailure{CareType: rec.CareType, Error: err.Error()})
}
