package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plant-care/internal/model"
)

// ScheduleRepository handles care schedules and their completion history.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *ScheduleRepository) Transaction(ctx context.Context, fn func(repo *ScheduleRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ScheduleRepository{db: tx})
	})
}

func (r *ScheduleRepository) GetSchedulesByPlant(ctx context.Context, plantID string) ([]model.CareSchedule, error) {
	var schedules []model.CareSchedule
	if err := r.db.WithContext(ctx).Where("plant_id = ?", plantID).
		Order("care_type ASC").
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepository) GetByPlantAndType(ctx context.Context, plantID string, careType model.CareType) (*model.CareSchedule, error) {
	var schedule model.CareSchedule
	if err := r.db.WithContext(ctx).Where("plant_id = ? AND care_type = ?", plantID, careType).
		First(&schedule).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &schedule, nil
}

// GetDueSchedules lists enabled schedules due at or before the given instant.
func (r *ScheduleRepository) GetDueSchedules(ctx context.Context, before time.Time) ([]model.CareSchedule, error) {
	var schedules []model.CareSchedule
	if err := r.db.WithContext(ctx).Where("is_enabled = ? AND next_due <= ?", true, before.UTC()).
		Order("next_due ASC, id ASC").
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepository) GetScheduleByID(ctx context.Context, id string) (*model.CareSchedule, error) {
	var schedule model.CareSchedule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &schedule, nil
}

// InsertOrReplaceSchedule writes the full row, replacing any row with the same ID.
func (r *ScheduleRepository) InsertOrReplaceSchedule(ctx context.Context, schedule *model.CareSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.NextDue = schedule.NextDue.UTC()
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(schedule).Error
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// UpdateSchedule overwrites every column of an existing schedule.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule *model.CareSchedule) error {
	if schedule.ID == "" {
		return fmt.Errorf("update schedule: missing id")
	}
	schedule.NextDue = schedule.NextDue.UTC()
	res := r.db.WithContext(ctx).Model(schedule).
		Select("*").
		Omit("CreatedAt", clause.Associations).
		Updates(schedule)
	if res.Error != nil {
		return fmt.Errorf("update schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabledForPlant flips the reminder toggle for every schedule of a plant.
func (r *ScheduleRepository) SetEnabledForPlant(ctx context.Context, plantID string, enabled bool) error {
	if err := r.db.WithContext(ctx).Model(&model.CareSchedule{}).
		Where("plant_id = ?", plantID).
		Update("is_enabled", enabled).Error; err != nil {
		return fmt.Errorf("toggle schedules: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) DeleteSchedulesForPlant(ctx context.Context, plantID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteSchedulesForPlant(tx, plantID)
	})
}

func deleteSchedulesForPlant(tx *gorm.DB, plantID string) error {
	owned := tx.Model(&model.CareSchedule{}).Select("id").Where("plant_id = ?", plantID)
	if err := tx.Where("schedule_id IN (?)", owned).Delete(&model.CareCompletion{}).Error; err != nil {
		return fmt.Errorf("delete completions: %w", err)
	}
	if err := tx.Where("plant_id = ?", plantID).Delete(&model.CareSchedule{}).Error; err != nil {
		return fmt.Errorf("delete schedules: %w", err)
	}
	return nil
}

// GetLastCompletion returns the most recent real completion, or nil when there is none.
// Snooze history rows are not completions.
func (r *ScheduleRepository) GetLastCompletion(ctx context.Context, scheduleID string) (*model.CareCompletion, error) {
	var completion model.CareCompletion
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND source <> ?", scheduleID, model.SourceSnooze).
		Order("completed_at DESC, rowid DESC").
		Take(&completion).Error
	switch {
	case err == nil:
		return &completion, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find last completion: %w", err)
	}
}

// GetLatestActivity returns the newest history row of any source, snoozes
// included. Rows with the same timestamp are ordered by insertion.
func (r *ScheduleRepository) GetLatestActivity(ctx context.Context, scheduleID string) (*model.CareCompletion, error) {
	var completion model.CareCompletion
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("completed_at DESC, rowid DESC").
		Take(&completion).Error
	switch {
	case err == nil:
		return &completion, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find latest activity: %w", err)
	}
}

func (r *ScheduleRepository) InsertCompletion(ctx context.Context, completion *model.CareCompletion) error {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	completion.CompletedAt = completion.CompletedAt.UTC()
	if err := r.db.WithContext(ctx).Create(completion).Error; err != nil {
		return fmt.Errorf("create completion: %w", err)
	}
	return nil
}

// ListCompletions returns the history of a schedule, newest first.
func (r *ScheduleRepository) ListCompletions(ctx context.Context, scheduleID string, includeSnoozes bool) ([]model.CareCompletion, error) {
	query := r.db.WithContext(ctx).Where("schedule_id = ?", scheduleID)
	if !includeSnoozes {
		query = query.Where("source <> ?", model.SourceSnooze)
	}
	var completions []model.CareCompletion
	if err := query.Order("completed_at DESC, rowid DESC").Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}
