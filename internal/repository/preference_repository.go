package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plant-care/internal/model"
)

// PreferenceDefaults apply while a preference has never been written.
type PreferenceDefaults struct {
	RemindersPaused bool
	ReminderTime    model.ClockTime
}

// PreferenceRepository keeps reminder preferences in the preferences table.
type PreferenceRepository struct {
	db       *gorm.DB
	defaults PreferenceDefaults
}

func NewPreferenceRepository(db *gorm.DB, defaults PreferenceDefaults) *PreferenceRepository {
	return &PreferenceRepository{db: db, defaults: defaults}
}

func (r *PreferenceRepository) RemindersPaused(ctx context.Context) (bool, error) {
	raw, ok, err := r.get(ctx, model.PrefRemindersPaused)
	if err != nil || !ok {
		return r.defaults.RemindersPaused, err
	}
	paused, err := strconv.ParseBool(raw)
	if err != nil {
		return r.defaults.RemindersPaused, fmt.Errorf("parse %s: %w", model.PrefRemindersPaused, err)
	}
	return paused, nil
}

func (r *PreferenceRepository) ReminderTime(ctx context.Context) (model.ClockTime, error) {
	raw, ok, err := r.get(ctx, model.PrefReminderTime)
	if err != nil || !ok {
		return r.defaults.ReminderTime, err
	}
	clock, err := model.ParseClockTime(raw)
	if err != nil {
		return r.defaults.ReminderTime, fmt.Errorf("parse %s: %w", model.PrefReminderTime, err)
	}
	return clock, nil
}

func (r *PreferenceRepository) SetRemindersPaused(ctx context.Context, paused bool) error {
	return r.set(ctx, model.PrefRemindersPaused, strconv.FormatBool(paused))
}

func (r *PreferenceRepository) SetReminderTime(ctx context.Context, clock model.ClockTime) error {
	return r.set(ctx, model.PrefReminderTime, clock.String())
}

func (r *PreferenceRepository) get(ctx context.Context, key string) (string, bool, error) {
	var pref model.Preference
	err := r.db.WithContext(ctx).Where(&model.Preference{Key: key}).First(&pref).Error
	switch {
	case err == nil:
		return pref.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("find preference %s: %w", key, err)
	}
}

func (r *PreferenceRepository) set(ctx context.Context, key, value string) error {
	pref := model.Preference{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}
