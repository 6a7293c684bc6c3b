package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"plant-care/internal/model"
)

const preferenceKeyPrefix = "plantcare:pref:"

// RedisPreferenceRepository keeps reminder preferences in Redis so several
// processes on one device share the same pause flag and reminder time.
type RedisPreferenceRepository struct {
	client   *redis.Client
	defaults PreferenceDefaults
}

func NewRedisPreferenceRepository(client *redis.Client, defaults PreferenceDefaults) *RedisPreferenceRepository {
	return &RedisPreferenceRepository{client: client, defaults: defaults}
}

func (r *RedisPreferenceRepository) RemindersPaused(ctx context.Context) (bool, error) {
	raw, err := r.client.Get(ctx, preferenceKeyPrefix+model.PrefRemindersPaused).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return r.defaults.RemindersPaused, nil
		}
		return r.defaults.RemindersPaused, fmt.Errorf("get %s: %w", model.PrefRemindersPaused, err)
	}
	paused, err := strconv.ParseBool(raw)
	if err != nil {
		return r.defaults.RemindersPaused, fmt.Errorf("parse %s: %w", model.PrefRemindersPaused, err)
	}
	return paused, nil
}

func (r *RedisPreferenceRepository) ReminderTime(ctx context.Context) (model.ClockTime, error) {
	raw, err := r.client.Get(ctx, preferenceKeyPrefix+model.PrefReminderTime).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return r.defaults.ReminderTime, nil
		}
		return r.defaults.ReminderTime, fmt.Errorf("get %s: %w", model.PrefReminderTime, err)
	}
	clock, err := model.ParseClockTime(raw)
	if err != nil {
		return r.defaults.ReminderTime, fmt.Errorf("parse %s: %w", model.PrefReminderTime, err)
	}
	return clock, nil
}

func (r *RedisPreferenceRepository) SetRemindersPaused(ctx context.Context, paused bool) error {
	key := preferenceKeyPrefix + model.PrefRemindersPaused
	if err := r.client.Set(ctx, key, strconv.FormatBool(paused), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", model.PrefRemindersPaused, err)
	}
	return nil
}

func (r *RedisPreferenceRepository) SetReminderTime(ctx context.Context, clock model.ClockTime) error {
	key := preferenceKeyPrefix + model.PrefReminderTime
	if err := r.client.Set(ctx, key, clock.String(), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", model.PrefReminderTime, err)
	}
	return nil
}
