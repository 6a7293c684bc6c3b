package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"plant-care/internal/model"
)

// PlantRepository handles the plant records schedules hang off.
type PlantRepository struct {
	db *gorm.DB
}

func NewPlantRepository(db *gorm.DB) *PlantRepository {
	return &PlantRepository{db: db}
}

func (r *PlantRepository) Create(ctx context.Context, plant *model.Plant) error {
	if plant.ID == "" {
		plant.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Omit("Schedules").Create(plant).Error; err != nil {
		return fmt.Errorf("create plant: %w", err)
	}
	return nil
}

func (r *PlantRepository) GetByID(ctx context.Context, id string) (*model.Plant, error) {
	var plant model.Plant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plant).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &plant, nil
}

func (r *PlantRepository) List(ctx context.Context) ([]model.Plant, error) {
	var plants []model.Plant
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&plants).Error; err != nil {
		return nil, err
	}
	return plants, nil
}

// Delete removes a plant together with its schedules and their completions.
func (r *PlantRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSchedulesForPlant(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Plant{})
		if res.Error != nil {
			return fmt.Errorf("delete plant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
