package model

import (
	"strings"
	"time"
)

// CareType is the task category a schedule governs.
type CareType string

const (
	CareWater     CareType = "water"
	CareFertilize CareType = "fertilize"
	CareRepot     CareType = "repot"
	CarePrune     CareType = "prune"
)

// Schedulable reports whether reminders are kept for the care type.
// Pruning is recommended by the vision providers but never scheduled.
func (c CareType) Schedulable() bool {
	switch c {
	case CareWater, CareFertilize, CareRepot:
		return true
	default:
		return false
	}
}

// ParseCareType normalizes free-form provider output ("Water", " repot ").
func ParseCareType(raw string) CareType {
	return CareType(strings.ToLower(strings.TrimSpace(raw)))
}

// CareSchedule is one recurring task for one plant/care-type pair.
type CareSchedule struct {
	ID            string    `gorm:"primaryKey;size:36"`
	PlantID       string    `gorm:"size:36;not null;uniqueIndex:idx_schedule_plant_care_type"`
	CareType      CareType  `gorm:"size:16;not null;uniqueIndex:idx_schedule_plant_care_type"`
	FrequencyDays int       `gorm:"not null;check:chk_schedule_frequency,frequency_days > 0"`
	NextDue       time.Time `gorm:"not null;index"`
	IsCustom      bool      `gorm:"not null"`
	IsEnabled     bool      `gorm:"not null;index"`
	SnoozeCount   int       `gorm:"not null"`
	Notes         string    `gorm:"type:text"`
	// PendingRecommendedFrequencyDays holds an AI frequency that differs from a
	// custom schedule and waits for the user to accept or decline it.
	PendingRecommendedFrequencyDays *int
	Completions                     []CareCompletion `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
	CreatedAt                       time.Time
	UpdatedAt                       time.Time
}

// Frequency returns the schedule period as a duration.
func (s CareSchedule) Frequency() time.Duration {
	return time.Duration(s.FrequencyDays) * 24 * time.Hour
}

// HasPendingRecommendation reports whether an AI frequency awaits confirmation.
func (s CareSchedule) HasPendingRecommendation() bool {
	return s.PendingRecommendedFrequencyDays != nil
}
