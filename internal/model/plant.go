package model

import "time"

// Plant is the owner of care schedules. Only the fields reminders need are kept.
type Plant struct {
	ID        string         `gorm:"primaryKey;size:36"`
	Name      string         `gorm:"not null"`
	Species   string
	Schedules []CareSchedule `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName prefers the user-given name and falls back to the species.
func (p Plant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Species != "" {
		return p.Species
	}
	return "Растение"
}
