package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq" // Required for pq.StringArray
	"gorm.io/gorm"
)

// Profile represents a persistent participant identity in the system.
// A profile is long-lived and independent of room membership; it backs both
// the live user and their autonomous stand-in ("digital twin").
type Profile struct {
	ID                  string         `gorm:"primaryKey" json:"id"` // Anonymous UUID
	Username            string         `gorm:"uniqueIndex" json:"username"`
	SelectedAvatarModel string         `json:"selected_avatar_model"` // Opaque pointer to the visual asset
	Bio                 string         `gorm:"type:text" json:"bio"`
	Interests           pq.StringArray `gorm:"type:text[]" json:"interests"`
	AIPersonality       string         `gorm:"type:text" json:"ai_personality"` // Free-text descriptor driving the stand-in
}

// BeforeCreate is a GORM hook invoked before a record is created.
// It generates a new UUID for the profile if no ID is set yet.
func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}
