package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
)

// PrivateMessage is one direct message between two participants, scoped to
// the lobby it was sent in. Conversations are the unordered pair of profile
// IDs within one lobby; IsRead flips once the recipient opens the thread.
type PrivateMessage struct {
	ID            string    `gorm:"primaryKey;type:text" json:"id"`
	LobbyCode     string    `gorm:"index:idx_private_messages_conv;type:text" json:"lobby_code"`
	FromProfileID string    `gorm:"index:idx_private_messages_conv;type:text" json:"from_profile_id"`
	ToProfileID   string    `gorm:"index:idx_private_messages_conv;type:text" json:"to_profile_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *PrivateMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
