package models

import (
	"math/rand"
	"time"

	"github.com/lib/pq"
)

const lobbyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CustomLobby represents a user-created room. Built-in rooms are implicit
// (any room ID is a valid presence scope); custom lobbies add discoverability
// via a short join code and host configuration for the room's AI host.
type CustomLobby struct {
	// LobbyCode is the unique 6-character join code (A-Z, 0-9).
	LobbyCode   string `gorm:"primaryKey" json:"lobby_code"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Theme       string `json:"theme"`
	MaxPlayers  int    `json:"max_players"`
	// CreatedBy is the profile ID of the creator; update/delete are restricted
	// to it.
	CreatedBy string         `gorm:"index;not null" json:"created_by"`
	IsPublic  bool           `gorm:"index" json:"is_public"`
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`

	// Host configuration: either the creator's own profile fronts the room's
	// host NPC, or a custom name/avatar pair does.
	HostUsesCreatorProfile  bool   `json:"host_uses_creator_profile"`
	CustomHostName          string `json:"custom_host_name"`
	CustomHostAvatar        string `json:"custom_host_avatar"`
	AdditionalHostKnowledge string `gorm:"type:text" json:"additional_host_knowledge"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLobbyCode generates a random 6-character join code.
func NewLobbyCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = lobbyCodeAlphabet[rand.Intn(len(lobbyCodeAlphabet))]
	}
	return string(b)
}
