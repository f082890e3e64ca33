package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"echospace/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrLobbyNotFound   = errors.New("lobby not found")
	ErrLobbyCodeTaken  = errors.New("lobby code already taken")
)

type Storage interface {
	SaveProfile(profile *models.Profile) error
	GetProfileByID(id string) (*models.Profile, error)

	GetRoomSnapshot(roomID string) ([]models.AvatarState, error)
	GetAvatarState(profileID, roomID string) (*models.AvatarState, error)
	UpsertAvatarState(state *models.AvatarState) error
	DeleteAvatarState(profileID, roomID string) error
	MarkAvatarOffline(profileID, roomID string) error
	DemoteStaleAvatars(cutoff time.Time) ([]models.AvatarState, error)
	CountRoomOccupancy() ([]RoomOccupancy, error)

	CreateLobby(lobby *models.CustomLobby) error
	SaveLobby(lobby *models.CustomLobby) error
	GetLobbyByCode(code string) (*models.CustomLobby, error)
	ListPublicLobbies(search string, limit, offset int) ([]models.CustomLobby, error)
	DeleteLobby(code, createdBy string) error

	SavePrivateMessage(msg *models.PrivateMessage) error
	GetConversation(lobbyCode, profileA, profileB string, limit int) ([]models.PrivateMessage, error)
	MarkConversationRead(lobbyCode, reader, other string) error
}

// RoomOccupancy is one row of the per-room avatar count report.
type RoomOccupancy struct {
	RoomID  string
	Avatars int
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveProfile stores a profile in PostgreSQL.
func (s *Service) SaveProfile(profile *models.Profile) error {
	return s.DB.Save(profile).Error
}

// GetProfileByID loads a profile by its ID.
func (s *Service) GetProfileByID(id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get profile %s: %v", id, err)
		return nil, err
	}
	return &profile, nil
}

// GetRoomSnapshot returns every avatar state row currently in a room. Used to
// prime a newly joining client before incremental events are trusted.
func (s *Service) GetRoomSnapshot(roomID string) ([]models.AvatarState, error) {
	var states []models.AvatarState
	if err := s.DB.Where("room_id = ?", roomID).Find(&states).Error; err != nil {
		log.Printf("ERROR: Failed to load snapshot for room %s: %v", roomID, err)
		return nil, err
	}
	return states, nil
}

// GetAvatarState loads a single (profile, room) row, nil if absent.
func (s *Service) GetAvatarState(profileID, roomID string) (*models.AvatarState, error) {
	var state models.AvatarState
	err := s.DB.Where("profile_id = ? AND room_id = ?", profileID, roomID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// UpsertAvatarState writes an avatar state row keyed on (profile_id, room_id)
// and fans the change out on the room's pub/sub channel. The database write is
// the source of truth; the publish is the realtime echo of it, so every
// mutation path goes through here.
func (s *Service) UpsertAvatarState(state *models.AvatarState) error {
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "room_id"}},
		UpdateAll: true,
	}).Create(state).Error
	if err != nil {
		log.Printf("ERROR: Failed to upsert avatar state for %s in room %s: %v", state.ProfileID, state.RoomID, err)
		return err
	}

	return s.publishPresence(models.PresenceEvent{
		Type:      models.PresenceUpserted,
		RoomID:    state.RoomID,
		ProfileID: state.ProfileID,
		State:     state,
	})
}

// DeleteAvatarState removes a (profile, room) row and publishes the removal.
func (s *Service) DeleteAvatarState(profileID, roomID string) error {
	err := s.DB.Where("profile_id = ? AND room_id = ?", profileID, roomID).
		Delete(&models.AvatarState{}).Error
	if err != nil {
		return err
	}

	return s.publishPresence(models.PresenceEvent{
		Type:      models.PresenceRemoved,
		RoomID:    roomID,
		ProfileID: profileID,
	})
}

// MarkAvatarOffline flips a row to its stand-in form (is_live = false). Used
// by the unload beacon and the admin CLI when the owning client cannot issue
// a clean stop itself. No-op if the row does not exist.
func (s *Service) MarkAvatarOffline(profileID, roomID string) error {
	state, err := s.GetAvatarState(profileID, roomID)
	if err != nil {
		return err
	}
	if state == nil || !state.IsLive {
		return nil
	}

	state.Demote(time.Now())
	return s.UpsertAvatarState(state)
}

// DemoteStaleAvatars finds rows still marked live whose last_activity predates
// the cutoff and demotes each to a stand-in, publishing every change. Returns
// the demoted rows. Live rows are kept fresh by the publisher heartbeat, so
// anything this catches belongs to a client that vanished without a stop.
func (s *Service) DemoteStaleAvatars(cutoff time.Time) ([]models.AvatarState, error) {
	var candidates []models.AvatarState
	err := s.DB.Where("is_live = ? AND last_activity < ?", true, cutoff).Find(&candidates).Error
	if err != nil {
		log.Printf("ERROR: Failed to query stale avatar rows: %v", err)
		return nil, err
	}

	var demoted []models.AvatarState
	for i := range candidates {
		state := &candidates[i]
		if !state.StaleAt(cutoff) {
			continue
		}
		state.Demote(time.Now())
		if err := s.UpsertAvatarState(state); err != nil {
			return demoted, err
		}
		demoted = append(demoted, *state)
	}
	return demoted, nil
}

// CountRoomOccupancy reports how many avatar rows each room holds.
func (s *Service) CountRoomOccupancy() ([]RoomOccupancy, error) {
	var rows []RoomOccupancy
	err := s.DB.Model(&models.AvatarState{}).
		Select("room_id, count(*) as avatars").
		Group("room_id").
		Order("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// publishPresence publishes a presence event on the room's Redis channel.
func (s *Service) publishPresence(ev models.PresenceEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if err := s.Redis.Publish(s.Ctx, models.RoomChannel(ev.RoomID), payload).Err(); err != nil {
		log.Printf("ERROR: Failed to publish presence event for room %s: %v", ev.RoomID, err)
		return err
	}
	return nil
}

// CreateLobby inserts a new custom lobby. A join-code collision comes back as
// ErrLobbyCodeTaken so the caller can mint another code; insertion never
// overwrites an existing lobby. Requires TranslateError on the gorm session.
func (s *Service) CreateLobby(lobby *models.CustomLobby) error {
	err := s.DB.Create(lobby).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrLobbyCodeTaken
	}
	return err
}

// SaveLobby stores an existing custom lobby in PostgreSQL.
func (s *Service) SaveLobby(lobby *models.CustomLobby) error {
	return s.DB.Save(lobby).Error
}

// GetLobbyByCode loads a custom lobby by its join code.
func (s *Service) GetLobbyByCode(code string) (*models.CustomLobby, error) {
	var lobby models.CustomLobby
	err := s.DB.Where("lobby_code = ?", code).First(&lobby).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLobbyNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get lobby %s: %v", code, err)
		return nil, err
	}
	return &lobby, nil
}

// ListPublicLobbies returns public lobbies, newest first, optionally filtered
// by a name/description substring.
func (s *Service) ListPublicLobbies(search string, limit, offset int) ([]models.CustomLobby, error) {
	var lobbies []models.CustomLobby

	query := s.DB.Where("is_public = ?", true)
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&lobbies).Error
	if err != nil {
		log.Printf("ERROR: Failed to list public lobbies: %v", err)
		return nil, err
	}
	return lobbies, nil
}

// SavePrivateMessage persists a direct message and fans it out on the shared
// direct-message channel. Like avatar upserts, the database write is the
// source of truth and the publish is its realtime echo.
func (s *Service) SavePrivateMessage(msg *models.PrivateMessage) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save private message from %s: %v", msg.FromProfileID, err)
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(s.Ctx, models.DirectChannel, payload).Err(); err != nil {
		log.Printf("ERROR: Failed to publish private message %s: %v", msg.ID, err)
		return err
	}
	return nil
}

// GetConversation returns the messages exchanged between two participants in
// a lobby, newest first.
func (s *Service) GetConversation(lobbyCode, profileA, profileB string, limit int) ([]models.PrivateMessage, error) {
	var messages []models.PrivateMessage
	err := s.DB.
		Where("lobby_code = ?", lobbyCode).
		Where("(from_profile_id = ? AND to_profile_id = ?) OR (from_profile_id = ? AND to_profile_id = ?)",
			profileA, profileB, profileB, profileA).
		Order("created_at desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		log.Printf("ERROR: Failed to load conversation in lobby %s: %v", lobbyCode, err)
		return nil, err
	}
	return messages, nil
}

// MarkConversationRead flags every unread message the other participant sent
// the reader in a lobby as read.
func (s *Service) MarkConversationRead(lobbyCode, reader, other string) error {
	return s.DB.Model(&models.PrivateMessage{}).
		Where("lobby_code = ? AND from_profile_id = ? AND to_profile_id = ? AND is_read = ?",
			lobbyCode, other, reader, false).
		Update("is_read", true).Error
}

// DeleteLobby removes a custom lobby; only its creator may delete it.
func (s *Service) DeleteLobby(code, createdBy string) error {
	result := s.DB.Where("lobby_code = ? AND created_by = ?", code, createdBy).
		Delete(&models.CustomLobby{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLobbyNotFound
	}
	return nil
}
