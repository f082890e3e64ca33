package handler

import (
	"sync"
	"time"

	"echospace/backend/internal/models"
	"echospace/backend/internal/presence"
	"echospace/backend/internal/storage"
)

// fakeStorage is a minimal storage.Storage double recording profile saves and
// lobby-creation attempts.
type fakeStorage struct {
	mu sync.Mutex

	savedProfiles []models.Profile

	createLobbyErrs []error // Popped per CreateLobby call, nil once drained
	createdCodes    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{}
}

func (f *fakeStorage) CreatedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.createdCodes))
	copy(out, f.createdCodes)
	return out
}

func (f *fakeStorage) SaveProfile(profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedProfiles = append(f.savedProfiles, *profile)
	return nil
}

func (f *fakeStorage) GetProfileByID(id string) (*models.Profile, error) {
	return nil, storage.ErrProfileNotFound
}

func (f *fakeStorage) GetRoomSnapshot(roomID string) ([]models.AvatarState, error) {
	return nil, nil
}

func (f *fakeStorage) GetAvatarState(profileID, roomID string) (*models.AvatarState, error) {
	return nil, nil
}

func (f *fakeStorage) UpsertAvatarState(state *models.AvatarState) error { return nil }
func (f *fakeStorage) DeleteAvatarState(profileID, roomID string) error  { return nil }
func (f *fakeStorage) MarkAvatarOffline(profileID, roomID string) error  { return nil }

func (f *fakeStorage) DemoteStaleAvatars(cutoff time.Time) ([]models.AvatarState, error) {
	return nil, nil
}

func (f *fakeStorage) CountRoomOccupancy() ([]storage.RoomOccupancy, error) { return nil, nil }

func (f *fakeStorage) CreateLobby(lobby *models.CustomLobby) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdCodes = append(f.createdCodes, lobby.LobbyCode)
	if len(f.createLobbyErrs) > 0 {
		err := f.createLobbyErrs[0]
		f.createLobbyErrs = f.createLobbyErrs[1:]
		return err
	}
	return nil
}

func (f *fakeStorage) SaveLobby(lobby *models.CustomLobby) error { return nil }

func (f *fakeStorage) GetLobbyByCode(code string) (*models.CustomLobby, error) {
	return nil, storage.ErrLobbyNotFound
}

func (f *fakeStorage) ListPublicLobbies(search string, limit, offset int) ([]models.CustomLobby, error) {
	return nil, nil
}

func (f *fakeStorage) DeleteLobby(code, createdBy string) error { return storage.ErrLobbyNotFound }

func (f *fakeStorage) SavePrivateMessage(msg *models.PrivateMessage) error { return nil }

func (f *fakeStorage) GetConversation(lobbyCode, profileA, profileB string, limit int) ([]models.PrivateMessage, error) {
	return nil, nil
}

func (f *fakeStorage) MarkConversationRead(lobbyCode, reader, other string) error { return nil }

// fakeTransport satisfies the hub's transport dependency; these tests never
// open a room.
type fakeTransport struct{}

func (fakeTransport) Subscribe(roomID string) presence.Subscription {
	sub := &fakeSubscription{
		events: make(chan models.PresenceEvent),
		status: make(chan presence.Status, 1),
	}
	sub.status <- presence.StatusSubscribed
	return sub
}

type fakeSubscription struct {
	events chan models.PresenceEvent
	status chan presence.Status
}

func (s *fakeSubscription) Events() <-chan models.PresenceEvent { return s.events }
func (s *fakeSubscription) Status() <-chan presence.Status      { return s.status }
func (s *fakeSubscription) Close() error                        { return nil }
