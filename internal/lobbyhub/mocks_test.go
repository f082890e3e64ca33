package lobbyhub_test

import (
	"sync"
	"time"

	"echospace/backend/internal/models"
	"echospace/backend/internal/presence"
	"echospace/backend/internal/storage"
)

// stubStorage is a minimal storage.Storage double: canned snapshots, recorded
// avatar-state writes.
type stubStorage struct {
	mu        sync.Mutex
	upserts   []models.AvatarState
	snapshots map[string][]models.AvatarState
	messages  []models.PrivateMessage
}

func newStubStorage() *stubStorage {
	return &stubStorage{snapshots: make(map[string][]models.AvatarState)}
}

func (s *stubStorage) Upserts() []models.AvatarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AvatarState, len(s.upserts))
	copy(out, s.upserts)
	return out
}

func (s *stubStorage) UpsertAvatarState(state *models.AvatarState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, *state)
	return nil
}

func (s *stubStorage) GetRoomSnapshot(roomID string) ([]models.AvatarState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[roomID], nil
}

func (s *stubStorage) SaveProfile(profile *models.Profile) error { return nil }

func (s *stubStorage) GetProfileByID(id string) (*models.Profile, error) {
	return &models.Profile{ID: id, Username: "someone"}, nil
}

func (s *stubStorage) GetAvatarState(profileID, roomID string) (*models.AvatarState, error) {
	return nil, nil
}

func (s *stubStorage) DeleteAvatarState(profileID, roomID string) error { return nil }
func (s *stubStorage) MarkAvatarOffline(profileID, roomID string) error { return nil }

func (s *stubStorage) DemoteStaleAvatars(cutoff time.Time) ([]models.AvatarState, error) {
	return nil, nil
}

func (s *stubStorage) CountRoomOccupancy() ([]storage.RoomOccupancy, error) { return nil, nil }
func (s *stubStorage) SaveLobby(lobby *models.CustomLobby) error            { return nil }

func (s *stubStorage) GetLobbyByCode(code string) (*models.CustomLobby, error) {
	return nil, storage.ErrLobbyNotFound
}

func (s *stubStorage) ListPublicLobbies(search string, limit, offset int) ([]models.CustomLobby, error) {
	return nil, nil
}

func (s *stubStorage) CreateLobby(lobby *models.CustomLobby) error { return nil }

func (s *stubStorage) DeleteLobby(code, createdBy string) error { return storage.ErrLobbyNotFound }

func (s *stubStorage) SavePrivateMessage(msg *models.PrivateMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *stubStorage) Messages() []models.PrivateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PrivateMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *stubStorage) GetConversation(lobbyCode, profileA, profileB string, limit int) ([]models.PrivateMessage, error) {
	return nil, nil
}

func (s *stubStorage) MarkConversationRead(lobbyCode, reader, other string) error { return nil }

// stubTransport yields subscriptions that confirm immediately.
type stubTransport struct{}

func (t *stubTransport) Subscribe(roomID string) presence.Subscription {
	sub := &stubSubscription{
		events: make(chan models.PresenceEvent, 16),
		status: make(chan presence.Status, 4),
	}
	sub.status <- presence.StatusSubscribed
	return sub
}

type stubSubscription struct {
	events    chan models.PresenceEvent
	status    chan presence.Status
	closeOnce sync.Once
}

func (s *stubSubscription) Events() <-chan models.PresenceEvent { return s.events }
func (s *stubSubscription) Status() <-chan presence.Status      { return s.status }

func (s *stubSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.events)
		close(s.status)
	})
	return nil
}

// MockClient is a test double for the lobbyhub.Client interface.
type MockClient struct {
	profileID string
	send      chan models.ServerEvent
	mu        sync.Mutex
	closed    bool
}

func newMockClient(id string) *MockClient {
	return &MockClient{
		profileID: id,
		send:      make(chan models.ServerEvent, 16), // Buffered to prevent blocking in tests
	}
}

func (c *MockClient) GetProfileID() string                      { return c.profileID }
func (c *MockClient) GetSendChannel() chan<- models.ServerEvent { return c.send }
func (c *MockClient) Run()                                      {}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DrainEvents empties the send channel for assertions.
func (c *MockClient) DrainEvents() []models.ServerEvent {
	var events []models.ServerEvent
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}
