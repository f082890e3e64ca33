package presence

import (
	"errors"
	"sync"
	"time"

	"echospace/backend/internal/models"
	"echospace/backend/internal/storage"
)

// recordingStorage is a test double for storage.Storage that records every
// avatar-state write and serves canned snapshots and profiles.
type recordingStorage struct {
	mu sync.Mutex

	upserts   []models.AvatarState
	upsertErr error

	snapshots   map[string][]models.AvatarState
	snapshotErr error

	profiles       map[string]*models.Profile
	profileErr     error
	profileFetches int
	fetchDelay     time.Duration

	states   map[string]*models.AvatarState
	stateErr error
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{
		snapshots: make(map[string][]models.AvatarState),
		profiles:  make(map[string]*models.Profile),
		states:    make(map[string]*models.AvatarState),
	}
}

func (r *recordingStorage) setSavedState(state models.AvatarState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.ProfileID+"/"+state.RoomID] = &state
}

func (r *recordingStorage) Upserts() []models.AvatarState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AvatarState, len(r.upserts))
	copy(out, r.upserts)
	return out
}

func (r *recordingStorage) ProfileFetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profileFetches
}

func (r *recordingStorage) UpsertAvatarState(state *models.AvatarState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts = append(r.upserts, *state)
	return nil
}

func (r *recordingStorage) GetRoomSnapshot(roomID string) ([]models.AvatarState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshotErr != nil {
		return nil, r.snapshotErr
	}
	return r.snapshots[roomID], nil
}

func (r *recordingStorage) GetProfileByID(id string) (*models.Profile, error) {
	r.mu.Lock()
	r.profileFetches++
	delay := r.fetchDelay
	err := r.profileErr
	profile := r.profiles[id]
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, storage.ErrProfileNotFound
	}
	return profile, nil
}

func (r *recordingStorage) SaveProfile(profile *models.Profile) error { return nil }

func (r *recordingStorage) GetAvatarState(profileID, roomID string) (*models.AvatarState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stateErr != nil {
		return nil, r.stateErr
	}
	return r.states[profileID+"/"+roomID], nil
}

func (r *recordingStorage) DeleteAvatarState(profileID, roomID string) error { return nil }

func (r *recordingStorage) MarkAvatarOffline(profileID, roomID string) error { return nil }

func (r *recordingStorage) DemoteStaleAvatars(cutoff time.Time) ([]models.AvatarState, error) {
	return nil, nil
}

func (r *recordingStorage) CountRoomOccupancy() ([]storage.RoomOccupancy, error) { return nil, nil }

func (r *recordingStorage) CreateLobby(lobby *models.CustomLobby) error {
	return errors.New("not used")
}

func (r *recordingStorage) SaveLobby(lobby *models.CustomLobby) error { return errors.New("not used") }

func (r *recordingStorage) GetLobbyByCode(code string) (*models.CustomLobby, error) {
	return nil, storage.ErrLobbyNotFound
}

func (r *recordingStorage) ListPublicLobbies(search string, limit, offset int) ([]models.CustomLobby, error) {
	return nil, nil
}

func (r *recordingStorage) DeleteLobby(code, createdBy string) error { return storage.ErrLobbyNotFound }

func (r *recordingStorage) SavePrivateMessage(msg *models.PrivateMessage) error { return nil }

func (r *recordingStorage) GetConversation(lobbyCode, profileA, profileB string, limit int) ([]models.PrivateMessage, error) {
	return nil, nil
}

func (r *recordingStorage) MarkConversationRead(lobbyCode, reader, other string) error { return nil }

// fakeSubscription is an in-memory Subscription the tests feed by hand.
type fakeSubscription struct {
	roomID    string
	events    chan models.PresenceEvent
	status    chan Status
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSubscription(roomID string) *fakeSubscription {
	return &fakeSubscription{
		roomID: roomID,
		events: make(chan models.PresenceEvent, 16),
		status: make(chan Status, 4),
		closed: make(chan struct{}),
	}
}

func (f *fakeSubscription) Events() <-chan models.PresenceEvent { return f.events }
func (f *fakeSubscription) Status() <-chan Status               { return f.status }

func (f *fakeSubscription) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		close(f.events)
		close(f.status)
	})
	return nil
}

func (f *fakeSubscription) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// fakeTransport hands out fake subscriptions, emitting one scripted status
// per Subscribe call (StatusSubscribed once the script runs out).
type fakeTransport struct {
	mu       sync.Mutex
	subs     []*fakeSubscription
	statuses []Status
}

func (t *fakeTransport) Subscribe(roomID string) Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub := newFakeSubscription(roomID)
	st := StatusSubscribed
	if len(t.statuses) > 0 {
		st = t.statuses[0]
		t.statuses = t.statuses[1:]
	}
	sub.status <- st
	t.subs = append(t.subs, sub)
	return sub
}

func (t *fakeTransport) sub(i int) *fakeSubscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subs[i]
}

func (t *fakeTransport) subCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// eventSink records the server envelopes a controller emits.
type eventSink struct {
	mu     sync.Mutex
	events []models.ServerEvent
}

func (s *eventSink) record(ev models.ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) all() []models.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ServerEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *eventSink) ofType(t string) []models.ServerEvent {
	var out []models.ServerEvent
	for _, ev := range s.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
