// Package presence implements the shared avatar-state synchronization core:
// a per-room view of every participant's avatar kept eventually consistent
// from an at-least-once event stream, plus the throttled publisher for the
// local participant's own state.
package presence

import (
	"sync"

	"echospace/backend/internal/models"
)

// Store is the authoritative local view of other participants' avatar states
// for the current room. It is primed from a full snapshot, then mutated one
// event at a time in arrival order. Entries for the local participant are
// never held: the local avatar is driven by local prediction, not by
// round-tripping through the channel.
type Store struct {
	mu      sync.RWMutex
	localID string
	avatars map[string]models.AvatarState
}

func NewStore(localID string) *Store {
	return &Store{
		localID: localID,
		avatars: make(map[string]models.AvatarState),
	}
}

// Prime replaces the entire mapping with the snapshot contents. Called once
// per room join, before any incremental events are applied. The local
// participant's own row is skipped.
func (s *Store) Prime(snapshot []models.AvatarState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.avatars = make(map[string]models.AvatarState, len(snapshot))
	for _, state := range snapshot {
		if state.ProfileID == s.localID {
			continue
		}
		s.avatars[state.ProfileID] = state
	}
}

// Apply reconciles one incoming event into the mapping and reports whether
// anything changed. Upserts replace wholesale, never merge. Self-echoes and
// replayed or stale revisions are safe no-ops.
func (s *Store) Apply(ev models.PresenceEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case models.PresenceUpserted:
		if ev.State == nil || ev.State.ProfileID == s.localID {
			return false
		}
		if existing, ok := s.avatars[ev.State.ProfileID]; ok {
			// Per-publisher monotonic revision: an upsert that is not newer
			// than what we hold is a duplicate or an out-of-order straggler.
			// Seq 0 means no revision; fall back to last-applied-wins.
			if ev.State.Seq != 0 && existing.Seq != 0 && ev.State.Seq <= existing.Seq {
				return false
			}
		}
		s.avatars[ev.State.ProfileID] = *ev.State
		return true

	case models.PresenceRemoved:
		if _, ok := s.avatars[ev.ProfileID]; !ok {
			return false
		}
		delete(s.avatars, ev.ProfileID)
		return true
	}
	return false
}

// SnapshotAll returns a copy of the current mapping. Readers never observe a
// partially applied event.
func (s *Store) SnapshotAll() map[string]models.AvatarState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]models.AvatarState, len(s.avatars))
	for id, state := range s.avatars {
		result[id] = state
	}
	return result
}

// Roster returns the current entries as a slice for wire envelopes.
func (s *Store) Roster() []models.AvatarState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roster := make([]models.AvatarState, 0, len(s.avatars))
	for _, state := range s.avatars {
		roster = append(roster, state)
	}
	return roster
}

// Clear drops all entries. Called on room leave; state never leaks across
// rooms.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avatars = make(map[string]models.AvatarState)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.avatars)
}
