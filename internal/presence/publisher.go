package presence

import (
	"errors"
	"math"
	"sync"
	"time"

	"echospace/backend/internal/config"
	"echospace/backend/internal/models"
	"echospace/backend/internal/storage"
)

var ErrNotPublishing = errors.New("publisher is not started")

// Publisher is the throttled, change-detecting uploader of the local
// participant's own avatar state. It is the sole writer of that participant's
// row; every write bumps the row's Seq so receivers can reject replays.
//
// Ticks arrive on the client's simulation cadence (~100ms). A tick publishes
// only if the avatar moved beyond MoveEpsilon on the horizontal plane, the
// symbolic action changed, or HeartbeatInterval elapsed since the last
// publish. Position noise below the threshold never triggers a network write,
// but the heartbeat keeps last_activity fresh so stale-row detection stays
// possible even for an idle avatar.
type Publisher struct {
	mu      sync.Mutex
	storage storage.Storage
	localID string

	started     bool
	roomID      string
	seq         int64
	lastPublish time.Time
	lastPos     models.Vector3
	lastRot     models.Vector3
	lastAction  string

	now func() time.Time // Overridable in tests
}

func NewPublisher(localID string, s storage.Storage) *Publisher {
	return &Publisher{
		storage: s,
		localID: localID,
		now:     time.Now,
	}
}

// Start marks the local participant live in the room with an initial upsert
// and begins accepting ticks. The revision counter resumes from the persisted
// row, so the first publish of a new session supersedes the stand-in row the
// previous session left behind.
func (p *Publisher) Start(roomID string, pos, rot models.Vector3) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.storage.GetAvatarState(p.localID, roomID)
	if err != nil {
		return err
	}

	p.roomID = roomID
	p.seq = 1
	if prev != nil {
		p.seq = prev.Seq + 1
	}
	p.lastPos = pos
	p.lastRot = rot
	p.lastAction = "Idle"

	if err := p.upsertLocked(true); err != nil {
		return err
	}
	p.started = true
	p.lastPublish = p.now()
	return nil
}

// Tick reports the avatar's current transform. Publishes only when the
// movement threshold, an action change, or the heartbeat demands it.
func (p *Publisher) Tick(pos, rot models.Vector3, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return ErrNotPublishing
	}

	moved := math.Abs(pos.X-p.lastPos.X) > config.MoveEpsilon ||
		math.Abs(pos.Z-p.lastPos.Z) > config.MoveEpsilon
	actionChanged := action != p.lastAction
	heartbeatDue := p.now().Sub(p.lastPublish) >= config.HeartbeatInterval

	if !moved && !actionChanged && !heartbeatDue {
		return nil
	}

	p.seq++
	p.lastPos = pos
	p.lastRot = rot
	p.lastAction = action
	if err := p.upsertLocked(true); err != nil {
		// lastPublish stays put so the next tick retries the write.
		return err
	}
	p.lastPublish = p.now()
	return nil
}

// Stop issues the final "deactivate live, activate stand-in" upsert
// (is_live = false) and stops accepting ticks. Best effort: not guaranteed to
// run if the client terminates abnormally; the stale-row sweeper covers that
// case.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.started = false
	p.seq++
	return p.upsertLocked(false)
}

func (p *Publisher) upsertLocked(live bool) error {
	return p.storage.UpsertAvatarState(&models.AvatarState{
		ProfileID:     p.localID,
		RoomID:        p.roomID,
		Position:      p.lastPos,
		Rotation:      p.lastRot,
		CurrentAction: p.lastAction,
		IsLive:        live,
		Seq:           p.seq,
		LastActivity:  p.now(),
	})
}
