package presence

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"echospace/backend/internal/config"
	"echospace/backend/internal/models"
	"echospace/backend/internal/storage"
)

// ErrSuperseded is returned by a Join whose in-flight work was overtaken by a
// later Join or Leave; its results have been discarded.
var ErrSuperseded = errors.New("join superseded by a later transition")

// State of a room membership.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateActive
	StateLeaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeaving:
		return "leaving"
	}
	return "unknown"
}

// Controller orchestrates one participant's room membership: it runs the
// snapshot-then-subscribe join sequence, routes incoming channel events into
// the store, drives the publisher lifecycle, and tears everything down on
// leave. One instance is active at a time per participant; joining a new room
// fully executes leave semantics for the old one first, so the participant is
// never primed into two rooms at once.
//
// Every applied mutation is reported through the onEvent callback, which the
// session layer forwards to the connected client.
type Controller struct {
	mu      sync.Mutex
	state   State
	roomID  string
	epoch   uint64 // Bumped on every join/leave; stale async results check it before applying
	sub     Subscription
	localID string

	store     *Store
	publisher *Publisher
	directory *Directory
	storage   storage.Storage
	transport Transport
	onEvent   func(models.ServerEvent)
}

func NewController(localID string, s storage.Storage, t Transport, d *Directory, onEvent func(models.ServerEvent)) *Controller {
	return &Controller{
		state:     StateIdle,
		localID:   localID,
		store:     NewStore(localID),
		publisher: NewPublisher(localID, s),
		directory: d,
		storage:   s,
		transport: t,
		onEvent:   onEvent,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// SnapshotAll is the read-only view of the other participants in the current
// room.
func (c *Controller) SnapshotAll() map[string]models.AvatarState {
	return c.store.SnapshotAll()
}

// Join enters a room: fetch snapshot, prime the store, open the presence
// channel, and on the first subscribe confirmation mark the participant live
// and go Active. A failed snapshot fetch or subscription returns the
// controller to Idle and surfaces a join failure. The initial position and
// rotation come from the client, which preserves its own transform across
// room switches.
func (c *Controller) Join(roomID string, pos, rot models.Vector3) error {
	c.mu.Lock()
	if c.state == StateActive || c.state == StateJoining {
		c.mu.Unlock()
		if err := c.Leave(); err != nil {
			log.Printf("WARNING: leave before join of %s was partial: %v", roomID, err)
		}
		c.mu.Lock()
	}
	c.state = StateJoining
	c.roomID = roomID
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	snapshot, err := c.storage.GetRoomSnapshot(roomID)
	if err != nil {
		c.abortJoin(epoch)
		return fmt.Errorf("could not enter room %s: %w", roomID, err)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.store.Prime(snapshot)
	c.mu.Unlock()

	sub := c.transport.Subscribe(roomID)
	st, ok := <-sub.Status()
	if !ok || st != StatusSubscribed {
		sub.Close()
		c.abortJoin(epoch)
		if !ok {
			return fmt.Errorf("could not enter room %s: channel closed before subscribing", roomID)
		}
		return fmt.Errorf("could not enter room %s: %s", roomID, st)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		sub.Close()
		return ErrSuperseded
	}
	c.sub = sub
	c.state = StateActive
	c.mu.Unlock()

	if err := c.publisher.Start(roomID, pos, rot); err != nil {
		c.Leave()
		return fmt.Errorf("could not enter room %s: %w", roomID, err)
	}

	go c.pump(sub)
	c.emitRoster(roomID)
	c.warmProfiles(snapshot)
	return nil
}

// Leave tears the membership down: final is_live=false upsert, channel close,
// store clear, back to Idle. Safe to call from any state.
func (c *Controller) Leave() error {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateLeaving {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLeaving
	c.epoch++
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	err := c.publisher.Stop()
	if sub != nil {
		sub.Close()
	}
	c.store.Clear()

	c.mu.Lock()
	c.state = StateIdle
	c.roomID = ""
	c.mu.Unlock()
	return err
}

// Tick forwards the local transform to the publisher while Active.
func (c *Controller) Tick(pos, rot models.Vector3, action string) error {
	c.mu.Lock()
	active := c.state == StateActive
	c.mu.Unlock()
	if !active {
		return ErrNotPublishing
	}
	return c.publisher.Tick(pos, rot, action)
}

// pump drains one subscription's event and status streams for as long as it
// remains the current one.
func (c *Controller) pump(sub Subscription) {
	events, status := sub.Events(), sub.Status()
	for events != nil || status != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(sub, ev)
		case st, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			c.handleStatus(sub, st)
		}
	}
}

func (c *Controller) handleEvent(sub Subscription, ev models.PresenceEvent) {
	c.mu.Lock()
	// A slow-closing old channel may deliver a late event after the room has
	// changed; the handle identity check drops it.
	if c.sub != sub || c.state != StateActive || ev.RoomID != c.roomID {
		c.mu.Unlock()
		return
	}
	changed := c.store.Apply(ev)
	roomID := c.roomID
	c.mu.Unlock()

	if !changed {
		return
	}

	switch ev.Type {
	case models.PresenceUpserted:
		if _, ok := c.directory.Get(ev.State.ProfileID); !ok {
			go c.ensureProfile(ev.State.ProfileID)
		}
		c.emit(models.ServerEvent{
			Type:   models.ServerAvatar,
			RoomID: roomID,
			State:  ev.State,
		})
	case models.PresenceRemoved:
		c.emit(models.ServerEvent{
			Type:      models.ServerAvatarLeft,
			RoomID:    roomID,
			ProfileID: ev.ProfileID,
		})
	}
}

func (c *Controller) handleStatus(sub Subscription, st Status) {
	c.mu.Lock()
	current := c.sub == sub && c.state == StateActive
	roomID := c.roomID
	c.mu.Unlock()
	if !current || st == StatusSubscribed {
		return
	}

	// channel_error, timed_out, or an unexpected close while Active: reopen
	// and re-prime from a fresh snapshot so nothing from the gap is missed.
	log.Printf("presence channel for room %s reported %s, resyncing", roomID, st)
	c.resync(sub)
}

// resync closes the failed subscription and re-runs snapshot-then-subscribe
// for the same room. If the room changed in the meantime the attempt is
// abandoned silently; if the resync itself fails, the membership collapses to
// Idle and the failure is surfaced to the session.
func (c *Controller) resync(stale Subscription) {
	c.mu.Lock()
	if c.sub != stale || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	roomID := c.roomID
	epoch := c.epoch
	c.sub = nil
	c.mu.Unlock()
	stale.Close()

	snapshot, err := c.storage.GetRoomSnapshot(roomID)
	if err != nil {
		c.collapse(epoch, fmt.Errorf("lost room %s: %w", roomID, err))
		return
	}

	sub := c.transport.Subscribe(roomID)
	st, ok := <-sub.Status()
	if !ok || st != StatusSubscribed {
		sub.Close()
		c.collapse(epoch, fmt.Errorf("lost room %s: channel did not resubscribe", roomID))
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive {
		c.mu.Unlock()
		sub.Close()
		return
	}
	c.store.Prime(snapshot)
	c.sub = sub
	c.mu.Unlock()

	go c.pump(sub)
	c.emitRoster(roomID)
}

// abortJoin returns a failed join attempt to Idle, unless a later transition
// already took over.
func (c *Controller) abortJoin(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.state = StateIdle
	c.roomID = ""
	c.store.Clear()
}

// collapse drops an Active membership whose channel could not be recovered.
func (c *Controller) collapse(epoch uint64, cause error) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	roomID := c.roomID
	c.roomID = ""
	c.mu.Unlock()

	c.publisher.Stop()
	c.store.Clear()
	log.Printf("ERROR: %v", cause)
	c.emit(models.ServerEvent{
		Type:    models.ServerError,
		RoomID:  roomID,
		Message: cause.Error(),
	})
}

func (c *Controller) emitRoster(roomID string) {
	c.emit(models.ServerEvent{
		Type:       models.ServerRoster,
		RoomID:     roomID,
		Roster:     c.store.Roster(),
		MaxVisible: config.MaxVisibleAvatars,
	})
}

func (c *Controller) emit(ev models.ServerEvent) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

// warmProfiles prefetches display metadata for everyone in the snapshot.
// Failures degrade to placeholder rendering, never to a sync failure.
func (c *Controller) warmProfiles(snapshot []models.AvatarState) {
	for _, state := range snapshot {
		if state.ProfileID == c.localID {
			continue
		}
		if _, ok := c.directory.Get(state.ProfileID); !ok {
			go c.ensureProfile(state.ProfileID)
		}
	}
}

func (c *Controller) ensureProfile(id string) {
	if _, err := c.directory.Ensure(id); err != nil {
		log.Printf("WARNING: %v", err)
	}
}
