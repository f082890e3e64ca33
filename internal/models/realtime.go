package models

// RoomChannel returns the pub/sub channel name carrying presence events for a
// room. One logical channel per room; publishers and subscribers must agree
// on this format.
func RoomChannel(roomID string) string {
	return "presence:" + roomID
}

// Presence event types carried on a room's pub/sub channel.
const (
	PresenceUpserted = "upsert"
	PresenceRemoved  = "remove"
)

// PresenceEvent is the wire form of an avatar-state change fanned out to every
// subscriber of a room. Delivery is at-least-once and unordered across
// participants; consumers reconcile via AvatarState.Seq.
type PresenceEvent struct {
	Type      string       `json:"type"` // "upsert" or "remove"
	RoomID    string       `json:"room_id"`
	ProfileID string       `json:"profile_id"`
	State     *AvatarState `json:"state,omitempty"` // Set for upserts only
}

// DirectChannel is the pub/sub channel carrying private messages across
// server instances. Every hub subscribes it and delivers only to recipients
// connected locally.
const DirectChannel = "dm"

// Client command types read from the WebSocket.
const (
	CommandJoin  = "join"
	CommandLeave = "leave"
	CommandState = "state"
	CommandChat  = "chat"
)

// ClientCommand is a message from a connected browser: join/leave a room, or
// a ~100ms avatar transform tick while in one.
type ClientCommand struct {
	Type      string  `json:"type"`
	ProfileID string  `json:"-"` // Stamped from the authenticated connection, never trusted from the wire
	RoomID    string  `json:"room_id,omitempty"`
	Position  Vector3 `json:"position,omitempty"`
	Rotation  Vector3 `json:"rotation,omitempty"`
	Action    string  `json:"action,omitempty"`

	// Private-message fields ("chat" commands only).
	To      string `json:"to,omitempty"`
	Content string `json:"content,omitempty"`
}

// Server envelope types written to the WebSocket.
const (
	ServerRoster     = "roster"
	ServerAvatar     = "avatar"
	ServerAvatarLeft = "avatar_left"
	ServerJoined     = "joined"
	ServerChat       = "chat"
	ServerError      = "error"
)

// ServerEvent is the envelope pushed to a browser client. A "roster" carries
// the full primed view after a join (or re-sync); "avatar"/"avatar_left" are
// incremental. MaxVisible is advisory: the renderer declines to materialize
// avatars beyond it, but the roster itself is never truncated.
type ServerEvent struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"room_id,omitempty"`
	ProfileID  string          `json:"profile_id,omitempty"`
	State      *AvatarState    `json:"state,omitempty"`
	Roster     []AvatarState   `json:"roster,omitempty"`
	MaxVisible int             `json:"max_visible,omitempty"`
	Chat       *PrivateMessage `json:"chat,omitempty"`
	Message    string          `json:"message,omitempty"`
}
