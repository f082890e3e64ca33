package presence

import "echospace/backend/internal/models"

// Status is a connection-lifecycle event for a room subscription.
type Status int

const (
	StatusSubscribed Status = iota
	StatusError
	StatusTimedOut
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusSubscribed:
		return "subscribed"
	case StatusError:
		return "channel_error"
	case StatusTimedOut:
		return "timed_out"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Subscription is one open per-room presence channel. It delivers an
// unordered, at-least-once stream of avatar-state change events plus
// connection-lifecycle statuses. The handle itself is the identity used to
// discard late events from a channel that has since been replaced.
type Subscription interface {
	// Events yields decoded presence events. Closed when the subscription
	// shuts down.
	Events() <-chan models.PresenceEvent
	// Status yields lifecycle transitions. The first value is either
	// StatusSubscribed or a terminal failure of the open attempt.
	Status() <-chan Status
	// Close releases all resources. Idempotent; safe to call multiple times.
	Close() error
}

// Transport opens per-room subscriptions. The production implementation is
// Redis pub/sub; tests substitute a fake.
type Transport interface {
	Subscribe(roomID string) Subscription
}
