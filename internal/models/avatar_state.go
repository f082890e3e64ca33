package models

import "time"

// Vector3 is a floating-point triple used for both position and Euler-angle
// rotation. No range validation is imposed; angle wrap is the consumer's
// responsibility.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AvatarState is the per (profile, room) presence record. At most one row
// exists per composite key; upserts are keyed on (profile_id, room_id).
type AvatarState struct {
	ProfileID string `gorm:"primaryKey;type:text" json:"profile_id"`
	RoomID    string `gorm:"primaryKey;type:text" json:"room_id"`

	Position Vector3 `gorm:"embedded;embeddedPrefix:pos_" json:"position"`
	Rotation Vector3 `gorm:"embedded;embeddedPrefix:rot_" json:"rotation"`

	// CurrentAction is the symbolic animation/behavior name, e.g. "Idle",
	// "Walking".
	CurrentAction string `gorm:"type:text" json:"current_action"`

	// IsLive is true while a real user is connected and driving this avatar;
	// false means the row belongs to an autonomous stand-in.
	IsLive bool `json:"is_live"`

	// Seq is a per-publisher monotonic revision. The publisher of a row is its
	// sole writer, so comparing Seq is enough to reject replayed or stale
	// upserts. Zero means "no revision" and falls back to last-applied-wins.
	Seq int64 `json:"seq"`

	LastActivity time.Time `gorm:"index" json:"last_activity"`
}

// StaleAt reports whether a row still marked live stopped heartbeating before
// the cutoff. Stand-in rows are never stale; they have no heartbeat to miss.
func (a *AvatarState) StaleAt(cutoff time.Time) bool {
	return a.IsLive && a.LastActivity.Before(cutoff)
}

// Demote flips the row to its stand-in form, bumping the revision so the
// change supersedes the last live publish on every receiving store.
func (a *AvatarState) Demote(now time.Time) {
	a.IsLive = false
	a.Seq++
	a.LastActivity = now
}
