package config

import "time"

const (
	// Publish throttling
	TickInterval      = 100 * time.Millisecond // Cadence at which clients report their transform
	MoveEpsilon       = 0.02                   // Minimum horizontal movement that counts as "moved"
	HeartbeatInterval = 500 * time.Millisecond // Max silence before a publish is forced anyway

	// Store
	MaxVisibleAvatars = 8 // Advisory render cap; the store itself never drops entries

	// Channel
	SubscribeTimeout = 10 * time.Second

	// Stale-row expiry: live rows whose last_activity is older than StaleAfter
	// are demoted to stand-ins by the sweeper.
	StaleAfter    = 2 * time.Minute
	SweepInterval = 30 * time.Second
)
