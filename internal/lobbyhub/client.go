package lobbyhub

import "echospace/backend/internal/models"

// Client is the interface for any type of connection carrying a participant's
// presence session. It abstracts the underlying communication mechanism,
// allowing the hub to manage different client types uniformly (the production
// type is the WebSocket client; tests use a mock).
type Client interface {
	// GetProfileID returns the stable participant identifier bound to this
	// connection at authentication time.
	GetProfileID() string

	// GetSendChannel returns the channel to which the hub pushes server
	// envelopes (rosters, avatar updates) for this client. Send-only.
	GetSendChannel() chan<- models.ServerEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close gracefully shuts down the client's connection and channels.
	Close()
}
