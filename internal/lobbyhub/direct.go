package lobbyhub

import (
	"context"
	"encoding/json"
	"log"

	"echospace/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ListenDirectMessages subscribes the shared direct-message channel and feeds
// decoded messages into the hub loop, which delivers to locally connected
// recipients. Every server instance runs one of these; messages for
// participants connected elsewhere are simply not ours to deliver. Start it
// in its own goroutine.
func (m *ManagerService) ListenDirectMessages(ctx context.Context, rdb *redis.Client) {
	pubsub := rdb.Subscribe(ctx, models.DirectChannel)
	defer pubsub.Close()

	for raw := range pubsub.Channel() {
		var msg models.PrivateMessage
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			log.Printf("ERROR: Failed to decode direct message: %v", err)
			continue
		}
		m.DeliverCh <- msg
	}
}
