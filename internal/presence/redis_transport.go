package presence

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"echospace/backend/internal/config"
	"echospace/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisTransport opens room subscriptions over Redis pub/sub, one channel per
// room ("presence:<roomID>").
type RedisTransport struct {
	Client *redis.Client
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{Client: client}
}

func (t *RedisTransport) Subscribe(roomID string) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		roomID: roomID,
		pubsub: t.Client.Subscribe(ctx, models.RoomChannel(roomID)),
		events: make(chan models.PresenceEvent, 64),
		status: make(chan Status, 4),
		cancel: cancel,
	}
	go sub.pump(ctx)
	return sub
}

type redisSubscription struct {
	roomID    string
	pubsub    *redis.PubSub
	events    chan models.PresenceEvent
	status    chan Status
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *redisSubscription) Events() <-chan models.PresenceEvent { return s.events }
func (s *redisSubscription) Status() <-chan Status               { return s.status }

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.pubsub.Close()
	})
	return nil
}

// pump waits for the subscribe confirmation, then decodes payloads into
// presence events until the underlying channel closes.
func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.events)
	defer close(s.status)

	confirmCtx, cancel := context.WithTimeout(ctx, config.SubscribeTimeout)
	_, err := s.pubsub.Receive(confirmCtx)
	cancel()
	if err != nil {
		if confirmCtx.Err() != nil && ctx.Err() == nil {
			s.emit(StatusTimedOut)
		} else if ctx.Err() != nil {
			s.emit(StatusClosed)
		} else {
			log.Printf("error subscribing to room %s: %v", s.roomID, err)
			s.emit(StatusError)
		}
		s.Close()
		return
	}
	s.emit(StatusSubscribed)

	for msg := range s.pubsub.Channel() {
		var ev models.PresenceEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("Error unmarshalling presence event for room %s: %v", s.roomID, err)
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			s.emit(StatusClosed)
			return
		}
	}
	s.emit(StatusClosed)
}

func (s *redisSubscription) emit(st Status) {
	select {
	case s.status <- st:
	default:
		// Status buffer full; the consumer has already seen enough to act.
	}
}
