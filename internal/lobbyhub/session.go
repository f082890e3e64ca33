package lobbyhub

import (
	"log"
	"sync"

	"echospace/backend/internal/models"
	"echospace/backend/internal/presence"
	"echospace/backend/internal/storage"
)

// Session binds one connected client to its presence controller. Commands are
// serialized through a per-session worker goroutine so a join and the leave
// sent right after it always apply in wire order, and so slow network writes
// (ticks, chat persists) never stall the hub loop. The controller's change
// callback lands here and is forwarded to the client's send channel; after
// the session closes, late callbacks are swallowed instead of hitting a
// closed channel.
type Session struct {
	mu         sync.Mutex
	closed     bool
	client     Client
	commands   chan models.ClientCommand
	storage    storage.Storage
	Controller *presence.Controller
}

// run is the session worker. It executes commands one at a time in arrival
// order and, once the command channel drains after close, issues the final
// leave.
func (s *Session) run() {
	for cmd := range s.commands {
		s.handle(cmd)
	}
	s.Controller.Leave()
}

func (s *Session) handle(cmd models.ClientCommand) {
	switch cmd.Type {
	case models.CommandJoin:
		err := s.Controller.Join(cmd.RoomID, cmd.Position, cmd.Rotation)
		switch err {
		case nil:
			s.push(models.ServerEvent{Type: models.ServerJoined, RoomID: cmd.RoomID})
		case presence.ErrSuperseded:
			// A later transition took over; nothing to report.
		default:
			log.Printf("join failed for %s: %v", cmd.ProfileID, err)
			s.push(models.ServerEvent{Type: models.ServerError, RoomID: cmd.RoomID, Message: err.Error()})
		}

	case models.CommandLeave:
		s.Controller.Leave()

	case models.CommandState:
		if err := s.Controller.Tick(cmd.Position, cmd.Rotation, cmd.Action); err != nil && err != presence.ErrNotPublishing {
			log.Printf("tick failed for %s: %v", cmd.ProfileID, err)
		}

	case models.CommandChat:
		s.sendChat(cmd)

	default:
		log.Printf("unknown command %q from %s", cmd.Type, cmd.ProfileID)
	}
}

// sendChat persists a direct message (which also fans it out to the
// recipient's hub) and echoes it back to the sender.
func (s *Session) sendChat(cmd models.ClientCommand) {
	if cmd.To == "" || cmd.Content == "" {
		s.push(models.ServerEvent{Type: models.ServerError, Message: "chat requires a recipient and content"})
		return
	}

	msg := &models.PrivateMessage{
		LobbyCode:     cmd.RoomID,
		FromProfileID: cmd.ProfileID,
		ToProfileID:   cmd.To,
		Content:       cmd.Content,
	}
	if err := s.storage.SavePrivateMessage(msg); err != nil {
		log.Printf("chat from %s failed: %v", cmd.ProfileID, err)
		s.push(models.ServerEvent{Type: models.ServerError, Message: "Failed to send message"})
		return
	}
	s.push(models.ServerEvent{Type: models.ServerChat, Chat: msg})
}

// enqueue hands a command to the session worker without blocking the hub.
func (s *Session) enqueue(cmd models.ClientCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.commands <- cmd:
	default:
		log.Printf("dropping command %q for backlogged client %s", cmd.Type, cmd.ProfileID)
	}
}

func (s *Session) push(ev models.ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.client.GetSendChannel() <- ev:
	default:
		// Slow consumer: drop the frame. The next heartbeat or roster
		// resync carries the current state anyway.
		log.Printf("dropping presence event for slow client %s", s.client.GetProfileID())
	}
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.commands)
	s.mu.Unlock()
	s.client.Close()
}
