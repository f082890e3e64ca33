package lobbyhub

import (
	"log"

	"echospace/backend/internal/models"
	"echospace/backend/internal/presence"
	"echospace/backend/internal/storage"
)

// ManagerService is the hub: it owns every connected client's session and
// dispatches their commands. One goroutine (Run) serializes registration,
// unregistration, and command routing.
type ManagerService struct {
	Clients  map[string]Client
	sessions map[string]*Session

	// Channels
	IncomingCh   chan models.ClientCommand
	RegisterCh   chan Client
	UnregisterCh chan Client
	DeliverCh    chan models.PrivateMessage

	Storage   storage.Storage
	Transport presence.Transport
	Directory *presence.Directory
}

func NewManagerService(s storage.Storage, t presence.Transport, d *presence.Directory) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		sessions:     make(map[string]*Session),
		IncomingCh:   make(chan models.ClientCommand, 64),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		DeliverCh:    make(chan models.PrivateMessage, 64),
		Storage:      s,
		Transport:    t,
		Directory:    d,
	}
}

// Run is the hub dispatcher. Start it in its own goroutine.
func (m *ManagerService) Run() {
	log.Println("Lobby hub started.")

	for {
		select {
		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)

		case cmd := <-m.IncomingCh:
			m.dispatch(cmd)

		case msg := <-m.DeliverCh:
			m.deliver(msg)
		}
	}
}

func (m *ManagerService) register(client Client) {
	id := client.GetProfileID()

	// A reconnect replaces any lingering session for the same profile. Closing
	// the old session's command channel lets its worker drain and leave.
	if old, ok := m.sessions[id]; ok {
		old.close()
	}

	session := &Session{
		client:   client,
		commands: make(chan models.ClientCommand, 64),
		storage:  m.Storage,
	}
	session.Controller = presence.NewController(id, m.Storage, m.Transport, m.Directory, session.push)
	m.Clients[id] = client
	m.sessions[id] = session
	go session.run()
	log.Printf("Client %s registered", id)
}

func (m *ManagerService) unregister(client Client) {
	id := client.GetProfileID()
	session, ok := m.sessions[id]
	if !ok || session.client != client {
		// Already replaced by a newer connection for the same profile.
		return
	}

	delete(m.Clients, id)
	delete(m.sessions, id)
	// The session worker drains any queued commands and issues the final
	// leave; the hub never waits on that I/O.
	session.close()
	log.Printf("Client %s unregistered", id)
}

// dispatch routes a command to its session's worker. The worker serializes
// them, so a join and the leave sent right after it apply in wire order.
func (m *ManagerService) dispatch(cmd models.ClientCommand) {
	session, ok := m.sessions[cmd.ProfileID]
	if !ok {
		return
	}
	session.enqueue(cmd)
}

// deliver hands an incoming direct message to its recipient, if that
// participant is connected to this instance.
func (m *ManagerService) deliver(msg models.PrivateMessage) {
	session, ok := m.sessions[msg.ToProfileID]
	if !ok {
		return
	}
	session.push(models.ServerEvent{Type: models.ServerChat, Chat: &msg})
}
