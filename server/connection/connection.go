package connection

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is one websocket connection. A client becomes addressable as
// a player once it has identified itself and the manager has bound a
// user ID to it.
type Client struct {
	ID     string
	UserID string
	Name   string
	Conn   *websocket.Conn
	Send   chan []byte

	mu       sync.Mutex
	tableIDs []string
}

// Tables returns the tables this client is seated at.
func (c *Client) Tables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tableIDs...)
}

func (c *Client) addTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.tableIDs {
		if id == tableID {
			return
		}
	}
	c.tableIDs = append(c.tableIDs, tableID)
}

func (c *Client) removeTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, id := range c.tableIDs {
		if id == tableID {
			c.tableIDs = append(c.tableIDs[:i], c.tableIDs[i+1:]...)
			return
		}
	}
}

func (c *Client) atTable(tableID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.tableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}

// Manager tracks every live client connection and who it belongs to.
type Manager struct {
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client // connection ID -> client
	userMap map[string]string  // user ID -> connection ID
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:     log,
		clients: make(map[string]*Client),
		userMap: make(map[string]string),
	}
}

// Add registers a connection. It completes before returning, so any
// later BindUser for the client is guaranteed to stick.
func (m *Manager) Add(client *Client) {
	m.mu.Lock()
	m.clients[client.ID] = client
	if client.UserID != "" {
		m.userMap[client.UserID] = client.ID
	}
	m.mu.Unlock()
	m.log.Debug().Str("client", client.ID).Msg("client registered")
}

// Remove drops a connection and closes its send channel. Removing a
// client twice is a no-op.
func (m *Manager) Remove(client *Client) {
	m.mu.Lock()
	if _, ok := m.clients[client.ID]; ok {
		if client.UserID != "" {
			delete(m.userMap, client.UserID)
		}
		delete(m.clients, client.ID)
		close(client.Send)
	}
	m.mu.Unlock()
	m.log.Debug().Str("client", client.ID).Msg("client unregistered")
}

// BindUser associates a user identity with a connection. A user
// reconnecting on a new socket displaces the old binding.
func (m *Manager) BindUser(clientID, userID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[clientID]
	if !ok {
		return
	}
	client.UserID = userID
	client.Name = name
	m.userMap[userID] = clientID
}

// UnbindUser drops the user identity from a connection, returning it
// to the anonymous state it had before entering the lobby.
func (m *Manager) UnbindUser(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[clientID]
	if !ok {
		return
	}
	if client.UserID != "" {
		delete(m.userMap, client.UserID)
	}
	client.UserID = ""
	client.Name = ""
}

// SendToUser delivers a message to one user's connection, if any.
func (m *Manager) SendToUser(userID string, message []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connID, ok := m.userMap[userID]
	if !ok {
		return false
	}
	client, ok := m.clients[connID]
	if !ok {
		return false
	}
	select {
	case client.Send <- message:
		return true
	default:
		// Slow consumer: drop rather than block the caller.
		return false
	}
}

// UsersAtTable returns the user IDs of every connected client seated
// at the table.
func (m *Manager) UsersAtTable(tableID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []string
	for _, client := range m.clients {
		if client.UserID != "" && client.atTable(tableID) {
			users = append(users, client.UserID)
		}
	}
	return users
}

// SendToTable delivers a message to every connected client at a
// table.
func (m *Manager) SendToTable(tableID string, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if !client.atTable(tableID) {
			continue
		}
		select {
		case client.Send <- message:
		default:
		}
	}
}

// AddTableToClient records that a client sat down at a table.
func (m *Manager) AddTableToClient(clientID, tableID string) {
	m.mu.RLock()
	client, ok := m.clients[clientID]
	m.mu.RUnlock()
	if ok {
		client.addTable(tableID)
	}
}

// RemoveTableFromClient records that a client left a table.
func (m *Manager) RemoveTableFromClient(clientID, tableID string) {
	m.mu.RLock()
	client, ok := m.clients[clientID]
	m.mu.RUnlock()
	if ok {
		client.removeTable(tableID)
	}
}
