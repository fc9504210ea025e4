package connection

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func register(m *Manager, clientID string) *Client {
	client := &Client{ID: clientID, Send: make(chan []byte, 16)}
	m.Add(client)
	return client
}

func TestSendToUserRequiresBinding(t *testing.T) {
	m := NewManager(zerolog.Nop())
	client := register(m, "conn-1")

	assert.False(t, m.SendToUser("alice", []byte("hi")))

	m.BindUser("conn-1", "alice", "Alice")
	assert.True(t, m.SendToUser("alice", []byte("hi")))
	assert.Equal(t, []byte("hi"), <-client.Send)
}

func TestBindSticksImmediatelyAfterAdd(t *testing.T) {
	m := NewManager(zerolog.Nop())
	client := &Client{ID: "conn-1", Send: make(chan []byte, 16)}

	m.Add(client)
	m.BindUser("conn-1", "alice", "Alice")

	assert.True(t, m.SendToUser("alice", []byte("hi")))
	assert.Equal(t, "alice", client.UserID)
}

func TestSendToTableReachesOnlyMembers(t *testing.T) {
	m := NewManager(zerolog.Nop())
	seated := register(m, "conn-1")
	bystander := register(m, "conn-2")

	m.BindUser("conn-1", "alice", "Alice")
	m.BindUser("conn-2", "bob", "Bob")
	m.AddTableToClient("conn-1", "t1")

	m.SendToTable("t1", []byte("deal"))

	assert.Equal(t, []byte("deal"), <-seated.Send)
	assert.Empty(t, bystander.Send)
}

func TestUsersAtTableTracksMembership(t *testing.T) {
	m := NewManager(zerolog.Nop())
	register(m, "conn-1")
	register(m, "conn-2")
	m.BindUser("conn-1", "alice", "Alice")
	m.BindUser("conn-2", "bob", "Bob")

	m.AddTableToClient("conn-1", "t1")
	m.AddTableToClient("conn-2", "t1")
	assert.ElementsMatch(t, []string{"alice", "bob"}, m.UsersAtTable("t1"))

	m.RemoveTableFromClient("conn-2", "t1")
	assert.ElementsMatch(t, []string{"alice"}, m.UsersAtTable("t1"))
}

func TestRemoveClosesSendChannel(t *testing.T) {
	m := NewManager(zerolog.Nop())
	client := register(m, "conn-1")
	m.BindUser("conn-1", "alice", "Alice")

	m.Remove(client)

	_, open := <-client.Send
	assert.False(t, open)
	assert.False(t, m.SendToUser("alice", []byte("hi")))

	// Removing twice must not panic on the closed channel.
	m.Remove(client)
}

func TestSlowConsumerDoesNotBlock(t *testing.T) {
	m := NewManager(zerolog.Nop())
	client := &Client{ID: "conn-1", Send: make(chan []byte)} // no buffer
	m.Add(client)
	m.BindUser("conn-1", "alice", "Alice")

	done := make(chan struct{})
	go func() {
		m.SendToUser("alice", []byte("hi"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendToUser blocked on a full send buffer")
	}
}
