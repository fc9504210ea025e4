package handlers_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfelt/holdem/domain"
	domevents "github.com/greenfelt/holdem/domain/events"
	"github.com/greenfelt/holdem/economy"
	"github.com/greenfelt/holdem/server/connection"
	"github.com/greenfelt/holdem/server/events"
	"github.com/greenfelt/holdem/server/handlers"
)

type fixture struct {
	router   *handlers.CommandRouter
	registry *domain.Registry
	connMgr  *connection.Manager
	gateway  *economy.MemoryGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := economy.NewMemoryGateway()
	registry := domain.NewRegistry(domain.RegistryConfig{
		Log:           zerolog.Nop(),
		Economy:       gw,
		NextHandDelay: time.Hour,
	})
	t.Cleanup(registry.Shutdown)
	registry.Bootstrap(1)

	connMgr := connection.NewManager(zerolog.Nop())

	return &fixture{
		router:   handlers.NewCommandRouter(registry, connMgr, zerolog.Nop()),
		registry: registry,
		connMgr:  connMgr,
		gateway:  gw,
	}
}

func (f *fixture) connect(t *testing.T, clientID string) *connection.Client {
	t.Helper()
	client := &connection.Client{ID: clientID, Send: make(chan []byte, 64)}
	f.connMgr.Add(client)
	return client
}

func (f *fixture) command(t *testing.T, client *connection.Client, name string, fields map[string]any) {
	t.Helper()
	payload := map[string]any{"name": name}
	for k, v := range fields {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, f.router.HandleCommand(client, raw))
}

func (f *fixture) microTableID(t *testing.T) string {
	t.Helper()
	infos := f.registry.List("micro")
	require.Len(t, infos, 1)
	return infos[0].ID
}

func nextEnvelope(t *testing.T, client *connection.Client) events.EventEnvelope {
	t.Helper()
	select {
	case raw := <-client.Send:
		var env events.EventEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no envelope received")
		return events.EventEnvelope{}
	}
}

func TestEnterLobbyRepliesWithTableList(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")

	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})

	env := nextEnvelope(t, client)
	require.Equal(t, "TABLE_LIST", env.Name)

	var infos []domain.TableInfo
	require.NoError(t, json.Unmarshal(env.Payload, &infos))
	assert.Len(t, infos, len(domain.DefaultStakes))
}

func TestJoinTableRepliesWithRedactedState(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.gateway.Seed("alice", 1000)

	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client) // table list

	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": f.microTableID(t)})

	env := nextEnvelope(t, client)
	require.Equal(t, "TABLE_STATE", env.Name)

	var state domevents.TableState
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	assert.Equal(t, "alice", state.Seats[0].UserID)
}

func TestCommandsRequireLobbyEntry(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")

	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": f.microTableID(t)})

	env := nextEnvelope(t, client)
	assert.Equal(t, "ERROR", env.Name)
}

func TestUnknownCommandReturnsError(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")

	f.command(t, client, "TELEPORT", nil)

	env := nextEnvelope(t, client)
	assert.Equal(t, "ERROR", env.Name)
}

func TestWrongPasscodeRejected(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.gateway.Seed("alice", 1000)
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client)

	table := f.registry.CreatePrivateTable("friends", "s3cret", domain.DefaultStakes[0])

	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": table.ID, "passcode": "nope"})
	env := nextEnvelope(t, client)
	assert.Equal(t, "ERROR", env.Name)

	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": table.ID, "passcode": "s3cret"})
	env = nextEnvelope(t, client)
	assert.Equal(t, "TABLE_STATE", env.Name)
}

func TestCreatePrivateTableSeatsCreator(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.gateway.Seed("alice", 1000)
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client)

	f.command(t, client, "CREATE_PRIVATE_TABLE", map[string]any{
		"tableName": "friends", "tier": "micro", "passcode": "p",
	})

	env := nextEnvelope(t, client)
	require.Equal(t, "TABLE_STATE", env.Name)

	var state domevents.TableState
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	assert.Equal(t, "friends", state.Name)
	assert.Equal(t, "alice", state.Seats[0].UserID)
}

func TestCreatePrivateTableKeepsCommandRouting(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.gateway.Seed("alice", 1000)
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client)

	// A table named after another command must not hijack dispatch.
	f.command(t, client, "CREATE_PRIVATE_TABLE", map[string]any{
		"tableName": "JOIN_TABLE", "tier": "micro", "passcode": "p",
	})

	env := nextEnvelope(t, client)
	require.Equal(t, "TABLE_STATE", env.Name)

	var state domevents.TableState
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	assert.Equal(t, "JOIN_TABLE", state.Name)
}

func TestCreatePrivateTableRejectedWhenCreatorCannotBuyIn(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "pauper", "userName": "Pauper"})
	nextEnvelope(t, client)

	f.command(t, client, "CREATE_PRIVATE_TABLE", map[string]any{
		"tableName": "friends", "tier": "micro", "passcode": "p",
	})

	env := nextEnvelope(t, client)
	assert.Equal(t, "ERROR", env.Name)
	assert.Empty(t, client.Tables())
}

func TestDisconnectLeavesAllTables(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.gateway.Seed("alice", 1000)
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client)

	tableID := f.microTableID(t)
	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": tableID})
	nextEnvelope(t, client)

	table, err := f.registry.Get(tableID)
	require.NoError(t, err)
	f.connMgr.AddTableToClient(client.ID, tableID)
	require.Equal(t, 1, table.Occupancy())

	f.router.HandleDisconnect(client)
	assert.Equal(t, 0, table.Occupancy())

	// The stack went back to the player's balance.
	require.Eventually(t, func() bool {
		balance, err := f.gateway.Balance("alice")
		return err == nil && balance == 1000
	}, time.Second, 10*time.Millisecond)
}

func TestActionRoutedToTable(t *testing.T) {
	f := newFixture(t)
	f.gateway.Seed("alice", 1000)
	f.gateway.Seed("bob", 1000)

	alice := f.connect(t, "c1")
	bob := f.connect(t, "c2")
	f.command(t, alice, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	f.command(t, bob, "ENTER_LOBBY", map[string]any{"userID": "bob", "userName": "Bob"})
	nextEnvelope(t, alice)
	nextEnvelope(t, bob)

	tableID := f.microTableID(t)
	f.command(t, alice, "JOIN_TABLE", map[string]any{"tableID": tableID})
	f.command(t, bob, "JOIN_TABLE", map[string]any{"tableID": tableID})
	nextEnvelope(t, alice)
	nextEnvelope(t, bob)

	// Two players seated: a hand is underway and seat 0 opens. An
	// out-of-turn action errors, an in-turn fold ends the hand.
	f.command(t, bob, "ACTION", map[string]any{"tableID": tableID, "action": "fold"})
	env := nextEnvelope(t, bob)
	assert.Equal(t, "ERROR", env.Name)

	f.command(t, alice, "ACTION", map[string]any{"tableID": tableID, "action": "fold"})

	table, err := f.registry.Get(tableID)
	require.NoError(t, err)
	assert.Equal(t, "idle", table.Snapshot().Round)
}

func TestLeaveLobbyStandsUpAndForgetsIdentity(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.gateway.Seed("alice", 1000)
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client)

	tableID := f.microTableID(t)
	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": tableID})
	nextEnvelope(t, client)

	f.command(t, client, "LEAVE_LOBBY", nil)

	table, err := f.registry.Get(tableID)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Occupancy())
	assert.Empty(t, client.UserID)

	// Anonymous again: table commands need a fresh ENTER_LOBBY.
	f.command(t, client, "JOIN_TABLE", map[string]any{"tableID": tableID})
	env := nextEnvelope(t, client)
	assert.Equal(t, "ERROR", env.Name)
}

func TestMalformedFrameReturnsError(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")

	err := f.router.HandleCommand(client, []byte("{not json"))
	assert.Error(t, err)
}

func TestChatRequiresSeat(t *testing.T) {
	f := newFixture(t)
	client := f.connect(t, "c1")
	f.command(t, client, "ENTER_LOBBY", map[string]any{"userID": "alice", "userName": "Alice"})
	nextEnvelope(t, client)

	f.command(t, client, "CHAT", map[string]any{"tableID": f.microTableID(t), "text": "hi"})

	env := nextEnvelope(t, client)
	assert.Equal(t, "ERROR", env.Name)
	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Contains(t, payload.Message, "not seated")
}
