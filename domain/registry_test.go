package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfelt/holdem/economy"
)

func newTestRegistry(t *testing.T) (*Registry, *economy.MemoryGateway) {
	t.Helper()
	gw := economy.NewMemoryGateway()
	reg := NewRegistry(RegistryConfig{
		Log:           zerolog.Nop(),
		Economy:       gw,
		NextHandDelay: time.Hour,
	})
	t.Cleanup(reg.Shutdown)
	return reg, gw
}

func TestBootstrapOpensEveryTier(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Bootstrap(1)

	infos := reg.List("")
	require.Len(t, infos, len(DefaultStakes))

	tiers := make(map[string]bool)
	for _, info := range infos {
		tiers[info.Tier] = true
		assert.False(t, info.Private)
		assert.Equal(t, NumSeats, info.Capacity)
		assert.Equal(t, 0, info.Occupancy)
	}
	for _, stakes := range DefaultStakes {
		assert.True(t, tiers[stakes.Tier], "missing tier %s", stakes.Tier)
	}
}

func TestListFiltersByTier(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Bootstrap(2)

	infos := reg.List("micro")
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.Equal(t, "micro", info.Tier)
	}

	assert.Empty(t, reg.List("nosuch"))
}

func TestGetUnknownTable(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = reg.Join("missing", "", "alice", "alice")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestPrivateTablePasscode(t *testing.T) {
	reg, gw := newTestRegistry(t)
	table := reg.CreatePrivateTable("friends", "s3cret", DefaultStakes[0])

	gw.Seed("alice", 1000)
	_, err := reg.Join(table.ID, "wrong", "alice", "alice")
	assert.ErrorIs(t, err, ErrWrongPasscode)

	_, err = reg.Join(table.ID, "s3cret", "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Occupancy())
}

func TestPrivateTableDestroyedWhenEmpty(t *testing.T) {
	reg, gw := newTestRegistry(t)
	table := reg.CreatePrivateTable("friends", "s3cret", DefaultStakes[0])

	gw.Seed("alice", 1000)
	_, err := reg.Join(table.ID, "s3cret", "alice", "alice")
	require.NoError(t, err)

	require.NoError(t, reg.Leave(table.ID, "alice"))

	_, err = reg.Get(table.ID)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestPublicTableSurvivesEmptying(t *testing.T) {
	reg, gw := newTestRegistry(t)
	reg.Bootstrap(1)

	infos := reg.List("micro")
	require.Len(t, infos, 1)
	tableID := infos[0].ID

	gw.Seed("alice", 1000)
	_, err := reg.Join(tableID, "", "alice", "alice")
	require.NoError(t, err)
	require.NoError(t, reg.Leave(tableID, "alice"))

	_, err = reg.Get(tableID)
	assert.NoError(t, err)
}

func TestCreatePrivateTableForTornDownWhenBuyInFails(t *testing.T) {
	reg, _ := newTestRegistry(t)

	table, _, err := reg.CreatePrivateTableFor("friends", "s3cret", DefaultStakes[0], "pauper", "pauper")
	assert.ErrorIs(t, err, economy.ErrInsufficientFunds)
	assert.Nil(t, table)

	// Nothing was left behind in the registry.
	reg.mu.RLock()
	remaining := len(reg.tables)
	reg.mu.RUnlock()
	assert.Zero(t, remaining)
}

func TestCreatePrivateTableForSeatsCreator(t *testing.T) {
	reg, gw := newTestRegistry(t)
	gw.Seed("alice", 1000)

	table, state, err := reg.CreatePrivateTableFor("friends", "s3cret", DefaultStakes[0], "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", state.Seats[0].UserID)
	assert.Equal(t, 1, table.Occupancy())
}

func TestNeverJoinedPrivateTableGarbageCollected(t *testing.T) {
	gw := economy.NewMemoryGateway()
	reg := NewRegistry(RegistryConfig{
		Log:             zerolog.Nop(),
		Economy:         gw,
		NextHandDelay:   time.Hour,
		PrivateTableTTL: 20 * time.Millisecond,
	})
	t.Cleanup(reg.Shutdown)

	table := reg.CreatePrivateTable("ghost", "s3cret", DefaultStakes[0])

	require.Eventually(t, func() bool {
		_, err := reg.Get(table.ID)
		return errors.Is(err, ErrUnknownTable)
	}, time.Second, 5*time.Millisecond)
}

func TestOccupiedPrivateTableSurvivesTTL(t *testing.T) {
	gw := economy.NewMemoryGateway()
	reg := NewRegistry(RegistryConfig{
		Log:             zerolog.Nop(),
		Economy:         gw,
		NextHandDelay:   time.Hour,
		PrivateTableTTL: 20 * time.Millisecond,
	})
	t.Cleanup(reg.Shutdown)

	gw.Seed("alice", 1000)
	table, _, err := reg.CreatePrivateTableFor("friends", "s3cret", DefaultStakes[0], "alice", "alice")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = reg.Get(table.ID)
	assert.NoError(t, err)
}

func TestListHidesPrivateTables(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.Bootstrap(1)
	table := reg.CreatePrivateTable("friends", "s3cret", DefaultStakes[0])

	infos := reg.List("")
	require.Len(t, infos, len(DefaultStakes))
	for _, info := range infos {
		assert.NotEqual(t, table.ID, info.ID)
		assert.False(t, info.Private)
	}

	// The private table is still reachable by ID.
	_, err := reg.Get(table.ID)
	assert.NoError(t, err)
}
