package domain

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenfelt/holdem/domain/events"
	"github.com/greenfelt/holdem/economy"
)

// DefaultStakes are the public stake tiers every registry opens
// tables for at boot.
var DefaultStakes = []Stakes{
	{Tier: "micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 100},
	{Tier: "low", SmallBlind: 5, BigBlind: 10, MinBuyIn: 500},
	{Tier: "mid", SmallBlind: 25, BigBlind: 50, MinBuyIn: 2500},
	{Tier: "high", SmallBlind: 100, BigBlind: 200, MinBuyIn: 10000},
}

// StakesForTier looks a stake tier up by name.
func StakesForTier(tier string) (Stakes, bool) {
	for _, stakes := range DefaultStakes {
		if stakes.Tier == tier {
			return stakes, true
		}
	}
	return Stakes{}, false
}

// TableInfo is the lobby listing entry for a table. Passcodes are
// never included.
type TableInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Tier      string `json:"tier"`
	SmallBlind int64 `json:"smallBlind"`
	BigBlind  int64  `json:"bigBlind"`
	MinBuyIn  int64  `json:"minBuyIn"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
	Private   bool   `json:"private"`
}

// RegistryConfig configures a Registry and the tables it creates.
type RegistryConfig struct {
	Log           zerolog.Logger
	Economy       economy.Gateway
	TurnTimeout   time.Duration
	NextHandDelay time.Duration

	// TablesPerTier is how many public tables to open per stake tier
	// at boot. Zero means one.
	TablesPerTier int

	// PrivateTableTTL is how long a private table may sit empty after
	// creation before it is torn down. Zero means five minutes.
	PrivateTableTTL time.Duration
}

const defaultPrivateTableTTL = 5 * time.Minute

// Registry owns the set of live tables: the public per-tier fleet
// plus private passcode-protected tables, which it destroys once
// their last player leaves.
type Registry struct {
	log     zerolog.Logger
	economy economy.Gateway

	turnTimeout     time.Duration
	nextHandDelay   time.Duration
	privateTableTTL time.Duration

	eventHandlers []events.EventHandler

	mu     sync.RWMutex
	tables map[string]*Table
}

func NewRegistry(cfg RegistryConfig) *Registry {
	ttl := cfg.PrivateTableTTL
	if ttl == 0 {
		ttl = defaultPrivateTableTTL
	}
	return &Registry{
		log:             cfg.Log,
		economy:         cfg.Economy,
		turnTimeout:     cfg.TurnTimeout,
		nextHandDelay:   cfg.NextHandDelay,
		privateTableTTL: ttl,
		tables:          make(map[string]*Table),
	}
}

// RegisterEventHandler adds a handler that every table created by the
// registry will emit through. Not safe to call after tables exist.
func (r *Registry) RegisterEventHandler(handler events.EventHandler) {
	r.eventHandlers = append(r.eventHandlers, handler)
}

// Bootstrap opens the public tables for each stake tier.
func (r *Registry) Bootstrap(perTier int) {
	if perTier <= 0 {
		perTier = 1
	}
	for _, stakes := range DefaultStakes {
		for i := 0; i < perTier; i++ {
			name := stakes.Tier
			if perTier > 1 {
				name = fmt.Sprintf("%s-%d", stakes.Tier, i+1)
			}
			r.createTable(TableConfig{
				Name:   name,
				Stakes: stakes,
			})
		}
	}
}

// CreatePrivateTable opens a passcode-protected table on the given
// stakes. It is destroyed when its last player leaves, or after the
// registry's TTL if nobody ever sat down.
func (r *Registry) CreatePrivateTable(name, passcode string, stakes Stakes) *Table {
	table := r.createTable(TableConfig{
		Name:     name,
		Stakes:   stakes,
		Private:  true,
		Passcode: passcode,
	})
	time.AfterFunc(r.privateTableTTL, func() {
		if table.Occupancy() == 0 {
			r.destroy(table)
		}
	})
	return table
}

// CreatePrivateTableFor opens a private table and seats its creator.
// If the buy-in fails the table is torn down immediately rather than
// lingering in the registry.
func (r *Registry) CreatePrivateTableFor(name, passcode string, stakes Stakes, userID, userName string) (*Table, events.TableState, error) {
	table := r.CreatePrivateTable(name, passcode, stakes)
	state, err := table.Join(userID, userName)
	if err != nil {
		r.destroy(table)
		return nil, events.TableState{}, err
	}
	return table, state, nil
}

func (r *Registry) createTable(cfg TableConfig) *Table {
	cfg.Log = r.log
	cfg.Economy = r.economy
	cfg.TurnTimeout = r.turnTimeout
	cfg.NextHandDelay = r.nextHandDelay

	table := NewTable(cfg)
	for _, handler := range r.eventHandlers {
		table.RegisterEventHandler(handler)
	}
	table.Start()

	r.mu.Lock()
	r.tables[table.ID] = table
	r.mu.Unlock()

	r.log.Info().Str("table", table.ID).Str("name", table.Name).
		Str("tier", table.Stakes.Tier).Bool("private", table.Private).Msg("table created")
	return table
}

// Get returns a table by ID.
func (r *Registry) Get(tableID string) (*Table, error) {
	r.mu.RLock()
	table, ok := r.tables[tableID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownTable
	}
	return table, nil
}

// List returns lobby entries for public tables, optionally filtered
// by stake tier, sorted by name for a stable lobby. Private tables
// are reachable only by ID plus passcode.
func (r *Registry) List(tier string) []TableInfo {
	r.mu.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, table := range r.tables {
		tables = append(tables, table)
	}
	r.mu.RUnlock()

	infos := make([]TableInfo, 0, len(tables))
	for _, table := range tables {
		if table.Private {
			continue
		}
		if tier != "" && table.Stakes.Tier != tier {
			continue
		}
		infos = append(infos, TableInfo{
			ID:         table.ID,
			Name:       table.Name,
			Tier:       table.Stakes.Tier,
			SmallBlind: table.Stakes.SmallBlind,
			BigBlind:   table.Stakes.BigBlind,
			MinBuyIn:   table.Stakes.MinBuyIn,
			Occupancy:  table.Occupancy(),
			Capacity:   NumSeats,
			Private:    table.Private,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Join seats a player at a table, checking the passcode for private
// tables.
func (r *Registry) Join(tableID, passcode, userID, name string) (events.TableState, error) {
	table, err := r.Get(tableID)
	if err != nil {
		return events.TableState{}, err
	}
	if err := table.CheckPasscode(passcode); err != nil {
		return events.TableState{}, err
	}
	return table.Join(userID, name)
}

// Leave removes a player from a table. Empty private tables are torn
// down.
func (r *Registry) Leave(tableID, userID string) error {
	table, err := r.Get(tableID)
	if err != nil {
		return err
	}
	if err := table.Leave(userID); err != nil {
		return err
	}
	if table.Private && table.Occupancy() == 0 {
		r.destroy(table)
	}
	return nil
}

func (r *Registry) destroy(table *Table) {
	r.mu.Lock()
	delete(r.tables, table.ID)
	r.mu.Unlock()
	table.Stop()
	r.log.Info().Str("table", table.ID).Msg("private table destroyed")
}

// Shutdown stops every table.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	tables := make([]*Table, 0, len(r.tables))
	for _, table := range r.tables {
		tables = append(tables, table)
	}
	r.tables = make(map[string]*Table)
	r.mu.Unlock()

	for _, table := range tables {
		table.Stop()
	}
}
