package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/greenfelt/holdem/cards"
	"github.com/greenfelt/holdem/domain/events"
	"github.com/greenfelt/holdem/economy"
)

// Round is the table's position in the hand lifecycle.
type Round string

const (
	RoundIdle     Round = "idle"
	RoundPreFlop  Round = "preflop"
	RoundFlop     Round = "flop"
	RoundTurn     Round = "turn"
	RoundRiver    Round = "river"
	RoundShowdown Round = "showdown"
)

// ActionType is a betting action a seated player can take.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
)

// Stakes define a table's tier: blind sizes and the buy-in debited on
// join.
type Stakes struct {
	Tier       string `json:"tier"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
}

// TableConfig holds everything needed to create a table.
type TableConfig struct {
	ID       string
	Name     string
	Stakes   Stakes
	Private  bool
	Passcode string

	Log     zerolog.Logger
	Economy economy.Gateway

	// TurnTimeout auto-folds a seat that does not act in time. Zero
	// disables the timer (useful in tests).
	TurnTimeout time.Duration
	// NextHandDelay is the pause between showdown and the next hand so
	// clients can render the outcome.
	NextHandDelay time.Duration

	// ChatLogSize bounds the retained chat history. Zero means the
	// default of 64 messages.
	ChatLogSize int
}

const defaultChatLogSize = 64

// Table is the per-room state machine. It is a single-writer actor:
// every mutation goes through the command mailbox and is applied by
// the run loop, so no two mutations ever race. Snapshots handed out
// are copies and may be broadcast from any goroutine.
type Table struct {
	ID       string
	Name     string
	Stakes   Stakes
	Private  bool
	passcode string

	log     zerolog.Logger
	economy economy.Gateway

	turnTimeout   time.Duration
	nextHandDelay time.Duration
	chatLogSize   int

	// newDeck is swapped for a stacked deck in tests.
	newDeck func() *cards.Deck

	// Mutable state. Only the run loop touches these after Start.
	seats      [NumSeats]Seat
	board      cards.Stack
	deck       *cards.Deck
	pot        int64
	currentBet int64
	dealerSeat int
	turnSeat   int // -1 when nobody is to act
	round      Round
	handID     string
	forfeits   map[string]int64 // hand contributions of players who left mid-hand
	chat       []events.ChatMessage

	turnTimer     *time.Timer
	turnEpoch     uint64
	nextHandTimer *time.Timer

	eventHandlers []events.EventHandler

	commands  chan tableCommand
	done      chan struct{}
	closeOnce sync.Once
}

type tableCommand struct {
	fn    func() error
	reply chan error
}

// NewTable creates a table. Call RegisterEventHandler before Start;
// handlers are invoked from the table's own goroutine and must not
// block.
func NewTable(cfg TableConfig) *Table {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	chatSize := cfg.ChatLogSize
	if chatSize == 0 {
		chatSize = defaultChatLogSize
	}
	return &Table{
		ID:            id,
		Name:          cfg.Name,
		Stakes:        cfg.Stakes,
		Private:       cfg.Private,
		passcode:      cfg.Passcode,
		log:           cfg.Log.With().Str("table", id).Logger(),
		economy:       cfg.Economy,
		turnTimeout:   cfg.TurnTimeout,
		nextHandDelay: cfg.NextHandDelay,
		chatLogSize:   chatSize,
		newDeck: func() *cards.Deck {
			deck := cards.NewDeck()
			deck.Shuffle()
			return deck
		},
		turnSeat:      -1,
		round:         RoundIdle,
		forfeits:      make(map[string]int64),
		commands:      make(chan tableCommand),
		done:          make(chan struct{}),
	}
}

// RegisterEventHandler adds a handler for table events. Not safe to
// call after Start.
func (t *Table) RegisterEventHandler(handler events.EventHandler) {
	t.eventHandlers = append(t.eventHandlers, handler)
}

// Start launches the table's run loop.
func (t *Table) Start() {
	go t.run()
}

// Stop shuts the table down. Pending commands and late timer firings
// fail with ErrTableClosed.
func (t *Table) Stop() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}

func (t *Table) run() {
	for {
		select {
		case cmd := <-t.commands:
			err := cmd.fn()

			// User errors never alter state; anything that did mutate
			// must leave the invariants intact, otherwise the hand is
			// aborted with a full refund.
			if invErr := t.checkInvariants(); invErr != nil {
				t.log.Error().Err(invErr).Msg("table invariant violated, aborting hand")
				t.abortHand("invariant violation", invErr)
				err = &FatalTableError{TableID: t.ID, Reason: "invariant violation", Err: invErr}
			}

			cmd.reply <- err
		case <-t.done:
			return
		}
	}
}

// do runs fn on the table's goroutine and waits for the result.
func (t *Table) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case t.commands <- tableCommand{fn: fn, reply: reply}:
		return <-reply
	case <-t.done:
		return ErrTableClosed
	}
}

// enqueue runs fn on the table's goroutine without waiting. Used by
// timer callbacks.
func (t *Table) enqueue(fn func() error) {
	go func() {
		_ = t.do(fn)
	}()
}

// CheckPasscode verifies a join attempt against a private table's
// passcode. Public tables accept anything.
func (t *Table) CheckPasscode(passcode string) error {
	if t.Private && passcode != t.passcode {
		return ErrWrongPasscode
	}
	return nil
}

// Join seats a player, debiting the table's minimum buy-in exactly
// once. On any failure the seat is left untouched and nothing is
// debited twice. Players joining mid-hand sit out until the next
// hand.
func (t *Table) Join(userID, name string) (events.TableState, error) {
	var state events.TableState
	err := t.do(func() error {
		var err error
		state, err = t.join(userID, name)
		return err
	})
	return state, err
}

// Leave removes a player. A mid-hand seat folds immediately
// (forfeiting its contribution) within the same atomic step, then the
// seat is cleared and the remaining stack credited back exactly once.
func (t *Table) Leave(userID string) error {
	return t.do(func() error {
		return t.leave(userID)
	})
}

// HandleAction applies a betting action for the given player. Actions
// from a seat that is not the current turn are rejected, not queued.
func (t *Table) HandleAction(userID string, action ActionType, amount int64) error {
	return t.do(func() error {
		return t.handleAction(userID, action, amount)
	})
}

// Chat records and broadcasts a chat message from a seated player.
// Profanity filtering happens upstream of the engine.
func (t *Table) Chat(userID, text string) error {
	return t.do(func() error {
		return t.chatMessage(userID, text)
	})
}

// Snapshot returns a copy of the table state.
func (t *Table) Snapshot() events.TableState {
	var state events.TableState
	if err := t.do(func() error {
		state = t.snapshot()
		return nil
	}); err != nil {
		return events.TableState{TableID: t.ID, Name: t.Name, Round: string(RoundIdle), TurnSeat: -1}
	}
	return state
}

// Occupancy returns the number of seated players.
func (t *Table) Occupancy() int {
	n := 0
	_ = t.do(func() error {
		n = occupiedSeats(&t.seats)
		return nil
	})
	return n
}

func (t *Table) emitEvent(event events.Event) {
	for _, handler := range t.eventHandlers {
		handler(event)
	}
}

func (t *Table) emitState() {
	t.emitEvent(events.TableStateChanged{TableID: t.ID, State: t.snapshot()})
}

func (t *Table) snapshot() events.TableState {
	state := events.TableState{
		TableID:    t.ID,
		Name:       t.Name,
		HandID:     t.handID,
		Round:      string(t.round),
		Board:      append(cards.Stack(nil), t.board...),
		Pot:        t.pot,
		CurrentBet: t.currentBet,
		DealerSeat: t.dealerSeat,
		TurnSeat:   t.turnSeat,
		Seats:      make([]events.SeatState, NumSeats),
	}
	for i := range t.seats {
		s := &t.seats[i]
		state.Seats[i] = events.SeatState{
			Seat:      i,
			UserID:    s.UserID,
			Name:      s.Name,
			Stack:     s.Stack,
			RoundBet:  s.RoundBet,
			Folded:    s.Folded,
			AllIn:     s.AllIn,
			HoleCards: append(cards.Stack(nil), s.HoleCards...),
		}
	}
	return state
}

func (t *Table) seatIndexOf(userID string) int {
	for i := range t.seats {
		if t.seats[i].UserID == userID {
			return i
		}
	}
	return -1
}

func (t *Table) join(userID, name string) (events.TableState, error) {
	if t.seatIndexOf(userID) >= 0 {
		return events.TableState{}, ErrAlreadySeated
	}

	seatIdx := -1
	for i := range t.seats {
		if !t.seats[i].Occupied() {
			seatIdx = i
			break
		}
	}
	if seatIdx == -1 {
		return events.TableState{}, ErrTableFull
	}

	// The buy-in debit happens before the seat is taken: a failed
	// debit leaves no half-joined seat behind.
	if err := t.economy.Debit(userID, t.Stakes.MinBuyIn); err != nil {
		if errors.Is(err, economy.ErrInsufficientFunds) {
			return events.TableState{}, err
		}
		return events.TableState{}, fmt.Errorf("buy-in debit failed: %w", err)
	}

	seat := &t.seats[seatIdx]
	*seat = Seat{UserID: userID, Name: name, Stack: t.Stakes.MinBuyIn}
	if t.round != RoundIdle {
		// Sit out the hand already in progress.
		seat.Folded = true
	}

	t.log.Info().Str("user", userID).Int("seat", seatIdx).Msg("player joined")
	t.emitEvent(events.PlayerJoinedTable{
		TableID: t.ID,
		UserID:  userID,
		Seat:    seatIdx,
		Stack:   seat.Stack,
		At:      time.Now(),
	})
	t.emitState()

	t.maybeStartHand()
	return t.snapshot(), nil
}

func (t *Table) leave(userID string) error {
	idx := t.seatIndexOf(userID)
	if idx == -1 {
		return ErrNotSeated
	}
	seat := &t.seats[idx]
	wasTurn := t.turnSeat == idx
	midHand := t.round != RoundIdle

	if midHand {
		seat.Folded = true
		if seat.HandBet > 0 {
			// The contribution stays in the pot; remember whose it was
			// so an aborted hand can still refund it.
			t.forfeits[userID] += seat.HandBet
		}
	}

	refund := seat.Stack
	seat.clear()

	t.log.Info().Str("user", userID).Int("seat", idx).Int64("refund", refund).Msg("player left")
	t.emitEvent(events.PlayerLeftTable{
		TableID: t.ID,
		UserID:  userID,
		Seat:    idx,
		At:      time.Now(),
	})

	if refund > 0 {
		t.creditBack(userID, refund)
	}

	if midHand {
		if isWalkover(&t.seats) {
			t.finishWalkover()
		} else if wasTurn {
			t.advanceAfter(idx)
		}
	}

	t.emitState()
	return nil
}

func (t *Table) chatMessage(userID, text string) error {
	if t.seatIndexOf(userID) == -1 {
		return ErrNotSeated
	}

	msg := events.ChatMessage{
		TableID: t.ID,
		UserID:  userID,
		Text:    text,
		At:      time.Now(),
	}
	t.chat = append(t.chat, msg)
	if len(t.chat) > t.chatLogSize {
		t.chat = t.chat[len(t.chat)-t.chatLogSize:]
	}
	t.emitEvent(msg)
	return nil
}

// creditBack returns chips to a player's balance. It runs off the
// table goroutine so a slow ledger never stalls the event loop, and
// is invoked exactly once per cash-out event; failures are retried a
// few times, then logged for manual reconciliation.
func (t *Table) creditBack(userID string, amount int64) {
	log := t.log
	gw := t.economy
	go func() {
		var err error
		for attempt := 0; attempt < 3; attempt++ {
			if err = gw.Credit(userID, amount); err == nil {
				return
			}
			time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
		}
		log.Error().Err(err).Str("user", userID).Int64("amount", amount).
			Msg("credit-back failed, ledger needs reconciliation")
	}()
}

// checkInvariants verifies the structural invariants the rest of the
// engine relies on. Violations are programmer errors.
func (t *Table) checkInvariants() error {
	if t.round != RoundIdle {
		var contributed int64
		for i := range t.seats {
			contributed += t.seats[i].HandBet
		}
		for _, amount := range t.forfeits {
			contributed += amount
		}
		if t.pot != contributed {
			return fmt.Errorf("pot %d != sum of contributions %d", t.pot, contributed)
		}
	}

	if t.turnSeat != -1 {
		if t.turnSeat < 0 || t.turnSeat >= NumSeats {
			return fmt.Errorf("turn seat %d out of range", t.turnSeat)
		}
		if !t.seats[t.turnSeat].CanAct() {
			return fmt.Errorf("turn seat %d is not able to act", t.turnSeat)
		}
	}

	for i := range t.seats {
		if t.seats[i].Stack < 0 {
			return fmt.Errorf("seat %d has negative stack %d", i, t.seats[i].Stack)
		}
	}
	if t.pot < 0 {
		return fmt.Errorf("pot is negative: %d", t.pot)
	}

	return nil
}
