package events

import (
	"time"

	"github.com/greenfelt/holdem/cards"
)

type EventHandler func(event Event)

type Event interface {
	Name() string
}

type PlayerJoinedTable struct {
	TableID string
	UserID  string
	Seat    int
	Stack   int64
	At      time.Time
}

func (e PlayerJoinedTable) Name() string { return "PLAYER_JOINED_TABLE" }

type PlayerLeftTable struct {
	TableID string
	UserID  string
	Seat    int
	At      time.Time
}

func (e PlayerLeftTable) Name() string { return "PLAYER_LEFT_TABLE" }

type HandStarted struct {
	TableID    string
	HandID     string
	DealerSeat int
	Seats      []int
	At         time.Time
}

func (e HandStarted) Name() string { return "HAND_STARTED" }

type BlindPosted struct {
	TableID string
	HandID  string
	Seat    int
	UserID  string
	Amount  int64
	Big     bool
}

func (e BlindPosted) Name() string { return "BLIND_POSTED" }

// HoleCardsDealt is private: the dispatcher must only deliver it to
// the seat's own connection.
type HoleCardsDealt struct {
	TableID string
	HandID  string
	UserID  string
	Seat    int
	Cards   cards.Stack
}

func (e HoleCardsDealt) Name() string { return "HOLE_CARDS_DEALT" }

type StreetDealt struct {
	TableID string
	HandID  string
	Round   string
	Cards   cards.Stack
	Board   cards.Stack
}

func (e StreetDealt) Name() string { return "STREET_DEALT" }

type PlayerActed struct {
	TableID string
	HandID  string
	Seat    int
	UserID  string
	Action  string
	Amount  int64
	Pot     int64
}

func (e PlayerActed) Name() string { return "PLAYER_ACTED" }

type PlayerTurnStarted struct {
	TableID  string
	HandID   string
	Seat     int
	UserID   string
	Deadline time.Time
}

func (e PlayerTurnStarted) Name() string { return "PLAYER_TURN_STARTED" }

// HandEnded closes a hand. Reason is one of "showdown", "walkover" or
// "aborted". RevealedHands is only populated for showdowns.
type HandEnded struct {
	TableID       string
	HandID        string
	Reason        string
	WinnerSeats   []int
	Amount        int64
	RevealedHands map[int]RevealedHand
	At            time.Time
}

func (e HandEnded) Name() string { return "HAND_ENDED" }

type RevealedHand struct {
	UserID   string
	Cards    cards.Stack
	Category string
}

type ChatMessage struct {
	TableID string
	UserID  string
	Text    string
	At      time.Time
}

func (e ChatMessage) Name() string { return "CHAT_MESSAGE" }

// TableStateChanged carries a full, unredacted table snapshot. The
// dispatcher redacts hole cards per recipient before it leaves the
// process.
type TableStateChanged struct {
	TableID string
	State   TableState
}

func (e TableStateChanged) Name() string { return "TABLE_STATE_CHANGED" }
