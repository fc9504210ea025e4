package domain

import "github.com/greenfelt/holdem/cards"

// NumSeats is the fixed number of slots at every table.
const NumSeats = 8

// Seat is one fixed slot at a table. A seat is occupied when UserID
// is non-empty; clearing a seat resets it to the zero value.
type Seat struct {
	UserID string
	Name   string
	Stack  int64

	// Per-hand state, reset by startHand.
	HoleCards cards.Stack
	Folded    bool
	AllIn     bool
	Acted     bool
	RoundBet  int64 // chips committed during the current betting round
	HandBet   int64 // chips committed during the current hand
}

// Occupied reports whether a player holds this seat.
func (s *Seat) Occupied() bool {
	return s.UserID != ""
}

// Live reports whether the seat is still contesting the hand.
func (s *Seat) Live() bool {
	return s.Occupied() && !s.Folded
}

// CanAct reports whether the seat is eligible to take the turn.
func (s *Seat) CanAct() bool {
	return s.Live() && !s.AllIn
}

// resetForHand clears the per-hand fields, leaving occupancy and
// stack intact.
func (s *Seat) resetForHand() {
	s.HoleCards = nil
	s.Folded = false
	s.AllIn = false
	s.Acted = false
	s.RoundBet = 0
	s.HandBet = 0
}

// clear empties the seat entirely.
func (s *Seat) clear() {
	*s = Seat{}
}
