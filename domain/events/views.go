package events

import "github.com/greenfelt/holdem/cards"

// TableState is a point-in-time copy of a table, safe to hand to
// other goroutines. HoleCards are populated for every occupied seat;
// use RedactFor before sending a state to a client.
type TableState struct {
	TableID    string      `json:"tableId"`
	Name       string      `json:"name"`
	HandID     string      `json:"handId,omitempty"`
	Round      string      `json:"round"`
	Board      cards.Stack `json:"board"`
	Pot        int64       `json:"pot"`
	CurrentBet int64       `json:"currentBet"`
	DealerSeat int         `json:"dealerSeat"`
	TurnSeat   int         `json:"turnSeat"` // -1 when nobody is to act
	Seats      []SeatState `json:"seats"`
}

type SeatState struct {
	Seat      int         `json:"seat"`
	UserID    string      `json:"userId,omitempty"` // empty for a free seat
	Name      string      `json:"name,omitempty"`
	Stack     int64       `json:"stack"`
	RoundBet  int64       `json:"roundBet"`
	Folded    bool        `json:"folded"`
	AllIn     bool        `json:"allIn"`
	HoleCards cards.Stack `json:"holeCards,omitempty"`
}

// RedactFor returns a deep copy of the state with every seat's hole
// cards stripped except the viewer's own.
func (s TableState) RedactFor(viewerID string) TableState {
	out := s
	out.Board = append(cards.Stack(nil), s.Board...)
	out.Seats = make([]SeatState, len(s.Seats))
	for i, seat := range s.Seats {
		copySeat := seat
		if seat.UserID != viewerID {
			copySeat.HoleCards = nil
		} else {
			copySeat.HoleCards = append(cards.Stack(nil), seat.HoleCards...)
		}
		out.Seats[i] = copySeat
	}
	return out
}
