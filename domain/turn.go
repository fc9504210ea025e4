package domain

// Turn scheduling: pure functions over the seat array, decoupled from
// table mutation so the walk and completion rules can be tested on
// their own.

// nextActor walks the seats clockwise starting after fromSeat and
// returns the index of the first seat that can act (occupied, not
// folded, not all-in). It returns -1 when no such seat exists, which
// signals that the betting round is complete.
func nextActor(seats *[NumSeats]Seat, fromSeat int) int {
	for i := 1; i <= NumSeats; i++ {
		idx := (fromSeat + i) % NumSeats
		if seats[idx].CanAct() {
			return idx
		}
	}
	return -1
}

// nextOccupied walks the seats clockwise starting after fromSeat and
// returns the first occupied seat, or -1 on an empty table.
func nextOccupied(seats *[NumSeats]Seat, fromSeat int) int {
	for i := 1; i <= NumSeats; i++ {
		idx := (fromSeat + i) % NumSeats
		if seats[idx].Occupied() {
			return idx
		}
	}
	return -1
}

// isRoundComplete reports whether the current betting round is over:
// every live seat that can still act has acted and matched the
// current bet. All-in seats count as settled for whatever they could
// put in.
func isRoundComplete(seats *[NumSeats]Seat, currentBet int64) bool {
	for i := range seats {
		s := &seats[i]
		if !s.CanAct() {
			continue
		}
		if !s.Acted || s.RoundBet != currentBet {
			return false
		}
	}
	return true
}

// liveSeats counts seats that are still contesting the hand,
// including all-in seats.
func liveSeats(seats *[NumSeats]Seat) int {
	n := 0
	for i := range seats {
		if seats[i].Live() {
			n++
		}
	}
	return n
}

// actionableSeats counts live seats that still have chips behind.
func actionableSeats(seats *[NumSeats]Seat) int {
	n := 0
	for i := range seats {
		if seats[i].CanAct() {
			n++
		}
	}
	return n
}

// occupiedSeats counts seats with a player in them.
func occupiedSeats(seats *[NumSeats]Seat) int {
	n := 0
	for i := range seats {
		if seats[i].Occupied() {
			n++
		}
	}
	return n
}

// isWalkover reports whether at most one seat is still contesting the
// hand, in which case the pot is awarded without a showdown.
func isWalkover(seats *[NumSeats]Seat) bool {
	return liveSeats(seats) <= 1
}
