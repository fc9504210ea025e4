package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seatsWith(fill func(seats *[NumSeats]Seat)) *[NumSeats]Seat {
	var seats [NumSeats]Seat
	fill(&seats)
	return &seats
}

func occupy(seats *[NumSeats]Seat, idxs ...int) {
	for _, i := range idxs {
		seats[i] = Seat{UserID: "u" + string(rune('0'+i)), Stack: 100}
	}
}

func TestNextActorClockwiseWithWrap(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) { occupy(s, 1, 4, 7) })

	assert.Equal(t, 4, nextActor(seats, 1))
	assert.Equal(t, 7, nextActor(seats, 4))
	assert.Equal(t, 1, nextActor(seats, 7))
	assert.Equal(t, 1, nextActor(seats, 0))
}

func TestNextActorSkipsFoldedAndAllIn(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 2, 3, 5)
		s[2].Folded = true
		s[3].AllIn = true
	})

	assert.Equal(t, 5, nextActor(seats, 0))
	assert.Equal(t, 0, nextActor(seats, 5))
}

func TestNextActorNoneAvailable(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 1)
		s[0].AllIn = true
		s[1].AllIn = true
	})

	assert.Equal(t, -1, nextActor(seats, 0))
}

func TestNextOccupiedIncludesFolded(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 3)
		s[3].Folded = true
	})

	assert.Equal(t, 3, nextOccupied(seats, 0))
	assert.Equal(t, 0, nextOccupied(seats, 3))
}

func TestIsRoundComplete(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 1, 2)
		s[0].Acted, s[0].RoundBet = true, 20
		s[1].Acted, s[1].RoundBet = true, 20
		s[2].Acted, s[2].RoundBet = true, 20
	})
	assert.True(t, isRoundComplete(seats, 20))

	seats[2].Acted = false
	assert.False(t, isRoundComplete(seats, 20))

	seats[2].Acted = true
	seats[2].RoundBet = 10
	assert.False(t, isRoundComplete(seats, 20))
}

func TestIsRoundCompleteIgnoresFoldedAndAllIn(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 1, 2)
		s[0].Acted, s[0].RoundBet = true, 50
		s[1].Folded = true
		s[2].AllIn, s[2].RoundBet = true, 30
	})

	assert.True(t, isRoundComplete(seats, 50))
}

func TestWalkoverCounting(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 1, 2)
	})
	assert.False(t, isWalkover(seats))
	assert.Equal(t, 3, liveSeats(seats))

	seats[0].Folded = true
	seats[1].Folded = true
	assert.True(t, isWalkover(seats))
	assert.Equal(t, 1, liveSeats(seats))
}

func TestActionableSeatsExcludesAllIn(t *testing.T) {
	seats := seatsWith(func(s *[NumSeats]Seat) {
		occupy(s, 0, 1, 2)
		s[1].AllIn = true
	})

	assert.Equal(t, 2, actionableSeats(seats))
	assert.Equal(t, 3, occupiedSeats(seats))
}
