package cards

import (
	"fmt"
	"unicode/utf8"
)

// Suit is one of the four card suits.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank is the numeric value of a card: 2 through 14, where 14 is the
// ace. The ace also plays low in the A-2-3-4-5 straight, which is
// handled by the hand evaluator rather than here.
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Card is an immutable playing card. Two cards are equal when both
// rank and suit match.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case King:
		return "K"
	case Queen:
		return "Q"
	case Jack:
		return "J"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// FromString parses a card shorthand such as "10♠", "10s", "Ah" or "KD".
func FromString(s string) (Card, error) {
	last, width := utf8.DecodeLastRuneInString(s)
	if last == utf8.RuneError || len(s) <= width {
		return Card{}, fmt.Errorf("invalid card shorthand: %q", s)
	}

	var suit Suit
	switch last {
	case '♠', 's', 'S':
		suit = Spades
	case '♥', 'h', 'H':
		suit = Hearts
	case '♦', 'd', 'D':
		suit = Diamonds
	case '♣', 'c', 'C':
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid card suit: %q", string(last))
	}

	var rank Rank
	switch s[:len(s)-width] {
	case "A":
		rank = Ace
	case "K":
		rank = King
	case "Q":
		rank = Queen
	case "J":
		rank = Jack
	case "10", "T":
		rank = Ten
	case "9":
		rank = Nine
	case "8":
		rank = Eight
	case "7":
		rank = Seven
	case "6":
		rank = Six
	case "5":
		rank = Five
	case "4":
		rank = Four
	case "3":
		rank = Three
	case "2":
		rank = Two
	default:
		return Card{}, fmt.Errorf("invalid card rank: %q", s[:len(s)-width])
	}

	return Card{Rank: rank, Suit: suit}, nil
}

// MustFromString is FromString for fixtures; it panics on bad input.
func MustFromString(s string) Card {
	c, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return c
}
