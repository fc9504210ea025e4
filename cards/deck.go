package cards

import (
	"errors"
	"math/rand"
)

// ErrDeckExhausted is returned by Draw when fewer cards remain than
// were requested. Correct dealing math never triggers it at 8 seats
// with five community cards, but the caller must treat it as a checked
// error rather than a panic.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is an owned, mutable sequence of the 52 unique cards. A deck is
// created fresh for every hand and cards are removed as they are
// dealt, so no card can be dealt twice within one hand.
type Deck struct {
	cards Stack
}

// NewDeck creates an unshuffled standard 52-card deck.
func NewDeck() *Deck {
	deck := &Deck{cards: make(Stack, 0, 52)}
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	for _, suit := range suits {
		for rank := Two; rank <= Ace; rank++ {
			deck.cards.AddCard(Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// NewStackedDeck creates a deck that deals the given cards in order.
func NewStackedDeck(stack Stack) *Deck {
	return &Deck{cards: append(Stack(nil), stack...)}
}

// Shuffle permutes the remaining cards uniformly at random
// (Fisher-Yates).
func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns n cards from the top of the deck.
func (d *Deck) Draw(n int) (Stack, error) {
	if n < 0 {
		return nil, errors.New("cannot draw a negative number of cards")
	}
	if n > len(d.cards) {
		return nil, ErrDeckExhausted
	}

	drawn := make(Stack, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn, nil
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
