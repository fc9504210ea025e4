package cards

import "strings"

// Stack represents an ordered collection of cards.
type Stack []Card

// NewStack creates a new stack holding the given cards.
func NewStack(cards ...Card) Stack {
	return cards
}

// AddCard appends a card to the stack.
func (s *Stack) AddCard(card Card) {
	*s = append(*s, card)
}

// AddCards appends several cards to the stack.
func (s *Stack) AddCards(cards ...Card) {
	*s = append(*s, cards...)
}

// Contains reports whether the stack holds the given card.
func (s Stack) Contains(card Card) bool {
	for _, c := range s {
		if c == card {
			return true
		}
	}
	return false
}

func (s Stack) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
