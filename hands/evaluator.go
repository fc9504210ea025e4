package hands

import (
	"sort"

	"github.com/greenfelt/holdem/cards"
)

// HandRank represents the category of a poker hand
type HandRank int

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (r HandRank) String() string {
	switch r {
	case RoyalFlush:
		return "royal flush"
	case StraightFlush:
		return "straight flush"
	case FourOfAKind:
		return "four of a kind"
	case FullHouse:
		return "full house"
	case Flush:
		return "flush"
	case Straight:
		return "straight"
	case ThreeOfAKind:
		return "three of a kind"
	case TwoPair:
		return "two pair"
	case OnePair:
		return "one pair"
	default:
		return "high card"
	}
}

// HandEvaluation is the result of scoring a 5-card hand. The Kickers
// hold the deciding card ranks in tie-break order, highest priority
// first.
type HandEvaluation struct {
	Rank      HandRank
	HandCards cards.Stack // the 5 cards that make up the hand
	Kickers   []int
}

// Score encodes the evaluation as a single number so that comparing
// two scores numerically reproduces standard poker hand ranking. The
// category occupies the top bits and each kicker a 4-bit field below
// it; at most 5 kickers exist and every kicker fits in a nibble
// (2..14).
func (e HandEvaluation) Score() uint32 {
	score := uint32(e.Rank) << 20
	for i := 0; i < 5; i++ {
		k := 0
		if i < len(e.Kickers) {
			k = e.Kickers[i]
		}
		score |= uint32(k) << (16 - 4*uint(i))
	}
	return score
}

// sortByRankDesc returns a copy of the hand sorted by rank, highest
// first.
func sortByRankDesc(hand cards.Stack) cards.Stack {
	result := make(cards.Stack, len(hand))
	copy(result, hand)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Rank > result[j].Rank
	})
	return result
}

// Evaluate scores a 5-card poker hand. Categories are tested from
// strongest to weakest against the whole hand.
func Evaluate(hand cards.Stack) HandEvaluation {
	if len(hand) != 5 {
		panic("hand must contain exactly 5 cards")
	}

	sorted := sortByRankDesc(hand)

	if isRoyalFlush(sorted) {
		return HandEvaluation{Rank: RoyalFlush, HandCards: sorted, Kickers: []int{}}
	}

	if isStraightFlush(sorted) {
		return HandEvaluation{
			Rank:      StraightFlush,
			HandCards: sorted,
			Kickers:   []int{straightHigh(sorted)},
		}
	}

	if quad, kicker := fourOfAKind(sorted); quad > 0 {
		return HandEvaluation{Rank: FourOfAKind, HandCards: sorted, Kickers: []int{quad, kicker}}
	}

	if trips, pair := fullHouse(sorted); trips > 0 {
		return HandEvaluation{Rank: FullHouse, HandCards: sorted, Kickers: []int{trips, pair}}
	}

	if isFlush(sorted) {
		return HandEvaluation{Rank: Flush, HandCards: sorted, Kickers: allRanks(sorted)}
	}

	if isStraight(sorted) || isWheel(sorted) {
		return HandEvaluation{
			Rank:      Straight,
			HandCards: sorted,
			Kickers:   []int{straightHigh(sorted)},
		}
	}

	if trips, kickers := threeOfAKind(sorted); trips > 0 {
		return HandEvaluation{Rank: ThreeOfAKind, HandCards: sorted, Kickers: append([]int{trips}, kickers...)}
	}

	if hi, lo, kicker := twoPair(sorted); hi > 0 {
		return HandEvaluation{Rank: TwoPair, HandCards: sorted, Kickers: []int{hi, lo, kicker}}
	}

	if pair, kickers := onePair(sorted); pair > 0 {
		return HandEvaluation{Rank: OnePair, HandCards: sorted, Kickers: append([]int{pair}, kickers...)}
	}

	return HandEvaluation{Rank: HighCard, HandCards: sorted, Kickers: allRanks(sorted)}
}

// allRanks returns the ranks of a sorted hand, highest first.
func allRanks(sorted cards.Stack) []int {
	ranks := make([]int, len(sorted))
	for i, c := range sorted {
		ranks[i] = int(c.Rank)
	}
	return ranks
}

// straightHigh returns the rank that names a straight. The wheel
// (A-2-3-4-5) is a 5-high straight, ranking between 5-high and 6-high.
func straightHigh(sorted cards.Stack) int {
	if isWheel(sorted) {
		return 5
	}
	return int(sorted[0].Rank)
}

func isRoyalFlush(sorted cards.Stack) bool {
	return isFlush(sorted) && isStraight(sorted) && sorted[0].Rank == cards.Ace && sorted[4].Rank == cards.Ten
}

func isStraightFlush(sorted cards.Stack) bool {
	return isFlush(sorted) && (isStraight(sorted) || isWheel(sorted))
}

func isFlush(hand cards.Stack) bool {
	suit := hand[0].Suit
	for _, c := range hand[1:] {
		if c.Suit != suit {
			return false
		}
	}
	return true
}

// isStraight checks for five consecutive ranks (ace high only; the
// wheel is handled by isWheel).
func isStraight(sorted cards.Stack) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Rank != sorted[i-1].Rank-1 {
			return false
		}
	}
	return true
}

// isWheel checks for the A-5-4-3-2 straight where the ace plays low.
func isWheel(sorted cards.Stack) bool {
	return sorted[0].Rank == cards.Ace &&
		sorted[1].Rank == cards.Five &&
		sorted[2].Rank == cards.Four &&
		sorted[3].Rank == cards.Three &&
		sorted[4].Rank == cards.Two
}

func rankCounts(hand cards.Stack) map[cards.Rank]int {
	counts := make(map[cards.Rank]int, len(hand))
	for _, c := range hand {
		counts[c.Rank]++
	}
	return counts
}

func fourOfAKind(hand cards.Stack) (quad, kicker int) {
	for rank, count := range rankCounts(hand) {
		if count == 4 {
			quad = int(rank)
		} else {
			kicker = int(rank)
		}
	}
	if quad == 0 {
		return 0, 0
	}
	return quad, kicker
}

func fullHouse(hand cards.Stack) (trips, pair int) {
	for rank, count := range rankCounts(hand) {
		switch count {
		case 3:
			trips = int(rank)
		case 2:
			pair = int(rank)
		}
	}
	if trips == 0 || pair == 0 {
		return 0, 0
	}
	return trips, pair
}

func threeOfAKind(hand cards.Stack) (trips int, kickers []int) {
	for rank, count := range rankCounts(hand) {
		if count == 3 {
			trips = int(rank)
		} else {
			kickers = append(kickers, int(rank))
		}
	}
	if trips == 0 {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.IntSlice(kickers)))
	return trips, kickers
}

func twoPair(hand cards.Stack) (hi, lo, kicker int) {
	var pairs []int
	for rank, count := range rankCounts(hand) {
		if count == 2 {
			pairs = append(pairs, int(rank))
		} else if count == 1 {
			kicker = int(rank)
		}
	}
	if len(pairs) != 2 {
		return 0, 0, 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(pairs)))
	return pairs[0], pairs[1], kicker
}

func onePair(hand cards.Stack) (pair int, kickers []int) {
	for rank, count := range rankCounts(hand) {
		if count == 2 {
			pair = int(rank)
		} else {
			kickers = append(kickers, int(rank))
		}
	}
	if pair == 0 {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.IntSlice(kickers)))
	return pair, kickers
}

// Compare returns -1 if a is worse than b, 0 on an exact tie, and 1
// if a is better than b.
func Compare(a, b HandEvaluation) int {
	sa, sb := a.Score(), b.Score()
	if sa < sb {
		return -1
	}
	if sa > sb {
		return 1
	}
	return 0
}

// combinations generates all combinations of k indices out of n.
func combinations(n, k int) [][]int {
	if k > n {
		return nil
	}

	var result [][]int
	var combine func(int, []int)

	combine = func(start int, current []int) {
		if len(current) == k {
			combo := make([]int, k)
			copy(combo, current)
			result = append(result, combo)
			return
		}
		for i := start; i < n; i++ {
			current = append(current, i)
			combine(i+1, current)
			current = current[:len(current)-1]
		}
	}

	combine(0, []int{})
	return result
}

// BestOfSeven evaluates all 5-card combinations of the given 7 cards
// (2 hole + 5 board) and returns the strongest. It is a pure function
// of its input.
func BestOfSeven(sevenCards cards.Stack) HandEvaluation {
	if len(sevenCards) != 7 {
		panic("BestOfSeven requires exactly 7 cards")
	}

	var best HandEvaluation
	first := true
	for _, combo := range combinations(7, 5) {
		hand := make(cards.Stack, 5)
		for i, idx := range combo {
			hand[i] = sevenCards[idx]
		}
		eval := Evaluate(hand)
		if first || Compare(eval, best) > 0 {
			best = eval
			first = false
		}
	}
	return best
}
