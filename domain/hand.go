package domain

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/greenfelt/holdem/cards"
	"github.com/greenfelt/holdem/domain/events"
	"github.com/greenfelt/holdem/hands"
)

// maybeStartHand starts a new hand immediately if the table is idle
// with enough players. Called after joins and when the inter-hand
// timer fires.
func (t *Table) maybeStartHand() {
	if t.round != RoundIdle {
		return
	}
	if occupiedSeats(&t.seats) < 2 {
		return
	}
	t.startHand()
}

// scheduleNextHand arms the inter-hand pause. The callback re-checks
// occupancy, so players leaving during the pause simply keep the
// table idle.
func (t *Table) scheduleNextHand() {
	if t.nextHandDelay <= 0 {
		t.maybeStartHand()
		return
	}
	if t.nextHandTimer != nil {
		t.nextHandTimer.Stop()
	}
	t.nextHandTimer = time.AfterFunc(t.nextHandDelay, func() {
		t.enqueue(func() error {
			t.maybeStartHand()
			return nil
		})
	})
}

func (t *Table) startHand() {
	t.handID = ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
	t.deck = t.newDeck()
	t.board = nil
	t.pot = 0
	t.currentBet = 0
	t.forfeits = make(map[string]int64)

	for i := range t.seats {
		t.seats[i].resetForHand()
	}

	t.dealerSeat = nextOccupied(&t.seats, t.dealerSeat)
	sbSeat := nextOccupied(&t.seats, t.dealerSeat)
	bbSeat := nextOccupied(&t.seats, sbSeat)

	t.round = RoundPreFlop

	t.log.Info().Str("hand", t.handID).Int("dealer", t.dealerSeat).
		Int("players", occupiedSeats(&t.seats)).Msg("hand started")
	t.emitEvent(events.HandStarted{
		TableID:    t.ID,
		HandID:     t.handID,
		DealerSeat: t.dealerSeat,
		Seats:      occupiedSeatIndexes(&t.seats),
		At:         time.Now(),
	})

	t.postBlind(sbSeat, t.Stakes.SmallBlind, false)
	t.postBlind(bbSeat, t.Stakes.BigBlind, true)
	t.currentBet = t.Stakes.BigBlind

	for i := range t.seats {
		seat := &t.seats[i]
		if !seat.Occupied() {
			continue
		}
		drawn, err := t.deck.Draw(2)
		if err != nil {
			t.abortHand("deck exhausted while dealing", err)
			return
		}
		seat.HoleCards = drawn
		t.emitEvent(events.HoleCardsDealt{
			TableID: t.ID,
			HandID:  t.handID,
			UserID:  seat.UserID,
			Seat:    i,
			Cards:   append(cards.Stack(nil), drawn...),
		})
	}

	t.emitState()

	// Pre-flop action opens after the big blind. If the blinds put
	// everyone all-in already there is nothing to decide.
	if actionableSeats(&t.seats) < 2 {
		t.advanceStreet()
		return
	}
	t.setTurn(nextActor(&t.seats, bbSeat))
}

// postBlind moves a forced bet into the pot, going all-in for less
// when the stack cannot cover it.
func (t *Table) postBlind(seatIdx int, amount int64, big bool) {
	seat := &t.seats[seatIdx]
	if amount > seat.Stack {
		amount = seat.Stack
	}
	seat.Stack -= amount
	seat.RoundBet += amount
	seat.HandBet += amount
	t.pot += amount
	if seat.Stack == 0 {
		seat.AllIn = true
	}
	t.emitEvent(events.BlindPosted{
		TableID: t.ID,
		HandID:  t.handID,
		UserID:  seat.UserID,
		Seat:    seatIdx,
		Amount:  amount,
		Big:     big,
	})
}

func (t *Table) handleAction(userID string, action ActionType, amount int64) error {
	idx := t.seatIndexOf(userID)
	if idx == -1 {
		return ErrNotSeated
	}
	switch t.round {
	case RoundPreFlop, RoundFlop, RoundTurn, RoundRiver:
	default:
		return fmt.Errorf("%w: no betting round in progress", ErrIllegalAction)
	}
	if idx != t.turnSeat {
		return ErrOutOfTurn
	}

	seat := &t.seats[idx]
	var paid int64

	switch action {
	case ActionFold:
		seat.Folded = true
		seat.HoleCards = nil

	case ActionCheck:
		if seat.RoundBet != t.currentBet {
			return fmt.Errorf("%w: cannot check facing a bet of %d", ErrIllegalAction, t.currentBet)
		}

	case ActionCall:
		owed := t.currentBet - seat.RoundBet
		if owed <= 0 {
			return fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		paid = owed
		if paid >= seat.Stack {
			paid = seat.Stack
			seat.AllIn = true
		}
		seat.Stack -= paid
		seat.RoundBet += paid
		seat.HandBet += paid
		t.pot += paid

	case ActionRaise:
		// Raise is to-a-total: amount is the target RoundBet, not the
		// increment.
		minTarget := t.currentBet * 2
		if minTarget < t.Stakes.BigBlind {
			minTarget = t.Stakes.BigBlind
		}
		allInTarget := seat.RoundBet + seat.Stack
		if amount <= t.currentBet {
			return fmt.Errorf("%w: raise to %d does not exceed current bet %d", ErrIllegalAction, amount, t.currentBet)
		}
		if amount > allInTarget {
			return fmt.Errorf("%w: raise to %d exceeds stack", ErrIllegalAction, amount)
		}
		if amount < minTarget && amount != allInTarget {
			return fmt.Errorf("%w: minimum raise is to %d", ErrIllegalAction, minTarget)
		}
		paid = amount - seat.RoundBet
		seat.Stack -= paid
		seat.RoundBet = amount
		seat.HandBet += paid
		t.pot += paid
		if seat.Stack == 0 {
			seat.AllIn = true
		}
		t.currentBet = amount
		// A raise reopens the action for everyone else.
		for i := range t.seats {
			if i != idx {
				t.seats[i].Acted = false
			}
		}

	default:
		return fmt.Errorf("%w: unknown action %q", ErrIllegalAction, action)
	}

	seat.Acted = true

	t.log.Debug().Str("hand", t.handID).Int("seat", idx).Str("action", string(action)).
		Int64("paid", paid).Int64("pot", t.pot).Msg("player acted")
	t.emitEvent(events.PlayerActed{
		TableID: t.ID,
		HandID:  t.handID,
		UserID:  userID,
		Seat:    idx,
		Action:  string(action),
		Amount:  paid,
		Pot:     t.pot,
	})

	if isWalkover(&t.seats) {
		t.finishWalkover()
		t.emitState()
		return nil
	}

	t.advanceAfter(idx)
	t.emitState()
	return nil
}

// advanceAfter moves the game forward once the seat at fromSeat has
// resolved (acted, folded, or left): either the round continues with
// the next actor, or the street is over.
func (t *Table) advanceAfter(fromSeat int) {
	if isRoundComplete(&t.seats, t.currentBet) {
		t.advanceStreet()
		return
	}
	next := nextActor(&t.seats, fromSeat)
	if next == -1 {
		t.advanceStreet()
		return
	}
	t.setTurn(next)
}

// advanceStreet deals the next street, or runs the showdown after the
// river. With fewer than two seats able to act the remaining streets
// are dealt straight through.
func (t *Table) advanceStreet() {
	for {
		t.currentBet = 0
		for i := range t.seats {
			t.seats[i].RoundBet = 0
			t.seats[i].Acted = false
		}

		var dealt int
		switch t.round {
		case RoundPreFlop:
			t.round = RoundFlop
			dealt = 3
		case RoundFlop:
			t.round = RoundTurn
			dealt = 1
		case RoundTurn:
			t.round = RoundRiver
			dealt = 1
		case RoundRiver:
			t.showdown()
			return
		default:
			return
		}

		drawn, err := t.deck.Draw(dealt)
		if err != nil {
			t.abortHand("deck exhausted on "+string(t.round), err)
			return
		}
		t.board = append(t.board, drawn...)

		t.log.Debug().Str("hand", t.handID).Str("round", string(t.round)).
			Str("board", t.board.String()).Msg("street dealt")
		t.emitEvent(events.StreetDealt{
			TableID: t.ID,
			HandID:  t.handID,
			Round:   string(t.round),
			Cards:   append(cards.Stack(nil), drawn...),
			Board:   append(cards.Stack(nil), t.board...),
		})
		t.emitState()

		if actionableSeats(&t.seats) >= 2 {
			t.setTurn(nextActor(&t.seats, t.dealerSeat))
			return
		}
		// All-in runout: keep dealing.
	}
}

func (t *Table) showdown() {
	t.round = RoundShowdown
	t.clearTurn()

	type contender struct {
		seat  int
		eval  hands.HandEvaluation
		score uint32
	}
	var contenders []contender
	revealed := make(map[int]events.RevealedHand)

	for i := range t.seats {
		seat := &t.seats[i]
		if !seat.Live() {
			continue
		}
		all := append(append(cards.Stack(nil), seat.HoleCards...), t.board...)
		eval := hands.BestOfSeven(all)
		contenders = append(contenders, contender{seat: i, eval: eval, score: eval.Score()})
		revealed[i] = events.RevealedHand{
			UserID:   seat.UserID,
			Cards:    append(cards.Stack(nil), seat.HoleCards...),
			Category: eval.Rank.String(),
		}
	}

	var best uint32
	for _, c := range contenders {
		if c.score > best {
			best = c.score
		}
	}
	var winners []int
	for _, c := range contenders {
		if c.score == best {
			winners = append(winners, c.seat)
		}
	}

	t.awardPot(winners, "showdown", revealed)
	t.finishHand()
}

// finishWalkover ends the hand when at most one live seat remains.
// Hole cards stay hidden.
func (t *Table) finishWalkover() {
	t.clearTurn()
	winners := make([]int, 0, 1)
	for i := range t.seats {
		if t.seats[i].Live() {
			winners = append(winners, i)
		}
	}
	t.awardPot(winners, "walkover", nil)
	t.finishHand()
}

// awardPot pays the pot out to the winners. Ties split evenly; a
// remainder that does not divide goes one chip at a time to the
// earliest winners clockwise from the dealer, so no chip is ever
// dropped.
func (t *Table) awardPot(winners []int, reason string, revealed map[int]events.RevealedHand) {
	amount := t.pot
	if len(winners) > 0 && amount > 0 {
		share := amount / int64(len(winners))
		remainder := amount % int64(len(winners))
		ordered := orderFromDealer(winners, t.dealerSeat)
		for _, w := range ordered {
			payout := share
			if remainder > 0 {
				payout++
				remainder--
			}
			t.seats[w].Stack += payout
		}
	}
	t.pot = 0
	for i := range t.seats {
		t.seats[i].HandBet = 0
	}
	t.forfeits = make(map[string]int64)

	t.log.Info().Str("hand", t.handID).Str("reason", reason).
		Ints("winners", winners).Int64("amount", amount).Msg("hand ended")
	t.emitEvent(events.HandEnded{
		TableID:       t.ID,
		HandID:        t.handID,
		Reason:        reason,
		WinnerSeats:   winners,
		Amount:        amount,
		RevealedHands: revealed,
		At:            time.Now(),
	})
}

// orderFromDealer sorts seat indexes clockwise starting after the
// dealer.
func orderFromDealer(seatIdxs []int, dealerSeat int) []int {
	ordered := make([]int, len(seatIdxs))
	copy(ordered, seatIdxs)
	pos := func(seat int) int {
		return (seat - dealerSeat - 1 + NumSeats) % NumSeats
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && pos(ordered[j]) < pos(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// abortHand unwinds a hand that cannot continue: every contribution
// in the pot, including those of players who already left, is
// returned to its owner.
func (t *Table) abortHand(reason string, cause error) {
	t.clearTurn()

	for i := range t.seats {
		seat := &t.seats[i]
		if seat.HandBet > 0 {
			seat.Stack += seat.HandBet
			t.pot -= seat.HandBet
			seat.HandBet = 0
		}
	}
	for userID, amount := range t.forfeits {
		t.pot -= amount
		t.creditBack(userID, amount)
	}
	t.forfeits = make(map[string]int64)
	t.pot = 0

	t.log.Error().Err(cause).Str("hand", t.handID).Str("reason", reason).Msg("hand aborted, contributions refunded")
	t.emitEvent(events.HandEnded{
		TableID: t.ID,
		HandID:  t.handID,
		Reason:  "aborted",
		At:      time.Now(),
	})
	t.finishHand()
}

// finishHand resets per-hand state and arms the next-hand pause.
func (t *Table) finishHand() {
	t.round = RoundIdle
	t.handID = ""
	t.board = nil
	t.deck = nil
	t.currentBet = 0
	t.clearTurn()
	for i := range t.seats {
		t.seats[i].resetForHand()
	}
	t.emitState()
	t.scheduleNextHand()
}

// setTurn hands the action to a seat and arms the auto-fold timer.
// The epoch guards against a timer that fires after the turn has
// already moved on.
func (t *Table) setTurn(seatIdx int) {
	t.turnSeat = seatIdx
	t.turnEpoch++
	epoch := t.turnEpoch

	if t.turnTimer != nil {
		t.turnTimer.Stop()
	}

	var deadline time.Time
	if t.turnTimeout > 0 {
		deadline = time.Now().Add(t.turnTimeout)
		t.turnTimer = time.AfterFunc(t.turnTimeout, func() {
			t.enqueue(func() error {
				t.handleTurnTimeout(epoch)
				return nil
			})
		})
	}

	t.emitEvent(events.PlayerTurnStarted{
		TableID:  t.ID,
		HandID:   t.handID,
		UserID:   t.seats[seatIdx].UserID,
		Seat:     seatIdx,
		Deadline: deadline,
	})
}

func (t *Table) clearTurn() {
	t.turnSeat = -1
	t.turnEpoch++
	if t.turnTimer != nil {
		t.turnTimer.Stop()
	}
}

// handleTurnTimeout folds the seat whose clock ran out. A stale epoch
// means the turn already moved, so the timeout is a no-op.
func (t *Table) handleTurnTimeout(epoch uint64) {
	if epoch != t.turnEpoch || t.turnSeat == -1 {
		return
	}
	seat := t.turnSeat
	userID := t.seats[seat].UserID
	t.log.Info().Str("hand", t.handID).Int("seat", seat).Msg("turn timed out, auto-folding")
	if err := t.handleAction(userID, ActionFold, 0); err != nil {
		t.log.Error().Err(err).Int("seat", seat).Msg("auto-fold failed")
	}
}

func occupiedSeatIndexes(seats *[NumSeats]Seat) []int {
	var idxs []int
	for i := range seats {
		if seats[i].Occupied() {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
