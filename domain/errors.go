package domain

import (
	"errors"
	"fmt"
)

// User errors: recoverable, reported only to the originating
// connection, and guaranteed not to have altered table state.
var (
	ErrOutOfTurn     = errors.New("not your turn to act")
	ErrIllegalAction = errors.New("illegal action")
	ErrTableFull     = errors.New("table is full")
	ErrWrongPasscode = errors.New("wrong passcode")
	ErrNotSeated     = errors.New("player is not seated at this table")
	ErrAlreadySeated = errors.New("player is already seated at this table")
	ErrTableClosed   = errors.New("table is closed")
	ErrUnknownTable  = errors.New("table not found")
)

// FatalTableError marks an internal inconsistency (a violated
// invariant, an exhausted deck). The hand it occurred in has been
// aborted with a full refund and the table reset to idle.
type FatalTableError struct {
	TableID string
	Reason  string
	Err     error
}

func (e *FatalTableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal table error on %s: %s: %v", e.TableID, e.Reason, e.Err)
	}
	return fmt.Sprintf("fatal table error on %s: %s", e.TableID, e.Reason)
}

func (e *FatalTableError) Unwrap() error { return e.Err }
