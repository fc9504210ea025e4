package economy

import "errors"

// ErrInsufficientFunds is returned by Debit when the user's balance
// cannot cover the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Gateway is the chip ledger boundary. It is the only place where
// money-equivalent state changes hands, so implementations must make
// Debit atomic with respect to concurrent debits and credits for the
// same user. Callers are responsible for invoking each operation
// exactly once per buy-in or cash-out event.
type Gateway interface {
	// Debit withdraws amount from the user's balance. It returns
	// ErrInsufficientFunds without changing anything when the balance
	// is too small.
	Debit(userID string, amount int64) error

	// Credit deposits amount into the user's balance. Crediting chips
	// back cannot fail by design; an error here signals a broken
	// ledger, not a rejected credit.
	Credit(userID string, amount int64) error

	// Balance returns the user's current balance.
	Balance(userID string) (int64, error)
}
