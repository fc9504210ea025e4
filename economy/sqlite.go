package economy

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteGateway persists balances in a sqlite database. Every debit
// and credit also records a transaction row, so the ledger can be
// audited after the fact.
type SQLiteGateway struct {
	db *sql.DB
}

// NewSQLiteGateway opens (and if needed creates) the ledger database
// at the given path.
func NewSQLiteGateway(dbPath string) (*SQLiteGateway, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteGateway{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (player_id) REFERENCES players(id)
		)
	`)
	return err
}

// Debit withdraws amount from the user's balance. The conditional
// UPDATE is the atomicity guarantee: the balance check and the
// subtraction happen in one statement, so concurrent debits can never
// drive a balance negative.
func (g *SQLiteGateway) Debit(userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("debit amount cannot be negative: %d", amount)
	}

	tx, err := g.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE players SET balance = balance - ?
		WHERE id = ? AND balance >= ?
	`, amount, userID, amount)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (player_id, amount, type)
		VALUES (?, ?, 'debit')
	`, userID, -amount)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Credit deposits amount into the user's balance, creating the user
// row if it does not exist yet.
func (g *SQLiteGateway) Credit(userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount cannot be negative: %d", amount)
	}

	tx, err := g.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO players (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?
	`, userID, amount, amount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (player_id, amount, type)
		VALUES (?, ?, 'credit')
	`, userID, amount)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Balance returns the user's current balance. Unknown users have a
// zero balance.
func (g *SQLiteGateway) Balance(userID string) (int64, error) {
	var balance int64
	err := g.db.QueryRow("SELECT balance FROM players WHERE id = ?", userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// Close closes the underlying database.
func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}
