// Package model defines the data models for the session engine.
package model

import "time"

// Account represents one wallet in the shared credit ledger.
// Accounts are created on first reference and never deleted; an admin
// reset sets the balance back to zero.
type Account struct {
	ID             string    `db:"id"`
	Balance        int64     `db:"balance"`
	LifetimeEarned int64     `db:"lifetime_earned"`
	XP             int64     `db:"xp"`
	LastDailyClaim int64     `db:"last_daily_claim"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Transaction represents a balance change record in the audit trail.
type Transaction struct {
	ID        int64     `db:"id"`
	AccountID string    `db:"account_id"`
	Amount    int64     `db:"amount"`
	Type      string    `db:"type"`
	SessionID *string   `db:"session_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeWager       = "wager"        // Stake debited when a session starts
	TxTypePayout      = "payout"       // Winnings credited on resolution
	TxTypeRefund      = "refund"       // Stake returned (timeout, cancel, failure)
	TxTypeTrivia      = "trivia"       // Trivia correct-answer reward
	TxTypeDaily       = "daily"        // Daily bonus claim
	TxTypeTransferIn  = "transfer_in"  // Received from another account
	TxTypeTransferOut = "transfer_out" // Sent to another account
	TxTypeReset       = "reset"        // Admin balance reset
)
