package ledger

import "errors"

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInvalidAmount     = errors.New("ledger: amount must be positive")
	ErrDailyClaimed      = errors.New("ledger: daily bonus already claimed")
	ErrSelfTransfer      = errors.New("ledger: cannot transfer to self")
)
