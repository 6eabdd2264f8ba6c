package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"arcade-engine/internal/model"
)

// TransactionRepository handles the balance-change audit trail.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Record creates a new transaction record. sessionID may be nil for
// mutations not attributed to a session (transfers, daily bonus, resets).
func (r *TransactionRepository) Record(ctx context.Context, accountID string, amount int64, txType string, sessionID *string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (account_id, amount, type, session_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, account_id, amount, type, session_id, created_at
	`

	var tx model.Transaction
	err := r.pool.QueryRow(ctx, query, accountID, amount, txType, sessionID).Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Amount,
		&tx.Type,
		&tx.SessionID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	return &tx, nil
}

// ByAccount retrieves transactions for an account, newest first.
func (r *TransactionRepository) ByAccount(ctx context.Context, accountID string, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, account_id, amount, type, session_id, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.Amount,
			&tx.Type,
			&tx.SessionID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// NetSince returns an account's net wagering result since the given time,
// counting only session-originated transaction types.
func (r *TransactionRepository) NetSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1
		  AND type IN ('wager', 'payout', 'refund')
		  AND created_at >= $2
	`

	var net int64
	if err := r.pool.QueryRow(ctx, query, accountID, since).Scan(&net); err != nil {
		return 0, fmt.Errorf("failed to get net since: %w", err)
	}
	return net, nil
}
