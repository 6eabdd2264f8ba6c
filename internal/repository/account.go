// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcade-engine/internal/model"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
)

const accountColumns = "id, balance, lifetime_earned, xp, last_daily_claim, created_at, updated_at"

// AccountRepository handles ledger account persistence.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var acct model.Account
	err := row.Scan(
		&acct.ID,
		&acct.Balance,
		&acct.LifetimeEarned,
		&acct.XP,
		&acct.LastDailyClaim,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// Create creates a new zero-balance account record.
func (r *AccountRepository) Create(ctx context.Context, id string) (*model.Account, error) {
	query := fmt.Sprintf(`
		INSERT INTO accounts (id, balance, lifetime_earned, xp, last_daily_claim, created_at, updated_at)
		VALUES ($1, 0, 0, 0, 0, NOW(), NOW())
		RETURNING %s
	`, accountColumns)

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acct, nil
}

// Get retrieves an account by ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) Get(ctx context.Context, id string) (*model.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// GetOrCreate retrieves an account by ID, creating a zero-balance record
// if it doesn't exist. Returns whether the account was newly created.
func (r *AccountRepository) GetOrCreate(ctx context.Context, id string) (*model.Account, bool, error) {
	acct, err := r.Get(ctx, id)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	acct, err = r.Create(ctx, id)
	if err != nil {
		// Another request might have created the account concurrently
		acct, err = r.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return acct, false, nil
	}

	return acct, true, nil
}

// Credit adds a non-negative amount to the balance. Positive amounts also
// increase the lifetime-earned counter, which never decreases.
func (r *AccountRepository) Credit(ctx context.Context, id string, amount int64) (*model.Account, error) {
	query := fmt.Sprintf(`
		UPDATE accounts
		SET balance = balance + $2,
		    lifetime_earned = lifetime_earned + GREATEST($2, 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, accountColumns)

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, id, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}
	return acct, nil
}

// Debit subtracts amount from the balance only if the balance covers it.
// The WHERE clause makes the check-and-subtract atomic; a false return with
// nil error means insufficient funds and an unchanged record.
func (r *AccountRepository) Debit(ctx context.Context, id string, amount int64) (bool, error) {
	const query = `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
	`

	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetBalance sets an account's balance to an exact value.
// Used by admin resets.
func (r *AccountRepository) SetBalance(ctx context.Context, id string, balance int64) (*model.Account, error) {
	query := fmt.Sprintf(`
		UPDATE accounts
		SET balance = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, accountColumns)

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, id, balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return acct, nil
}

// AddXP adds experience points to an account.
func (r *AccountRepository) AddXP(ctx context.Context, id string, xp int64) (*model.Account, error) {
	query := fmt.Sprintf(`
		UPDATE accounts
		SET xp = xp + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, accountColumns)

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, id, xp))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}
	return acct, nil
}

// SetDailyClaim records the timestamp of the latest daily bonus claim.
func (r *AccountRepository) SetDailyClaim(ctx context.Context, id string, claimedAt int64) error {
	const query = `
		UPDATE accounts
		SET last_daily_claim = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, claimedAt)
	if err != nil {
		return fmt.Errorf("failed to set daily claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Top retrieves the top N accounts by balance.
func (r *AccountRepository) Top(ctx context.Context, limit int) ([]*model.Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		ORDER BY balance DESC
		LIMIT $1
	`, accountColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}
