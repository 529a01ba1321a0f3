/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL queries for account lookups and the atomic credit
 * debit/credit operations that back the quota ledger.
 *
 * @notes
 * - DebitCredits uses a single conditional UPDATE (`credits >= $amount`) rather
 *   than a read-then-write pair. The row guard and the decrement execute as one
 *   statement, so the non-negative balance invariant holds under concurrent
 *   debits across any number of service instances.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinetix/generation-service/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetAccountByID retrieves an account from the database by its ID.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, credits, subscription_tier, subscription_status,
		       subscription_id, subscription_expires, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID,
		&account.Credits,
		&account.SubscriptionTier,
		&account.SubscriptionStatus,
		&account.SubscriptionID,
		&account.SubscriptionExpires,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// DebitCredits performs an atomic conditional debit on an account's credit balance.
func (r *PostgresRepository) DebitCredits(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	// The balance guard lives in the WHERE clause so check and decrement are one
	// statement. Zero rows affected means either the account is missing or the
	// balance fell short; a follow-up point lookup disambiguates.
	tag, err := r.db.Exec(ctx,
		"UPDATE accounts SET credits = credits - $1, updated_at = NOW() WHERE id = $2 AND credits >= $1",
		amount, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if lookupErr := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists); lookupErr != nil {
			return fmt.Errorf("debit rejected and account lookup failed: %w", lookupErr)
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrInsufficientCredits
	}
	return nil
}

// CreditCredits performs an atomic credit on an account's credit balance.
func (r *PostgresRepository) CreditCredits(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tag, err := r.db.Exec(ctx,
		"UPDATE accounts SET credits = credits + $1, updated_at = NOW() WHERE id = $2",
		amount, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
