/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access
 * operations required by the generation-service. Keeping the interface separate
 * from the PostgreSQL implementation lets the application layer be tested with
 * in-memory fakes.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/kinetix/generation-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// GetAccountByID fetches a single account row. Returns ErrAccountNotFound
	// when no row matches.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// DebitCredits atomically decrements an account's credit balance. The
	// decrement is conditional at the query level: it only applies when the
	// balance covers the amount, so two concurrent debits against a balance
	// just above zero can never both succeed. Returns ErrInsufficientCredits
	// when the balance does not cover the amount, leaving the row unchanged.
	DebitCredits(ctx context.Context, accountID string, amount int64) error

	// CreditCredits atomically increments an account's credit balance. Used for
	// grants and as the compensating action after a failed upstream submission.
	CreditCredits(ctx context.Context, accountID string, amount int64) error
}
