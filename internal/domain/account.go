/**
 * @description
 * This file defines the account domain model for the generation-service.
 * Accounts are provisioned by the identity/billing collaborators; this service
 * only reads identity and subscription mirror fields and mutates the credit
 * balance through the store's atomic operations.
 *
 * @notes
 * - Credits are an integer count, never fractional. The balance column carries
 *   a CHECK (credits >= 0) constraint; the store enforces the same invariant at
 *   the query level so a failed debit never changes the row.
 * - Subscription fields are written only by the billing webhook sync; they are
 *   read-only from this service's perspective.
 */

package domain

import "time"

// SubscriptionTier identifies the billing plan an account is on.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierStarter SubscriptionTier = "starter"
	TierPro     SubscriptionTier = "pro"
)

// IsPaid reports whether the tier is a paying plan.
func (t SubscriptionTier) IsPaid() bool {
	return t == TierStarter || t == TierPro
}

// Account represents a user account row as seen by this service.
type Account struct {
	ID                  string           `json:"id"`
	Credits             int64            `json:"credits"`
	SubscriptionTier    SubscriptionTier `json:"subscription_tier"`
	SubscriptionStatus  string           `json:"subscription_status"` // e.g., 'active', 'canceled', 'past_due'
	SubscriptionID      *string          `json:"subscription_id,omitempty"`
	SubscriptionExpires *time.Time       `json:"subscription_expires,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// BalanceSummary is the DTO returned by the balance endpoint.
type BalanceSummary struct {
	Credits          int64            `json:"credits"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier"`
}
