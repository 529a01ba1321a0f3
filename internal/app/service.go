/**
 * @description
 * This file contains the core business logic for the generation-service. The
 * `Service` struct orchestrates credit-gated job submission, coordinating the
 * model catalog, the guest rate limiter, the quota ledger, and the upstream
 * inference queue.
 *
 * Key features:
 * - Implements the submission flow: validate, resolve model, gate anonymous
 *   callers (bot verification + rate limit), debit credits, submit upstream.
 * - Debits before submitting so concurrent submissions cannot spend credits
 *   the account does not have; a failed submission triggers one compensating
 *   credit for the exact debited amount.
 * - Publishes lifecycle events to RabbitMQ for asynchronous consumers,
 *   including a dedicated event when a compensating credit itself fails so the
 *   reconciliation job can repair the balance out of band.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - internal/catalog, internal/domain, internal/imaging, internal/store: Core packages.
 * - pkg/billingclient, pkg/queueclient, pkg/rabbitmq: External service communication.
 */

package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kinetix/generation-service/internal/catalog"
	"github.com/kinetix/generation-service/internal/domain"
	"github.com/kinetix/generation-service/internal/imaging"
	"github.com/kinetix/generation-service/internal/store"
	"github.com/kinetix/generation-service/pkg/billingclient"
	"github.com/kinetix/generation-service/pkg/queueclient"
	"github.com/kinetix/generation-service/pkg/rabbitmq"
)

const (
	DefaultImagePixelBudget = 1_048_576 // 1024x1024
	maxPromptLength         = 2000
)

// QueueSubmitter submits a generation job to the upstream inference queue.
type QueueSubmitter interface {
	Submit(ctx context.Context, upstreamAPIID string, input queueclient.SubmitInput) (*queueclient.SubmitResponse, error)
}

// SubscriptionCanceler cancels a subscription with the billing provider.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, subscriptionID string) (*billingclient.CancelResponse, error)
}

// ChallengeVerifier checks a bot-verification challenge token.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Caller identifies who is submitting a request. An empty AccountID means the
// anonymous path: no ledger involvement, guest rate limiting instead.
type Caller struct {
	AccountID  string
	RemoteAddr string
	UserAgent  string
}

// Anonymous reports whether the caller has no resolved account.
func (c Caller) Anonymous() bool {
	return c.AccountID == ""
}

// Service provides the core business logic for generation submission.
type Service struct {
	repo             store.Repository
	catalog          *catalog.Catalog
	queue            QueueSubmitter
	billing          SubscriptionCanceler
	verifier         ChallengeVerifier
	limiter          GuestLimiter
	events           rabbitmq.Publisher
	imagePixelBudget int
}

// NewService creates a new generation service instance.
func NewService(
	repo store.Repository,
	modelCatalog *catalog.Catalog,
	queue QueueSubmitter,
	billing SubscriptionCanceler,
	verifier ChallengeVerifier,
	limiter GuestLimiter,
	events rabbitmq.Publisher,
) *Service {
	return &Service{
		repo:             repo,
		catalog:          modelCatalog,
		queue:            queue,
		billing:          billing,
		verifier:         verifier,
		limiter:          limiter,
		events:           events,
		imagePixelBudget: DefaultImagePixelBudget,
	}
}

// SetImagePixelBudget overrides the pixel budget applied to inline reference images.
func (s *Service) SetImagePixelBudget(budget int) {
	if budget > 0 {
		s.imagePixelBudget = budget
	}
}

// SubmitGeneration runs the full credit-gated submission flow and returns the
// upstream request id. For anonymous callers the returned GuestUsage describes
// the advisory state of their rate-limit window; it is nil for authenticated
// callers.
func (s *Service) SubmitGeneration(ctx context.Context, caller Caller, req domain.GenerationRequest) (*domain.GenerationSubmission, *domain.GuestUsage, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	model, err := s.catalog.Resolve(req.ModelID)
	if err != nil {
		return nil, nil, err
	}

	var usage *domain.GuestUsage
	if caller.Anonymous() {
		usage, err = s.gateAnonymous(ctx, caller, req)
		if err != nil {
			return nil, usage, err
		}
	}

	input, err := s.buildQueueInput(req)
	if err != nil {
		return nil, usage, err
	}

	if caller.Anonymous() {
		resp, err := s.queue.Submit(ctx, model.UpstreamAPIID, input)
		if err != nil {
			log.Printf("level=warn component=app op=submit_generation outcome=upstream_failed model_id=%s anonymous=true err=%v", model.ID, err)
			return nil, usage, fmt.Errorf("%w: %v", ErrUpstreamSubmission, err)
		}
		log.Printf("level=info component=app op=submit_generation outcome=accepted model_id=%s request_id=%s anonymous=true", model.ID, resp.RequestID)
		return &domain.GenerationSubmission{
			RequestID:      resp.RequestID,
			ModelID:        model.ID,
			CreditsCharged: 0,
		}, usage, nil
	}

	// Authenticated path: debit before submitting so parallel submissions
	// cannot overspend, then compensate if the upstream rejects the job.
	account, err := s.repo.GetAccountByID(ctx, caller.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if account.Credits < model.CreditCost {
		return nil, nil, &InsufficientCreditsError{Required: model.CreditCost, Available: account.Credits}
	}

	if err := s.repo.DebitCredits(ctx, caller.AccountID, model.CreditCost); err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			// A concurrent debit drained the balance between the check and the
			// conditional decrement; report the fresh balance best effort.
			available := account.Credits
			if fresh, lookupErr := s.repo.GetAccountByID(ctx, caller.AccountID); lookupErr == nil {
				available = fresh.Credits
			}
			return nil, nil, &InsufficientCreditsError{Required: model.CreditCost, Available: available}
		}
		return nil, nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	resp, err := s.queue.Submit(ctx, model.UpstreamAPIID, input)
	if err != nil {
		s.compensate(ctx, caller.AccountID, model.ID, model.CreditCost, err)
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstreamSubmission, err)
	}

	if s.events != nil {
		if pubErr := s.events.PublishGenerationEvent(ctx, "generation.submitted", rabbitmq.GenerationEvent{
			AccountID: caller.AccountID,
			ModelID:   model.ID,
			RequestID: resp.RequestID,
			Credits:   model.CreditCost,
		}); pubErr != nil {
			log.Printf("level=warn component=app msg=\"generation submitted event publish failed\" account_id=%s err=%v", caller.AccountID, pubErr)
		}
	}

	log.Printf("level=info component=app op=submit_generation outcome=accepted model_id=%s request_id=%s account_id=%s credits=%d", model.ID, resp.RequestID, caller.AccountID, model.CreditCost)
	return &domain.GenerationSubmission{
		RequestID:      resp.RequestID,
		ModelID:        model.ID,
		CreditsCharged: model.CreditCost,
	}, nil, nil
}

// gateAnonymous applies the bot-verification and rate-limit gates. The usage
// snapshot is returned even on denial so the handler can emit advisory headers.
func (s *Service) gateAnonymous(ctx context.Context, caller Caller, req domain.GenerationRequest) (*domain.GuestUsage, error) {
	if s.verifier != nil {
		token := strings.TrimSpace(req.ChallengeToken)
		if token == "" {
			return nil, ErrBotVerificationRequired
		}
		passed, err := s.verifier.Verify(ctx, token, caller.RemoteAddr)
		if err != nil {
			return nil, fmt.Errorf("bot verification unavailable: %w", err)
		}
		if !passed {
			return nil, ErrBotVerificationFailed
		}
	}

	if s.limiter == nil {
		return nil, nil
	}

	key := GuestLimiterKey(caller.RemoteAddr, caller.UserAgent)
	decision, err := s.limiter.Check(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	usage := &domain.GuestUsage{
		Limit:     decision.Limit,
		Remaining: decision.Remaining,
		ResetAt:   decision.ResetAt.Unix(),
	}
	if !decision.Allowed {
		return usage, &RateLimitError{Limit: decision.Limit, ResetAt: decision.ResetAt}
	}
	return usage, nil
}

// buildQueueInput normalizes request parameters for the upstream queue. Inline
// reference images are resized to the pixel budget and inlined as a data URI.
func (s *Service) buildQueueInput(req domain.GenerationRequest) (queueclient.SubmitInput, error) {
	input := queueclient.SubmitInput{
		Prompt:      strings.TrimSpace(req.Prompt),
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		ImageURL:    strings.TrimSpace(req.ImageURL),
	}

	if len(req.ImageData) > 0 {
		normalized, err := imaging.Normalize(req.ImageData, s.imagePixelBudget)
		if err != nil {
			if errors.Is(err, imaging.ErrInvalidImage) {
				return input, err
			}
			return input, fmt.Errorf("failed to normalize reference image: %w", err)
		}
		input.ImageURL = fmt.Sprintf("data:%s;base64,%s", normalized.MimeType, base64.StdEncoding.EncodeToString(normalized.Bytes))
	}

	return input, nil
}

// compensate restores the debited credits after a failed upstream submission.
// Its own failure is logged and published for reconciliation but never changes
// the error surfaced to the caller.
func (s *Service) compensate(ctx context.Context, accountID, modelID string, amount int64, submitErr error) {
	log.Printf("level=warn component=app op=submit_generation outcome=upstream_failed account_id=%s model_id=%s credits=%d err=%v", accountID, modelID, amount, submitErr)

	if err := s.repo.CreditCredits(ctx, accountID, amount); err != nil {
		log.Printf("CRITICAL: failed to issue compensating credit of %d to account %s after upstream failure: %v", amount, accountID, err)
		if s.events != nil {
			if pubErr := s.events.PublishGenerationEvent(ctx, "generation.compensation_failed", rabbitmq.GenerationEvent{
				AccountID: accountID,
				ModelID:   modelID,
				Credits:   amount,
				Reason:    err.Error(),
			}); pubErr != nil {
				log.Printf("CRITICAL: compensation failure event publish also failed for account %s: %v", accountID, pubErr)
			}
		}
		return
	}

	if s.events != nil {
		if pubErr := s.events.PublishGenerationEvent(ctx, "generation.compensated", rabbitmq.GenerationEvent{
			AccountID: accountID,
			ModelID:   modelID,
			Credits:   amount,
			Reason:    submitErr.Error(),
		}); pubErr != nil {
			log.Printf("level=warn component=app msg=\"compensation event publish failed\" account_id=%s err=%v", accountID, pubErr)
		}
	}
}

// GetBalance returns the credit balance and subscription tier for an account.
func (s *Service) GetBalance(ctx context.Context, accountID string) (*domain.BalanceSummary, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.BalanceSummary{
		Credits:          account.Credits,
		SubscriptionTier: account.SubscriptionTier,
	}, nil
}

// ListModels returns the available catalog entries.
func (s *Service) ListModels() []domain.ModelDescriptor {
	return s.catalog.List()
}

// CancelSubscription delegates cancellation to the billing provider after
// checking the tier precondition. Free-tier accounts are rejected before any
// billing call is made.
func (s *Service) CancelSubscription(ctx context.Context, accountID string) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.SubscriptionTier.IsPaid() {
		return ErrCancellationNotAllowed
	}
	if account.SubscriptionID == nil || strings.TrimSpace(*account.SubscriptionID) == "" {
		return ErrCancellationNotAllowed
	}

	resp, err := s.billing.CancelSubscription(ctx, *account.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing cancellation failed: %w", err)
	}

	log.Printf("level=info component=app op=cancel_subscription outcome=accepted account_id=%s subscription_id=%s status=%s", accountID, *account.SubscriptionID, resp.Status)
	return nil
}

func validateRequest(req domain.GenerationRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Reason: "prompt is required"}
	}
	if len(req.Prompt) > maxPromptLength {
		return &ValidationError{Reason: fmt.Sprintf("prompt exceeds %d characters", maxPromptLength)}
	}
	if strings.TrimSpace(req.ModelID) == "" {
		return &ValidationError{Reason: "model_id is required"}
	}
	if req.Duration < 0 {
		return &ValidationError{Reason: "duration must not be negative"}
	}
	return nil
}
