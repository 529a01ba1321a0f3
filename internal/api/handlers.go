/**
 * @description
 * This file contains the HTTP handlers for the generation-service's API
 * endpoints. Handlers parse incoming requests, call the application service,
 * and translate its error taxonomy into stable `{kind, message}` error bodies
 * with the matching status codes. Internal details (upstream error bodies,
 * driver errors) are never forwarded to the caller.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/catalog, internal/domain, internal/imaging, internal/store: Service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kinetix/generation-service/internal/app"
	"github.com/kinetix/generation-service/internal/catalog"
	"github.com/kinetix/generation-service/internal/domain"
	"github.com/kinetix/generation-service/internal/imaging"
	"github.com/kinetix/generation-service/internal/store"
)

// GenerationHandlers holds the application service that handlers will use.
type GenerationHandlers struct {
	service *app.Service
}

// NewGenerationHandlers creates a new instance of GenerationHandlers.
func NewGenerationHandlers(service *app.Service) *GenerationHandlers {
	return &GenerationHandlers{service: service}
}

// apiError is the stable error envelope returned to callers.
type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Quota details, present only on the error kinds that carry them.
	Required  *int64 `json:"required,omitempty"`
	Available *int64 `json:"available,omitempty"`
	ResetAt   *int64 `json:"reset_at,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, apiErr apiError) {
	writeJSON(w, status, errorResponse{Error: apiErr})
}

// SubmitGenerationHandler handles generation submission for both anonymous and
// authenticated callers.
func (h *GenerationHandlers) SubmitGenerationHandler(w http.ResponseWriter, r *http.Request) {
	accountID, _ := GetAccountID(r.Context())
	caller := app.Caller{
		AccountID:  accountID,
		RemoteAddr: clientAddr(r),
		UserAgent:  r.Header.Get("User-Agent"),
	}

	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=submit_generation outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, apiError{Kind: "validation_error", Message: "Invalid request body"})
		return
	}

	submission, usage, err := h.service.SubmitGeneration(r.Context(), caller, req)
	if usage != nil {
		setGuestUsageHeaders(w, usage)
	}
	if err != nil {
		h.writeSubmissionError(w, caller, err)
		return
	}

	resp := struct {
		*domain.GenerationSubmission
		GuestUsage *domain.GuestUsage `json:"guest_usage,omitempty"`
	}{submission, usage}
	writeJSON(w, http.StatusCreated, resp)
}

// writeSubmissionError maps service errors from the submission flow to
// transport status codes and stable error kinds.
func (h *GenerationHandlers) writeSubmissionError(w http.ResponseWriter, caller app.Caller, err error) {
	var validationErr *app.ValidationError
	var creditsErr *app.InsufficientCreditsError
	var rateErr *app.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, apiError{Kind: "validation_error", Message: validationErr.Reason})
	case errors.Is(err, imaging.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, apiError{Kind: "invalid_image", Message: "Reference image could not be decoded"})
	case errors.Is(err, catalog.ErrModelNotFound):
		writeError(w, http.StatusNotFound, apiError{Kind: "model_not_found", Message: "Unknown or unavailable model"})
	case errors.Is(err, store.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, apiError{Kind: "account_not_found", Message: "Account not found"})
	case errors.Is(err, app.ErrBotVerificationRequired):
		writeError(w, http.StatusForbidden, apiError{Kind: "bot_verification_required", Message: "A challenge token is required"})
	case errors.Is(err, app.ErrBotVerificationFailed):
		writeError(w, http.StatusForbidden, apiError{Kind: "bot_verification_failed", Message: "Challenge verification failed"})
	case errors.As(err, &rateErr):
		resetAt := rateErr.ResetAt.Unix()
		retryAfter := resetAt - nowUnix()
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		writeError(w, http.StatusTooManyRequests, apiError{
			Kind:    "rate_limit_exceeded",
			Message: fmt.Sprintf("Free generation limit of %d reached", rateErr.Limit),
			ResetAt: &resetAt,
		})
	case errors.As(err, &creditsErr):
		required, available := creditsErr.Required, creditsErr.Available
		writeError(w, http.StatusPaymentRequired, apiError{
			Kind:      "insufficient_credits",
			Message:   "Not enough credits for this model",
			Required:  &required,
			Available: &available,
		})
	case errors.Is(err, app.ErrUpstreamSubmission):
		// Compensation has already been attempted; the caller sees a generic failure.
		writeError(w, http.StatusInternalServerError, apiError{Kind: "upstream_submission_failed", Message: "Generation could not be submitted, please try again"})
	default:
		log.Printf("level=error component=api endpoint=submit_generation msg=\"unexpected error\" account_id=%s err=%v", caller.AccountID, err)
		writeError(w, http.StatusInternalServerError, apiError{Kind: "internal_error", Message: "Something went wrong"})
	}
}

// BalanceHandler returns the caller's credit balance and subscription tier.
func (h *GenerationHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, apiError{Kind: "unauthenticated", Message: "Authentication required"})
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, apiError{Kind: "account_not_found", Message: "Account not found"})
			return
		}
		log.Printf("level=error component=api endpoint=balance msg=\"balance lookup failed\" account_id=%s err=%v", accountID, err)
		writeError(w, http.StatusInternalServerError, apiError{Kind: "internal_error", Message: "Something went wrong"})
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// CancelSubscriptionHandler delegates subscription cancellation to the billing provider.
func (h *GenerationHandlers) CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, apiError{Kind: "unauthenticated", Message: "Authentication required"})
		return
	}

	err := h.service.CancelSubscription(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, apiError{Kind: "account_not_found", Message: "Account not found"})
		case errors.Is(err, app.ErrCancellationNotAllowed):
			writeError(w, http.StatusPreconditionFailed, apiError{Kind: "cancellation_not_allowed", Message: "No active paid subscription to cancel"})
		default:
			log.Printf("level=error component=api endpoint=cancel_subscription msg=\"cancellation failed\" account_id=%s err=%v", accountID, err)
			writeError(w, http.StatusInternalServerError, apiError{Kind: "internal_error", Message: "Subscription could not be canceled, please try again"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListModelsHandler returns the available generation models.
func (h *GenerationHandlers) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": h.service.ListModels()})
}

// setGuestUsageHeaders emits the advisory rate-limit headers consumed by the
// frontend's client-held counter. They are UX hints, not a security boundary.
func setGuestUsageHeaders(w http.ResponseWriter, usage *domain.GuestUsage) {
	w.Header().Set("X-Guest-Limit", strconv.Itoa(usage.Limit))
	w.Header().Set("X-Guest-Remaining", strconv.Itoa(usage.Remaining))
	w.Header().Set("X-Guest-Reset", strconv.FormatInt(usage.ResetAt, 10))
}

func nowUnix() int64 {
	return time.Now().Unix()
}

// clientAddr resolves the client network address, preferring the first
// X-Forwarded-For hop set by the edge proxy.
func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if addr := strings.TrimSpace(parts[0]); addr != "" {
			return addr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
