/**
 * @description
 * This file defines the generation request and response models. A generation is
 * ephemeral from this service's point of view: it is validated, paid for with
 * credits, submitted to the upstream inference queue, and then fetched out of
 * band by the client using the upstream request id.
 */

package domain

// GenerationRequest is the DTO for incoming generation API requests.
type GenerationRequest struct {
	ModelID     string `json:"model_id"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration,omitempty"`     // seconds, motion models only
	AspectRatio string `json:"aspect_ratio,omitempty"` // e.g., '16:9'
	ImageURL    string `json:"image_url,omitempty"`    // reference image for image-to-video
	// ImageData is an optional inline reference image (base64 in JSON). It is
	// normalized to the configured pixel budget before submission.
	ImageData []byte `json:"image_data,omitempty"`
	// ChallengeToken is the bot-verification token accompanying anonymous requests.
	ChallengeToken string `json:"challenge_token,omitempty"`
}

// GenerationSubmission is returned to the caller once the upstream queue has
// accepted the job. Results are polled out of band using RequestID.
type GenerationSubmission struct {
	RequestID      string `json:"request_id"`
	ModelID        string `json:"model_id"`
	CreditsCharged int64  `json:"credits_charged"`
}

// GuestUsage reports the advisory state of the anonymous rate-limit window.
type GuestUsage struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"reset_at"` // unix seconds
}
