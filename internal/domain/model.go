/**
 * @description
 * This file defines the model descriptor used by the generation catalog. The
 * catalog is loaded once at process start and stays immutable for the process
 * lifetime; costs are resolved per submission, so a redeploy with new catalog
 * entries takes effect on the next request.
 */

package domain

// ModelKind distinguishes still-image models from motion models.
type ModelKind string

const (
	ModelKindImage  ModelKind = "image"
	ModelKindMotion ModelKind = "motion"
)

// ModelDescriptor describes one selectable generation model.
type ModelDescriptor struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Kind          ModelKind `json:"kind"`
	UpstreamAPIID string    `json:"upstream_api_id"`
	CreditCost    int64     `json:"credit_cost"`
	IsAvailable   bool      `json:"is_available"`
}
