/**
 * @description
 * This package holds the static registry of selectable generation models. The
 * registry is built once at startup, either from the compiled-in defaults or
 * from a JSON catalog file, and is immutable afterwards. Lookups are pure reads
 * with no I/O.
 *
 * @notes
 * - Unavailable models resolve to the same ErrModelNotFound as unknown ids, so
 *   toggling availability needs no new error handling in callers.
 * - Catalog files are validated strictly at load time: a malformed or
 *   incomplete entry aborts startup instead of propagating an untyped value
 *   into the submission path.
 */

package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kinetix/generation-service/internal/domain"
)

var (
	ErrModelNotFound = errors.New("model not found")
)

// Catalog is an immutable model registry keyed by local model id.
type Catalog struct {
	models map[string]domain.ModelDescriptor
}

// New builds a catalog from the given descriptors. Every entry must carry an
// id, an upstream api id, and a positive credit cost.
func New(models []domain.ModelDescriptor) (*Catalog, error) {
	byID := make(map[string]domain.ModelDescriptor, len(models))
	for _, m := range models {
		if strings.TrimSpace(m.ID) == "" {
			return nil, fmt.Errorf("catalog entry missing id: %+v", m)
		}
		if strings.TrimSpace(m.UpstreamAPIID) == "" {
			return nil, fmt.Errorf("catalog entry %q missing upstream api id", m.ID)
		}
		if m.CreditCost <= 0 {
			return nil, fmt.Errorf("catalog entry %q has non-positive credit cost %d", m.ID, m.CreditCost)
		}
		if _, dup := byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", m.ID)
		}
		byID[m.ID] = m
	}
	if len(byID) == 0 {
		return nil, errors.New("catalog has no entries")
	}
	return &Catalog{models: byID}, nil
}

// LoadFile builds a catalog from a JSON file containing an array of descriptors.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var models []domain.ModelDescriptor
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&models); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return New(models)
}

// Default returns the compiled-in catalog used when no catalog file is configured.
func Default() *Catalog {
	c, err := New([]domain.ModelDescriptor{
		{
			ID:            "swift-image",
			DisplayName:   "Swift Image",
			Kind:          domain.ModelKindImage,
			UpstreamAPIID: "kinetix-ai/swift-image/v2",
			CreditCost:    2,
			IsAvailable:   true,
		},
		{
			ID:            "studio-image",
			DisplayName:   "Studio Image",
			Kind:          domain.ModelKindImage,
			UpstreamAPIID: "kinetix-ai/studio-image/v1",
			CreditCost:    6,
			IsAvailable:   true,
		},
		{
			ID:            "motion-standard",
			DisplayName:   "Motion Standard",
			Kind:          domain.ModelKindMotion,
			UpstreamAPIID: "kinetix-ai/motion/standard",
			CreditCost:    10,
			IsAvailable:   true,
		},
		{
			ID:            "motion-pro",
			DisplayName:   "Motion Pro",
			Kind:          domain.ModelKindMotion,
			UpstreamAPIID: "kinetix-ai/motion/pro",
			CreditCost:    25,
			IsAvailable:   false, // rollout gated
		},
	})
	if err != nil {
		// The defaults are compile-time constants; a validation failure here is a bug.
		panic(err)
	}
	return c
}

// Resolve returns the descriptor for a selectable model. Unknown ids and
// unavailable models are both reported as ErrModelNotFound.
func (c *Catalog) Resolve(modelID string) (*domain.ModelDescriptor, error) {
	m, ok := c.models[modelID]
	if !ok || !m.IsAvailable {
		return nil, ErrModelNotFound
	}
	descriptor := m
	return &descriptor, nil
}

// List returns the available models sorted by id, for the public models endpoint.
func (c *Catalog) List() []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, 0, len(c.models))
	for _, m := range c.models {
		if m.IsAvailable {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
