package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kinetix/generation-service/internal/domain"
)

func validModels() []domain.ModelDescriptor {
	return []domain.ModelDescriptor{
		{ID: "alpha", DisplayName: "Alpha", Kind: domain.ModelKindImage, UpstreamAPIID: "vendor/alpha", CreditCost: 2, IsAvailable: true},
		{ID: "beta", DisplayName: "Beta", Kind: domain.ModelKindMotion, UpstreamAPIID: "vendor/beta", CreditCost: 10, IsAvailable: false},
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]domain.ModelDescriptor) []domain.ModelDescriptor
	}{
		{
			name: "missing id",
			mutate: func(models []domain.ModelDescriptor) []domain.ModelDescriptor {
				models[0].ID = " "
				return models
			},
		},
		{
			name: "missing upstream id",
			mutate: func(models []domain.ModelDescriptor) []domain.ModelDescriptor {
				models[0].UpstreamAPIID = ""
				return models
			},
		},
		{
			name: "zero credit cost",
			mutate: func(models []domain.ModelDescriptor) []domain.ModelDescriptor {
				models[0].CreditCost = 0
				return models
			},
		},
		{
			name: "duplicate id",
			mutate: func(models []domain.ModelDescriptor) []domain.ModelDescriptor {
				models[1].ID = models[0].ID
				return models
			},
		},
		{
			name: "empty catalog",
			mutate: func([]domain.ModelDescriptor) []domain.ModelDescriptor {
				return nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.mutate(validModels())); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolve(t *testing.T) {
	c, err := New(validModels())
	if err != nil {
		t.Fatalf("unexpected error building catalog: %v", err)
	}

	model, err := c.Resolve("alpha")
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if model.UpstreamAPIID != "vendor/alpha" || model.CreditCost != 2 {
		t.Fatalf("unexpected descriptor %+v", model)
	}

	// Unknown ids and unavailable models report the same error.
	if _, err := c.Resolve("missing"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound for unknown id, got %v", err)
	}
	if _, err := c.Resolve("beta"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound for unavailable model, got %v", err)
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	c, err := New(validModels())
	if err != nil {
		t.Fatalf("unexpected error building catalog: %v", err)
	}
	model, _ := c.Resolve("alpha")
	model.CreditCost = 999

	again, _ := c.Resolve("alpha")
	if again.CreditCost != 2 {
		t.Fatalf("catalog entry mutated through resolved copy: %+v", again)
	}
}

func TestList_OnlyAvailableSorted(t *testing.T) {
	c, err := New([]domain.ModelDescriptor{
		{ID: "zeta", UpstreamAPIID: "vendor/zeta", CreditCost: 1, IsAvailable: true},
		{ID: "alpha", UpstreamAPIID: "vendor/alpha", CreditCost: 1, IsAvailable: true},
		{ID: "gone", UpstreamAPIID: "vendor/gone", CreditCost: 1, IsAvailable: false},
	})
	if err != nil {
		t.Fatalf("unexpected error building catalog: %v", err)
	}

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 available models, got %d", len(list))
	}
	if list[0].ID != "alpha" || list[1].ID != "zeta" {
		t.Fatalf("expected sorted order [alpha zeta], got [%s %s]", list[0].ID, list[1].ID)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.json")
		payload := `[{"id":"alpha","display_name":"Alpha","kind":"image","upstream_api_id":"vendor/alpha","credit_cost":3,"is_available":true}]`
		if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
			t.Fatalf("failed to write catalog file: %v", err)
		}

		c, err := LoadFile(path)
		if err != nil {
			t.Fatalf("expected load to succeed, got %v", err)
		}
		if _, err := c.Resolve("alpha"); err != nil {
			t.Fatalf("expected alpha to resolve, got %v", err)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		payload := `[{"id":"alpha","upstream_api_id":"vendor/alpha","credit_cost":3,"is_available":true,"surprise":1}]`
		if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
			t.Fatalf("failed to write catalog file: %v", err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Fatal("expected strict parsing to reject unknown field")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(dir, "nope.json")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestDefault(t *testing.T) {
	c := Default()
	if _, err := c.Resolve("swift-image"); err != nil {
		t.Fatalf("expected default catalog to include swift-image, got %v", err)
	}
	for _, m := range c.List() {
		if m.CreditCost <= 0 {
			t.Fatalf("default model %q has non-positive cost", m.ID)
		}
	}
}
