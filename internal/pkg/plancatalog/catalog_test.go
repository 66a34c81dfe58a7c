package plancatalog

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
)

type memStore struct {
	entries map[string]*models.PlanCatalogEntry
	upserts int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*models.PlanCatalogEntry{}}
}

func (s *memStore) key(source, productID string) string {
	return source + "/" + productID
}

func (s *memStore) FindActive(source, productID string) (*models.PlanCatalogEntry, error) {
	if e, ok := s.entries[s.key(source, productID)]; ok && e.IsActive {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) Upsert(entry *models.PlanCatalogEntry) error {
	s.upserts++
	s.entries[s.key(entry.Source, entry.ProductID)] = entry
	return nil
}

type stubLookup struct {
	plan *payments.ProductPlan
	err  error
}

func (l *stubLookup) GetProductPlan(ctx context.Context, productID string) (*payments.ProductPlan, error) {
	return l.plan, l.err
}

func TestResolveFromStore(t *testing.T) {
	store := newMemStore()
	days := 30
	store.entries["hotmart/123"] = &models.PlanCatalogEntry{
		Source: "hotmart", ProductID: "123", PlanType: models.PlanMonthly, DurationDays: &days, IsActive: true,
	}

	c := New(store, nil, nil)
	plan, err := c.Resolve(context.Background(), "hotmart", "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.PlanType != models.PlanMonthly || plan.IsLifetime() {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestResolveRefreshesFromProviderOnMiss(t *testing.T) {
	store := newMemStore()
	days := 365
	c := New(store, nil, map[string]ProviderLookup{
		"hotmart": &stubLookup{plan: &payments.ProductPlan{PlanType: models.PlanAnnual, DurationDays: &days}},
	})

	plan, err := c.Resolve(context.Background(), "hotmart", "777")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.PlanType != models.PlanAnnual {
		t.Fatalf("unexpected plan type %q", plan.PlanType)
	}
	if store.upserts != 1 {
		t.Fatalf("expected entry to be persisted, upserts=%d", store.upserts)
	}

	// Second resolve hits the store, not the provider.
	c2 := New(store, nil, nil)
	if _, err := c2.Resolve(context.Background(), "hotmart", "777"); err != nil {
		t.Fatalf("expected persisted entry to resolve: %v", err)
	}
}

func TestResolveLifetimePlan(t *testing.T) {
	store := newMemStore()
	c := New(store, nil, map[string]ProviderLookup{
		"doppus": &stubLookup{plan: &payments.ProductPlan{PlanType: models.PlanLifetime}},
	})

	plan, err := c.Resolve(context.Background(), "doppus", "PKG-VIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plan.IsLifetime() {
		t.Fatalf("expected lifetime plan, got %+v", plan)
	}
}

func TestResolveUnknownProduct(t *testing.T) {
	store := newMemStore()
	c := New(store, nil, map[string]ProviderLookup{
		"hotmart": &stubLookup{err: errors.New("404 not found")},
	})

	_, err := c.Resolve(context.Background(), "hotmart", "nope")
	if !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct, got %v", err)
	}

	// No lookup configured for the source at all.
	if _, err := c.Resolve(context.Background(), "doppus", "x"); !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("expected ErrUnknownProduct for unconfigured source, got %v", err)
	}
}
