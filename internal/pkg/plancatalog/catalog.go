package plancatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/autoarte/AutoArte/app/models"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
)

// ErrUnknownProduct reports a product no catalog layer could map. The
// gateway turns this into the configured unknown-product policy, never into
// an implicit default.
var ErrUnknownProduct = errors.New("plan catalog: unknown product")

const cacheTTL = 30 * time.Minute

// Plan is the resolved semantics for a provider product.
// DurationDays == nil denotes lifetime access.
type Plan struct {
	PlanType     string `json:"plan_type"`
	DurationDays *int   `json:"duration_days"`
}

// IsLifetime reports whether the plan never expires.
func (p Plan) IsLifetime() bool {
	return p.DurationDays == nil
}

// ProviderLookup resolves a product against the provider's own API. Used to
// refresh catalog entries on miss.
type ProviderLookup interface {
	GetProductPlan(ctx context.Context, productID string) (*payments.ProductPlan, error)
}

// Store provides the persistence operations the catalog needs.
type Store interface {
	FindActive(source, productID string) (*models.PlanCatalogEntry, error)
	Upsert(entry *models.PlanCatalogEntry) error
}

// Catalog resolves (source, productId) to plan semantics: Redis cache
// first, then the catalog table, then the provider product API, persisting
// what the provider reports.
type Catalog struct {
	store   Store
	cache   *redis.Client
	lookups map[string]ProviderLookup
}

func New(store Store, cache *redis.Client, lookups map[string]ProviderLookup) *Catalog {
	if lookups == nil {
		lookups = map[string]ProviderLookup{}
	}
	return &Catalog{store: store, cache: cache, lookups: lookups}
}

func cacheKey(source, productID string) string {
	return fmt.Sprintf("plancatalog:%s:%s", source, productID)
}

// Resolve returns the plan for a provider product or ErrUnknownProduct.
func (c *Catalog) Resolve(ctx context.Context, source, productID string) (*Plan, error) {
	if source == "" || productID == "" {
		return nil, ErrUnknownProduct
	}

	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey(source, productID)).Result(); err == nil {
			var plan Plan
			if err := json.Unmarshal([]byte(raw), &plan); err == nil {
				return &plan, nil
			}
		}
	}

	entry, err := c.store.FindActive(source, productID)
	if err == nil {
		plan := &Plan{PlanType: entry.PlanType, DurationDays: entry.DurationDays}
		c.cachePlan(ctx, source, productID, plan)
		return plan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return c.refreshFromProvider(ctx, source, productID)
}

func (c *Catalog) refreshFromProvider(ctx context.Context, source, productID string) (*Plan, error) {
	lookup, ok := c.lookups[source]
	if !ok {
		return nil, ErrUnknownProduct
	}

	pp, err := lookup.GetProductPlan(ctx, productID)
	if err != nil {
		log.Warnf("[PlanCatalog] provider lookup failed for %s/%s: %v", source, productID, err)
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownProduct, source, productID)
	}

	entry := &models.PlanCatalogEntry{
		Source:       source,
		ProductID:    productID,
		PlanType:     pp.PlanType,
		DurationDays: pp.DurationDays,
		IsActive:     true,
	}
	if err := c.store.Upsert(entry); err != nil {
		return nil, err
	}

	plan := &Plan{PlanType: pp.PlanType, DurationDays: pp.DurationDays}
	c.cachePlan(ctx, source, productID, plan)
	return plan, nil
}

func (c *Catalog) cachePlan(ctx context.Context, source, productID string, plan *Plan) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return
	}
	// Best-effort: a cache write failure only costs the next resolve a DB read.
	_ = c.cache.Set(ctx, cacheKey(source, productID), raw, cacheTTL).Err()
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates the GORM-backed catalog store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) FindActive(source, productID string) (*models.PlanCatalogEntry, error) {
	var entry models.PlanCatalogEntry
	err := s.db.
		Where("source = ? AND product_id = ? AND is_active = ?", source, productID, true).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *gormStore) Upsert(entry *models.PlanCatalogEntry) error {
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "product_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_type",
			"duration_days",
			"is_active",
			"updated_at",
		}),
	}).Create(entry).Error; err != nil {
		return err
	}

	return s.db.Where("source = ? AND product_id = ?", entry.Source, entry.ProductID).
		First(entry).Error
}
