package models

import "time"

// PlanCatalogEntry maps a provider product identifier to plan semantics.
// DurationDays == nil denotes lifetime access. Entries are refreshed from
// the provider product API on cache miss and are read-only to the
// reconciliation core.
type PlanCatalogEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Source       string    `gorm:"type:varchar(20);not null;index:ux_plan_catalog_source_product,unique,priority:1" json:"source"`
	ProductID    string    `gorm:"type:varchar(191);not null;index:ux_plan_catalog_source_product,unique,priority:2" json:"product_id"`
	PlanType     string    `gorm:"type:varchar(20);not null;default:'none'" json:"plan_type"`
	DurationDays *int      `gorm:"default:null" json:"duration_days,omitempty"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLifetime reports whether the mapped product grants lifetime access.
func (e *PlanCatalogEntry) IsLifetime() bool {
	return e.DurationDays == nil
}
