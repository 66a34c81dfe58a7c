package webhook

import (
	"context"

	"gorm.io/gorm"

	"github.com/autoarte/AutoArte/app/models"
)

type gormEventStore struct {
	db *gorm.DB
}

// NewEventStore creates the GORM-backed write-ahead event store.
func NewEventStore(db *gorm.DB) EventStore {
	return &gormEventStore{db: db}
}

func (s *gormEventStore) PersistEvent(ctx context.Context, ev *models.WebhookEvent) error {
	return s.db.WithContext(ctx).Create(ev).Error
}
