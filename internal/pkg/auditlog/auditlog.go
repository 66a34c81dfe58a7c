package auditlog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/autoarte/AutoArte/app/models"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Filter narrows an audit listing. Zero-valued fields are not applied.
// UserEmail matches as a substring, the rest match exactly.
type Filter struct {
	Source        string
	EventType     string
	Status        string
	UserEmail     string
	TransactionID string
	Page          int
	PerPage       int
}

// Page is one page of audit entries, newest first.
type Page struct {
	Entries []models.WebhookAuditEntry `json:"entries"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	PerPage int                        `json:"per_page"`
}

// Service appends and lists audit entries. Entries are append-only; there
// is no update or delete path.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record appends one processing outcome.
func (s *Service) Record(ctx context.Context, entry *models.WebhookAuditEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// Query lists audit entries matching the filter, newest first.
func (s *Service) Query(ctx context.Context, f Filter) (*Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	q := s.db.WithContext(ctx).Model(&models.WebhookAuditEntry{})
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TransactionID != "" {
		q = q.Where("transaction_id = ?", f.TransactionID)
	}
	if f.UserEmail != "" {
		q = q.Where("user_email LIKE ?", "%"+strings.ToLower(strings.TrimSpace(f.UserEmail))+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []models.WebhookAuditEntry
	err := q.Order("created_at DESC, id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return &Page{Entries: entries, Total: total, Page: page, PerPage: perPage}, nil
}

// SweepRuns lists the most recent expiration sweep runs.
func (s *Service) SweepRuns(ctx context.Context, limit int) ([]models.SweepRun, error) {
	if limit < 1 || limit > maxPerPage {
		limit = defaultPerPage
	}
	var runs []models.SweepRun
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
