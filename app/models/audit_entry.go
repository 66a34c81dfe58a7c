package models

import "time"

// Terminal outcomes of webhook processing, one per delivery.
const (
	AuditProcessed         = "processed"
	AuditDuplicate         = "duplicate"
	AuditRejectedAuth      = "rejected_auth"
	AuditRejectedMalformed = "rejected_malformed"
	AuditQuarantined       = "quarantined"
	AuditError             = "error"
	AuditErrorRetry        = "error_retry_requested"
	AuditSweepDowngrade    = "sweep_downgrade"
)

// WebhookAuditEntry is the append-only record of a processing outcome.
// The reconciliation core only writes entries; it never derives state from
// them. The composite index backs the admin API's filtered listing.
type WebhookAuditEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	WebhookEventID *uint     `gorm:"index" json:"webhook_event_id,omitempty"`
	Source         string    `gorm:"type:varchar(20);not null;index:idx_audit_source_event_status,priority:1" json:"source"`
	EventType      string    `gorm:"type:varchar(50);not null;default:'';index:idx_audit_source_event_status,priority:2" json:"event_type"`
	Status         string    `gorm:"type:varchar(50);not null;index:idx_audit_source_event_status,priority:3" json:"status"`
	TransactionID  string    `gorm:"type:varchar(191);default:'';index" json:"transaction_id"`
	UserEmail      string    `gorm:"type:varchar(200);default:'';index" json:"user_email"`
	Message        string    `gorm:"type:text" json:"message"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_audit_source_event_status,priority:4" json:"created_at"`
}
