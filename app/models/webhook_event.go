package models

import "time"

// WebhookEvent is the immutable write-ahead record of a single provider
// delivery. It is created before any processing and never mutated or
// deleted; replay and audit start from here.
type WebhookEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       string    `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	Source     string    `gorm:"type:varchar(20);not null;index" json:"source"`
	RawPayload string    `gorm:"type:longtext;not null" json:"raw_payload"`
	SourceIP   string    `gorm:"type:varchar(45);default:''" json:"source_ip"`
	ReceivedAt time.Time `gorm:"type:timestamp;not null;index" json:"received_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
