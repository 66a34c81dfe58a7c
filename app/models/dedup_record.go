package models

import "time"

// DedupRecord guarantees at-most-once processing per provider transaction
// and event type. Rows are created by a conditional insert against the
// composite unique key and are kept forever, because duplicate deliveries
// may arrive arbitrarily late.
type DedupRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Source        string    `gorm:"type:varchar(20);not null;index:ux_dedup_source_txn_event,unique,priority:1" json:"source"`
	TransactionID string    `gorm:"type:varchar(191);not null;index:ux_dedup_source_txn_event,unique,priority:2" json:"transaction_id"`
	EventType     string    `gorm:"type:varchar(50);not null;index:ux_dedup_source_txn_event,unique,priority:3" json:"event_type"`
	Outcome       string    `gorm:"type:varchar(50);not null;default:''" json:"outcome"`
	ProcessedAt   time.Time `gorm:"autoCreateTime" json:"processed_at"`
}
