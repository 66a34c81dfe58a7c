package models

import "time"

// SweepRun records one execution of the expiration sweep. A run immediately
// following another with no intervening webhook traffic must report
// UsersDowngraded == 0.
type SweepRun struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	StartedAt       time.Time  `gorm:"type:timestamp;not null;index" json:"started_at"`
	FinishedAt      *time.Time `gorm:"type:timestamp;default:null" json:"finished_at,omitempty"`
	UsersScanned    int        `gorm:"not null;default:0" json:"users_scanned"`
	UsersDowngraded int        `gorm:"not null;default:0" json:"users_downgraded"`
	Error           string     `gorm:"type:text" json:"error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
