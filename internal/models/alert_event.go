package models

import (
	"time"

	"gorm.io/datatypes"
)

// AlertEvent is one entry in the bounded alert history, kept for dashboard
// polling. The primary key is time-prefixed so ordering by ID descending is
// newest-first and stable between reads.
type AlertEvent struct {
	ID        string `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	Message   string
	Severity  string `gorm:"not null"`
	Source    string
	ServiceID string `gorm:"index"`
	Status    string
	Labels    datatypes.JSON `gorm:"type:jsonb"`
	Read      bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"not null;index"`
}
