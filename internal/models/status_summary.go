package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StatusSummary is the aggregate status record per service: current status,
// transition bookkeeping and daily uptime buckets. Written exclusively by
// the status evaluator so heartbeat ingestion and evaluation never target
// the same row.
type StatusSummary struct {
	gorm.Model

	ServiceID      string `gorm:"not null;uniqueIndex"`
	Status         string `gorm:"not null"`
	LastSeen       *time.Time
	LastTransition *time.Time
	Consecutive    int            `gorm:"not null;default:0"`
	Buckets        datatypes.JSON `gorm:"type:jsonb"` // date -> per-status counts
}
