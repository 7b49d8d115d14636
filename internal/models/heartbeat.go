package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Heartbeat holds the latest liveness signal per service. One row per
// service, overwritten on every accepted heartbeat, never deleted while the
// service remains configured. The status evaluator only reads this table.
type Heartbeat struct {
	gorm.Model

	ServiceID  string    `gorm:"not null;uniqueIndex"`
	LastSeen   time.Time `gorm:"not null"`
	StatusHint string
	Metadata   datatypes.JSON `gorm:"type:jsonb"`
}
