package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationState is the cooldown side index: when each service last had
// a transition notification dispatched and when a still-down reminder was
// last re-sent.
type NotificationState struct {
	gorm.Model

	ServiceID    string `gorm:"not null;uniqueIndex"`
	LastEvent    string
	LastAlertAt  *time.Time
	LastRepeatAt *time.Time
}
