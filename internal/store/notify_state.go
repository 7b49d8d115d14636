package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/statuspulse/statuspulse/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotifyState is the cooldown record for one service.
type NotifyState struct {
	ServiceID    string
	LastEvent    string
	LastAlertAt  *time.Time
	LastRepeatAt *time.Time
}

// NotifyStateStore is the side index tracking when each service last had a
// notification dispatched, used for cooldown and repeat-alert decisions.
type NotifyStateStore struct {
	db *gorm.DB
}

func NewNotifyStateStore(db *gorm.DB) *NotifyStateStore {
	return &NotifyStateStore{db: db}
}

// Get returns the notification state for a service; the boolean is false
// when the service has never been notified about.
func (s *NotifyStateStore) Get(ctx context.Context, serviceID string) (NotifyState, bool, error) {
	var row models.NotificationState
	err := s.db.WithContext(ctx).Where("service_id = ?", serviceID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotifyState{ServiceID: serviceID}, false, nil
	}
	if err != nil {
		return NotifyState{}, false, fmt.Errorf("notify state store: get %s: %w", serviceID, err)
	}
	return NotifyState{
		ServiceID:    row.ServiceID,
		LastEvent:    row.LastEvent,
		LastAlertAt:  row.LastAlertAt,
		LastRepeatAt: row.LastRepeatAt,
	}, true, nil
}

// Put overwrites the notification state for st.ServiceID.
func (s *NotifyStateStore) Put(ctx context.Context, st NotifyState) error {
	row := models.NotificationState{
		ServiceID:    st.ServiceID,
		LastEvent:    st.LastEvent,
		LastAlertAt:  st.LastAlertAt,
		LastRepeatAt: st.LastRepeatAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_event", "last_alert_at", "last_repeat_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("notify state store: put %s: %w", st.ServiceID, err)
	}
	return nil
}
