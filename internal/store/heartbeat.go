package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/statuspulse/statuspulse/internal/models"
	"github.com/statuspulse/statuspulse/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HeartbeatStore persists the latest heartbeat per service. It never touches
// the status summary table; that partitioning keeps ingestion and evaluation
// from racing on a shared record.
type HeartbeatStore struct {
	db *gorm.DB
}

func NewHeartbeatStore(db *gorm.DB) *HeartbeatStore {
	return &HeartbeatStore{db: db}
}

// Put overwrites the latest heartbeat for rec.ServiceID.
func (s *HeartbeatStore) Put(ctx context.Context, rec types.HeartbeatRecord) error {
	var metadata []byte
	if len(rec.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("heartbeat store: marshal metadata: %w", err)
		}
	}

	row := models.Heartbeat{
		ServiceID:  rec.ServiceID,
		LastSeen:   rec.LastSeen,
		StatusHint: rec.StatusHint,
		Metadata:   metadata,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen", "status_hint", "metadata", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("heartbeat store: put %s: %w", rec.ServiceID, err)
	}
	return nil
}

// Get returns the latest heartbeat for a service. The boolean is false when
// no heartbeat has ever been received.
func (s *HeartbeatStore) Get(ctx context.Context, serviceID string) (types.HeartbeatRecord, bool, error) {
	var row models.Heartbeat
	err := s.db.WithContext(ctx).Where("service_id = ?", serviceID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.HeartbeatRecord{}, false, nil
	}
	if err != nil {
		return types.HeartbeatRecord{}, false, fmt.Errorf("heartbeat store: get %s: %w", serviceID, err)
	}
	return toHeartbeatRecord(row), true, nil
}

// All returns the latest heartbeat for every service that has ever reported.
func (s *HeartbeatStore) All(ctx context.Context) ([]types.HeartbeatRecord, error) {
	var rows []models.Heartbeat
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("heartbeat store: list: %w", err)
	}
	out := make([]types.HeartbeatRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toHeartbeatRecord(row))
	}
	return out, nil
}

func toHeartbeatRecord(row models.Heartbeat) types.HeartbeatRecord {
	rec := types.HeartbeatRecord{
		ServiceID:  row.ServiceID,
		LastSeen:   row.LastSeen,
		StatusHint: row.StatusHint,
	}
	if len(row.Metadata) > 0 {
		// Bad metadata is dropped rather than failing the read.
		_ = json.Unmarshal(row.Metadata, &rec.Metadata)
	}
	return rec
}
