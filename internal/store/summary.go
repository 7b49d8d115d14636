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

// SummaryStore persists the per-service status aggregates. The status
// evaluator is its only writer.
type SummaryStore struct {
	db *gorm.DB
}

func NewSummaryStore(db *gorm.DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Get returns the summary for a service; the boolean is false when the
// service has never been evaluated.
func (s *SummaryStore) Get(ctx context.Context, serviceID string) (types.StatusSummary, bool, error) {
	var row models.StatusSummary
	err := s.db.WithContext(ctx).Where("service_id = ?", serviceID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.StatusSummary{}, false, nil
	}
	if err != nil {
		return types.StatusSummary{}, false, fmt.Errorf("summary store: get %s: %w", serviceID, err)
	}
	sum, err := toSummary(row)
	if err != nil {
		return types.StatusSummary{}, false, err
	}
	return sum, true, nil
}

// All returns every stored summary, keyed by service ID.
func (s *SummaryStore) All(ctx context.Context) (map[string]types.StatusSummary, error) {
	var rows []models.StatusSummary
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("summary store: list: %w", err)
	}
	out := make(map[string]types.StatusSummary, len(rows))
	for _, row := range rows {
		sum, err := toSummary(row)
		if err != nil {
			return nil, err
		}
		out[sum.ServiceID] = sum
	}
	return out, nil
}

// Put overwrites the summary for sum.ServiceID.
func (s *SummaryStore) Put(ctx context.Context, sum types.StatusSummary) error {
	buckets, err := json.Marshal(sum.Buckets)
	if err != nil {
		return fmt.Errorf("summary store: marshal buckets: %w", err)
	}

	row := models.StatusSummary{
		ServiceID:      sum.ServiceID,
		Status:         sum.Status,
		LastSeen:       sum.LastSeen,
		LastTransition: sum.LastTransition,
		Consecutive:    sum.Consecutive,
		Buckets:        buckets,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "last_seen", "last_transition", "consecutive", "buckets", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("summary store: put %s: %w", sum.ServiceID, err)
	}
	return nil
}

func toSummary(row models.StatusSummary) (types.StatusSummary, error) {
	sum := types.StatusSummary{
		ServiceID:      row.ServiceID,
		Status:         row.Status,
		LastSeen:       row.LastSeen,
		LastTransition: row.LastTransition,
		Consecutive:    row.Consecutive,
		Buckets:        make(map[string]types.DayBucket),
	}
	if len(row.Buckets) > 0 {
		if err := json.Unmarshal(row.Buckets, &sum.Buckets); err != nil {
			return types.StatusSummary{}, fmt.Errorf("summary store: parse buckets for %s: %w", row.ServiceID, err)
		}
	}
	return sum, nil
}
