package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/statuspulse/statuspulse/internal/models"
	"github.com/statuspulse/statuspulse/internal/types"
	"gorm.io/gorm"
)

// AlertStore keeps the bounded alert history. Every insert enforces both the
// count bound and the age bound; whichever is smaller wins.
type AlertStore struct {
	db        *gorm.DB
	maxAlerts int
	maxAge    time.Duration
	now       func() time.Time
}

func NewAlertStore(db *gorm.DB, maxAlerts, maxAgeDays int) *AlertStore {
	return &AlertStore{
		db:        db,
		maxAlerts: maxAlerts,
		maxAge:    time.Duration(maxAgeDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// Insert appends one alert and prunes the history to the configured bounds.
func (s *AlertStore) Insert(ctx context.Context, ev types.AlertEvent) error {
	var labels []byte
	if len(ev.Labels) > 0 {
		var err error
		labels, err = json.Marshal(ev.Labels)
		if err != nil {
			return fmt.Errorf("alert store: marshal labels: %w", err)
		}
	}

	row := models.AlertEvent{
		ID:        ev.ID,
		Title:     ev.Title,
		Message:   ev.Message,
		Severity:  ev.Severity,
		Source:    ev.Source,
		ServiceID: ev.ServiceID,
		Status:    ev.Status,
		Labels:    labels,
		Read:      ev.Read,
		CreatedAt: ev.CreatedAt,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("alert store: insert %s: %w", ev.ID, err)
		}

		// The history is bounded at maxAlerts, so loading every ref to
		// decide the prune set stays cheap. IDs are time-prefixed, so
		// ordering by ID descending is newest-first.
		var refs []alertRef
		if err := tx.Model(&models.AlertEvent{}).
			Select("id", "created_at").
			Order("id DESC").
			Find(&refs).Error; err != nil {
			return fmt.Errorf("alert store: load refs: %w", err)
		}

		drop := staleAlertIDs(refs, s.maxAlerts, s.now().Add(-s.maxAge))
		if len(drop) == 0 {
			return nil
		}
		if err := tx.Where("id IN ?", drop).Delete(&models.AlertEvent{}).Error; err != nil {
			return fmt.Errorf("alert store: prune: %w", err)
		}
		return nil
	})
}

// alertRef is the slice of an alert row the prune decision needs.
type alertRef struct {
	ID        string
	CreatedAt time.Time
}

// staleAlertIDs returns the IDs to delete so that at most maxAlerts entries
// remain and none is older than cutoff; whichever bound is smaller wins.
// refs must be ordered newest first.
func staleAlertIDs(refs []alertRef, maxAlerts int, cutoff time.Time) []string {
	var drop []string
	for i, ref := range refs {
		if i >= maxAlerts || ref.CreatedAt.Before(cutoff) {
			drop = append(drop, ref.ID)
		}
	}
	return drop
}

// ListSince returns alerts strictly newer than since, newest first, capped
// at limit. Ordering is by ID descending and therefore stable between calls.
func (s *AlertStore) ListSince(ctx context.Context, since time.Time, limit int) ([]types.AlertEvent, error) {
	var rows []models.AlertEvent
	err := s.db.WithContext(ctx).
		Where("created_at > ?", since).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("alert store: list since: %w", err)
	}
	return toAlertEvents(rows), nil
}

// ListRecent returns alerts from the past window, newest first.
func (s *AlertStore) ListRecent(ctx context.Context, window time.Duration, limit int) ([]types.AlertEvent, error) {
	return s.ListSince(ctx, s.now().Add(-window), limit)
}

func toAlertEvents(rows []models.AlertEvent) []types.AlertEvent {
	out := make([]types.AlertEvent, 0, len(rows))
	for _, row := range rows {
		ev := types.AlertEvent{
			ID:        row.ID,
			Title:     row.Title,
			Message:   row.Message,
			Severity:  row.Severity,
			Source:    row.Source,
			ServiceID: row.ServiceID,
			Status:    row.Status,
			Read:      row.Read,
			CreatedAt: row.CreatedAt,
		}
		if len(row.Labels) > 0 {
			_ = json.Unmarshal(row.Labels, &ev.Labels)
		}
		out = append(out, ev)
	}
	return out
}
