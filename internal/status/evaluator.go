package status

import (
	"context"
	"log"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/types"
)

// HeartbeatReader provides the latest heartbeat per service.
// Satisfied by store.HeartbeatStore.
type HeartbeatReader interface {
	Get(ctx context.Context, serviceID string) (types.HeartbeatRecord, bool, error)
}

// SummaryReadWriter provides the per-service status aggregates.
// Satisfied by store.SummaryStore. The evaluator is the sole writer.
type SummaryReadWriter interface {
	Get(ctx context.Context, serviceID string) (types.StatusSummary, bool, error)
	Put(ctx context.Context, sum types.StatusSummary) error
}

// Notifier receives status outcomes. Satisfied by notify.Manager.
type Notifier interface {
	StatusChanged(ctx context.Context, svc config.Service, prev, next string, lastSeen *time.Time)
	StatusStill(ctx context.Context, svc config.Service, status string, lastSeen *time.Time)
}

// Evaluator computes each enabled service's status on a fixed cadence,
// maintains the daily uptime buckets and emits notification requests on
// transitions. It reads heartbeats but never writes them.
type Evaluator struct {
	cfg        *config.Config
	heartbeats HeartbeatReader
	summaries  SummaryReadWriter
	notifier   Notifier
	loc        *time.Location
	now        func() time.Time
}

func NewEvaluator(cfg *config.Config, heartbeats HeartbeatReader, summaries SummaryReadWriter, notifier Notifier) *Evaluator {
	return &Evaluator{
		cfg:        cfg,
		heartbeats: heartbeats,
		summaries:  summaries,
		notifier:   notifier,
		loc:        cfg.Location(),
		now:        time.Now,
	}
}

// RunCycle evaluates every enabled service. Services are evaluated
// independently: one service's store failure is logged and skipped, never
// blocking the rest. Missed cycles are harmless; the next cycle re-evaluates
// from the stored state.
func (e *Evaluator) RunCycle(ctx context.Context) {
	for _, svc := range e.cfg.Services {
		if !svc.IsEnabled() {
			continue
		}
		if err := e.evaluateService(ctx, svc); err != nil {
			log.Printf("evaluator: service %s skipped this cycle: %v", svc.ID, err)
		}
	}
}

func (e *Evaluator) evaluateService(ctx context.Context, svc config.Service) error {
	now := e.now()

	hb, hasHeartbeat, err := e.heartbeats.Get(ctx, svc.ID)
	if err != nil {
		return err
	}

	next := e.computeStatus(svc, hb, hasHeartbeat, now)

	sum, found, err := e.summaries.Get(ctx, svc.ID)
	if err != nil {
		return err
	}
	if !found {
		sum = types.StatusSummary{
			ServiceID: svc.ID,
			Status:    types.StatusUnknown,
			Buckets:   make(map[string]types.DayBucket),
		}
	}
	if sum.Buckets == nil {
		sum.Buckets = make(map[string]types.DayBucket)
	}

	prev := sum.Status
	if hasHeartbeat {
		lastSeen := hb.LastSeen
		sum.LastSeen = &lastSeen
	}

	if next != prev {
		sum.Status = next
		sum.LastTransition = &now
		sum.Consecutive = 1
	} else {
		sum.Consecutive++
	}

	day := now.In(e.loc).Format("2006-01-02")
	bucket := sum.Buckets[day]
	bucket.Add(next)
	sum.Buckets[day] = bucket
	pruneBuckets(sum.Buckets, now.In(e.loc), e.cfg.Settings.RetentionDays)

	if err := e.summaries.Put(ctx, sum); err != nil {
		return err
	}

	// Notify only after the summary is durably updated, so a dispatch
	// failure never leaves the stored state behind the computed one.
	if next != prev {
		log.Printf("evaluator: %s transitioned %s -> %s", svc.ID, prev, next)
		e.notifier.StatusChanged(ctx, svc, prev, next, sum.LastSeen)
	} else {
		e.notifier.StatusStill(ctx, svc, next, sum.LastSeen)
	}

	return nil
}

// computeStatus applies the staleness rules: no heartbeat ever seen means
// unknown; age within the threshold (inclusive) means up; a degraded hint
// extends the threshold by the grace factor before the service counts as
// down.
func (e *Evaluator) computeStatus(svc config.Service, hb types.HeartbeatRecord, hasHeartbeat bool, now time.Time) string {
	if !hasHeartbeat {
		return types.StatusUnknown
	}

	age := now.Sub(hb.LastSeen)
	threshold := time.Duration(svc.ThresholdSeconds) * time.Second

	if age <= threshold {
		if hb.StatusHint == types.StatusDegraded {
			return types.StatusDegraded
		}
		return types.StatusUp
	}

	if hb.StatusHint == types.StatusDegraded {
		grace := time.Duration(float64(threshold) * e.cfg.Settings.DegradedGraceFactor)
		if age <= grace {
			return types.StatusDegraded
		}
	}

	return types.StatusDown
}

// pruneBuckets drops day buckets older than the retention window.
func pruneBuckets(buckets map[string]types.DayBucket, today time.Time, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := today.AddDate(0, 0, -retentionDays).Format("2006-01-02")
	for day := range buckets {
		if day < cutoff {
			delete(buckets, day)
		}
	}
}
