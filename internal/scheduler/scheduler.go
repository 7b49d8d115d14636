package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/statuspulse/statuspulse/internal/status"
)

// Scheduler drives the status evaluator on a fixed cadence. Only one cycle
// runs at a time; the in-flight guard drops a tick that arrives while the
// previous cycle is still running, and the idempotent evaluator makes the
// skipped tick harmless.
type Scheduler struct {
	cron     *cron.Cron
	eval     *status.Evaluator
	every    time.Duration
	inFlight atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(eval *status.Evaluator, every time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		eval:   eval,
		every:  every,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the evaluation job and runs one cycle immediately so a
// fresh deployment does not wait a full interval for its first statuses.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.every)
	if _, err := s.cron.AddFunc(spec, s.runCycle); err != nil {
		return fmt.Errorf("scheduler: register job: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started, evaluating every %s", s.every)

	go s.runCycle()
	return nil
}

// Stop halts scheduling and cancels any in-flight cycle.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	stopCtx := s.cron.Stop()
	s.cancel()
	<-stopCtx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runCycle() {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Println("Scheduler: previous evaluation still running, skipping tick")
		return
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	s.eval.RunCycle(s.ctx)
	log.Printf("Scheduler: evaluation cycle finished in %v", time.Since(start))
}
