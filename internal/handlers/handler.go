package handlers

import (
	"context"
	"time"

	"github.com/statuspulse/statuspulse/internal/auth"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/notify"
	"github.com/statuspulse/statuspulse/internal/store"
	"github.com/statuspulse/statuspulse/internal/types"
	"github.com/statuspulse/statuspulse/internal/ws"
)

// HeartbeatSink is the slice of the heartbeat store the API writes to.
type HeartbeatSink interface {
	Put(ctx context.Context, rec types.HeartbeatRecord) error
}

// Handler bundles the API dependencies. Configuration is immutable and
// injected once at startup.
type Handler struct {
	cfg        *config.Config
	secrets    config.SecretSource
	resolver   *auth.Resolver
	heartbeats HeartbeatSink
	summaries  *store.SummaryStore
	alertStore *store.AlertStore
	notifier   *notify.Manager
	hub        *ws.Hub
	now        func() time.Time
}

func New(
	cfg *config.Config,
	secrets config.SecretSource,
	resolver *auth.Resolver,
	heartbeats HeartbeatSink,
	summaries *store.SummaryStore,
	alertStore *store.AlertStore,
	notifier *notify.Manager,
	hub *ws.Hub,
) *Handler {
	return &Handler{
		cfg:        cfg,
		secrets:    secrets,
		resolver:   resolver,
		heartbeats: heartbeats,
		summaries:  summaries,
		alertStore: alertStore,
		notifier:   notifier,
		hub:        hub,
		now:        time.Now,
	}
}
