package notify

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/store"
	"github.com/statuspulse/statuspulse/internal/types"
)

const dispatchTimeout = 8 * time.Second

// CooldownIndex tracks last-notification timestamps per service. Satisfied
// by store.NotifyStateStore; tests substitute an in-memory fake.
type CooldownIndex interface {
	Get(ctx context.Context, serviceID string) (store.NotifyState, bool, error)
	Put(ctx context.Context, st store.NotifyState) error
}

// AlertLog records status transitions in the alert history alongside
// externally ingested alerts. Satisfied by store.AlertStore.
type AlertLog interface {
	Insert(ctx context.Context, ev types.AlertEvent) error
}

// AlertFeed pushes freshly recorded alerts to live dashboard clients.
// Satisfied by ws.Hub.
type AlertFeed interface {
	BroadcastAlert(alert types.AlertEvent)
}

// Dispatcher delivers one rendered payload to one channel's external API.
type Dispatcher interface {
	Send(ctx context.Context, ch config.Channel, r Rendered) error
}

// Manager routes events to channels, applies cooldown and repeat-alert
// logic, renders templates and fans out to the per-type dispatchers.
type Manager struct {
	cfg         *config.Config
	secrets     config.SecretSource
	state       CooldownIndex
	alertLog    AlertLog
	feed        AlertFeed
	dispatchers map[string]Dispatcher
	now         func() time.Time
}

func NewManager(cfg *config.Config, secrets config.SecretSource, state CooldownIndex, alertLog AlertLog, feed AlertFeed) *Manager {
	client := &http.Client{Timeout: dispatchTimeout}
	return &Manager{
		cfg:      cfg,
		secrets:  secrets,
		state:    state,
		alertLog: alertLog,
		feed:     feed,
		dispatchers: map[string]Dispatcher{
			"discord":   &discordDispatcher{client: client, secrets: secrets},
			"slack":     &slackDispatcher{client: client, secrets: secrets},
			"telegram":  &telegramDispatcher{client: client, secrets: secrets},
			"email":     &emailDispatcher{client: client, secrets: secrets},
			"webhook":   &webhookDispatcher{client: client, secrets: secrets},
			"pushover":  &pushoverDispatcher{client: client, secrets: secrets},
			"pagerduty": &pagerdutyDispatcher{client: client, secrets: secrets},
		},
		now: time.Now,
	}
}

// Route computes the target channel set for an event: globally enabled
// channels, intersected with each channel's event subscription, the
// triggering entity's channel allow-list and its event override. External
// events additionally skip channels that opted out of external alerts.
func (m *Manager) Route(ev Event) []config.Channel {
	allowList := ev.Channels
	var eventOverride []string

	if !ev.External && ev.ServiceID != "" {
		svc, ok := m.cfg.ServiceByID(ev.ServiceID)
		if !ok {
			return nil
		}
		if !m.notifyEnabled(svc) {
			return nil
		}
		allowList = m.channelAllowList(svc)
		eventOverride = m.eventOverride(svc)
	}

	var out []config.Channel
	for _, ch := range m.cfg.Channels {
		if !ch.Enabled {
			continue
		}
		if !ch.SubscribesTo(ev.Type) {
			continue
		}
		if ev.External && !ch.AcceptsExternal() {
			continue
		}
		if len(allowList) > 0 && !contains(allowList, ch.Name) {
			continue
		}
		if len(eventOverride) > 0 && !contains(eventOverride, ev.Type) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// StatusChanged handles an internal status transition. The transition is
// recorded in the alert history unconditionally; cooldown only dampens the
// outbound notifications. Dispatch failures are logged and never propagate
// to the caller.
func (m *Manager) StatusChanged(ctx context.Context, svc config.Service, prev, next string, lastSeen *time.Time) {
	ev := TransitionEvent(svc.ID, svc.DisplayName(), prev, next, lastSeen, m.now())

	m.recordTransition(ctx, ev)

	if !m.passesCooldown(ctx, ev) {
		log.Printf("notify: suppressing %s notification for %s (cooldown)", next, svc.ID)
		return
	}

	results := m.dispatch(ctx, ev)
	if len(results) == 0 {
		return
	}
	m.recordDispatch(ctx, svc.ID, next)
	logResults(svc.ID, results)
}

// StatusStill handles a service that stayed in its current status. While a
// service remains down past the repeat interval, the down notification is
// re-sent, independently of the shorter cooldown window.
func (m *Manager) StatusStill(ctx context.Context, svc config.Service, status string, lastSeen *time.Time) {
	if status != types.StatusDown || m.cfg.Settings.RepeatAlertMinutes <= 0 {
		return
	}

	st, found, err := m.state.Get(ctx, svc.ID)
	if err != nil {
		log.Printf("notify: read state for %s: %v", svc.ID, err)
		return
	}
	if !found {
		return
	}

	last := st.LastAlertAt
	if st.LastRepeatAt != nil {
		last = st.LastRepeatAt
	}
	if last == nil {
		return
	}

	interval := time.Duration(m.cfg.Settings.RepeatAlertMinutes) * time.Minute
	if m.now().Sub(*last) < interval {
		return
	}

	ev := TransitionEvent(svc.ID, svc.DisplayName(), status, status, lastSeen, m.now())
	results := m.dispatch(ctx, ev)
	if len(results) == 0 {
		return
	}

	now := m.now()
	st.LastRepeatAt = &now
	if err := m.state.Put(ctx, st); err != nil {
		log.Printf("notify: record repeat for %s: %v", svc.ID, err)
	}
	logResults(svc.ID, results)
}

// DispatchExternal routes and delivers an externally ingested alert.
// External alerts are never subject to cooldown.
func (m *Manager) DispatchExternal(ctx context.Context, ev Event) []ChannelResult {
	return m.dispatch(ctx, ev)
}

// TestDispatch sends one synthetic event to every enabled channel of the
// given type, bypassing subscriptions and cooldown.
func (m *Manager) TestDispatch(ctx context.Context, channelType, eventType string) []ChannelResult {
	now := m.now()
	lastSeen := now.Add(-2 * time.Minute)
	ev := TransitionEvent("test-service", "Test Service", types.StatusUp, eventType, &lastSeen, now)

	var results []ChannelResult
	for _, ch := range m.cfg.Channels {
		if !ch.Enabled || ch.Type != channelType {
			continue
		}
		results = append(results, m.send(ctx, ch, ev))
	}
	return results
}

// dispatch renders and delivers ev to every routed channel. Each channel is
// attempted independently; one failure never blocks the others.
func (m *Manager) dispatch(ctx context.Context, ev Event) []ChannelResult {
	channels := m.Route(ev)
	results := make([]ChannelResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, m.send(ctx, ch, ev))
	}
	return results
}

func (m *Manager) send(ctx context.Context, ch config.Channel, ev Event) ChannelResult {
	result := ChannelResult{Channel: ch.Name, Type: ch.Type}

	d, ok := m.dispatchers[ch.Type]
	if !ok {
		result.Error = "no dispatcher for channel type " + ch.Type
		return result
	}

	r := Render(templateFor(ch, ev), ev)

	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	if err := d.Send(sendCtx, ch, r); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// passesCooldown decides whether an internal transition may dispatch.
// Transitions are suppressed while the last notification is younger than
// the cooldown window, except a down transition when the last notified
// event was not a down: the first down always fires.
func (m *Manager) passesCooldown(ctx context.Context, ev Event) bool {
	st, found, err := m.state.Get(ctx, ev.ServiceID)
	if err != nil {
		// At-least-once: when the index is unreadable, notify rather than
		// silently drop.
		log.Printf("notify: read state for %s: %v", ev.ServiceID, err)
		return true
	}
	if !found || st.LastAlertAt == nil {
		return true
	}

	if ev.Type == types.EventDown && st.LastEvent != types.EventDown {
		return true
	}

	cooldown := time.Duration(m.cfg.Settings.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		return true
	}
	return m.now().Sub(*st.LastAlertAt) >= cooldown
}

// recordTransition appends the transition to the alert history and pushes
// it to live dashboard clients.
func (m *Manager) recordTransition(ctx context.Context, ev Event) {
	if m.alertLog == nil {
		return
	}
	alert := TransitionAlert(ev)
	if err := m.alertLog.Insert(ctx, alert); err != nil {
		log.Printf("notify: record transition for %s: %v", ev.ServiceID, err)
		return
	}
	if m.feed != nil {
		m.feed.BroadcastAlert(alert)
	}
}

func (m *Manager) recordDispatch(ctx context.Context, serviceID, eventType string) {
	now := m.now()
	st := store.NotifyState{ServiceID: serviceID, LastEvent: eventType, LastAlertAt: &now, LastRepeatAt: &now}
	if err := m.state.Put(ctx, st); err != nil {
		log.Printf("notify: record dispatch for %s: %v", serviceID, err)
	}
}

// notifyEnabled resolves the service's notification enablement: service
// override, then group default, then enabled.
func (m *Manager) notifyEnabled(svc config.Service) bool {
	if svc.Notify.Enabled != nil {
		return *svc.Notify.Enabled
	}
	if svc.Group != "" {
		if group, ok := m.cfg.GroupByID(svc.Group); ok && group.Notify.Enabled != nil {
			return *group.Notify.Enabled
		}
	}
	return true
}

func (m *Manager) channelAllowList(svc config.Service) []string {
	if len(svc.Notify.Channels) > 0 {
		return svc.Notify.Channels
	}
	if svc.Group != "" {
		if group, ok := m.cfg.GroupByID(svc.Group); ok {
			return group.Notify.Channels
		}
	}
	return nil
}

func (m *Manager) eventOverride(svc config.Service) []string {
	if len(svc.Notify.Events) > 0 {
		return svc.Notify.Events
	}
	if svc.Group != "" {
		if group, ok := m.cfg.GroupByID(svc.Group); ok {
			return group.Notify.Events
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func logResults(serviceID string, results []ChannelResult) {
	for _, r := range results {
		if r.Success {
			log.Printf("notify: delivered to %s (%s) for %s", r.Channel, r.Type, serviceID)
		} else {
			log.Printf("notify: delivery to %s (%s) for %s failed: %s", r.Channel, r.Type, serviceID, r.Error)
		}
	}
}
