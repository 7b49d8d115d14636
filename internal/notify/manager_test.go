package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/store"
	"github.com/statuspulse/statuspulse/internal/types"
	"github.com/stretchr/testify/require"
)

type memIndex struct {
	states map[string]store.NotifyState
}

func newMemIndex() *memIndex {
	return &memIndex{states: make(map[string]store.NotifyState)}
}

func (m *memIndex) Get(_ context.Context, serviceID string) (store.NotifyState, bool, error) {
	st, ok := m.states[serviceID]
	if !ok {
		return store.NotifyState{ServiceID: serviceID}, false, nil
	}
	return st, true, nil
}

func (m *memIndex) Put(_ context.Context, st store.NotifyState) error {
	m.states[st.ServiceID] = st
	return nil
}

type fakeDispatcher struct {
	sent []Rendered
	err  error
}

func (f *fakeDispatcher) Send(_ context.Context, _ config.Channel, r Rendered) error {
	f.sent = append(f.sent, r)
	return f.err
}

type memAlertLog struct {
	inserted []types.AlertEvent
}

func (m *memAlertLog) Insert(_ context.Context, ev types.AlertEvent) error {
	m.inserted = append(m.inserted, ev)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func testConfig(t *testing.T, channels []config.Channel, services []config.Service) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Settings: config.Settings{
			CooldownMinutes:      60,
			MaxAlerts:            config.DefaultMaxAlerts,
			MaxAgeDays:           config.DefaultMaxAgeDays,
			RetentionDays:        config.DefaultRetentionDays,
			EvaluateEverySeconds: config.DefaultEvaluateEverySeconds,
			DegradedGraceFactor:  config.DefaultDegradedGraceFactor,
		},
		Services: services,
		Channels: channels,
	}
	require.NoError(t, config.Finish(cfg))
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config) (*Manager, *fakeDispatcher, *memAlertLog) {
	t.Helper()
	alertLog := &memAlertLog{}
	m := NewManager(cfg, &config.StaticSecrets{}, newMemIndex(), alertLog, nil)

	fake := &fakeDispatcher{}
	for typ := range m.dispatchers {
		m.dispatchers[typ] = fake
	}
	return m, fake, alertLog
}

func TestRoute_ChannelIntersection(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{
			{Name: "A", Type: "discord", Enabled: true, Events: []string{"down", "up"}},
			{Name: "B", Type: "slack", Enabled: true, Events: []string{"down"}},
		},
		[]config.Service{
			{ID: "svc", ThresholdSeconds: 60, Notify: config.NotifyOverride{Channels: []string{"B"}}},
		},
	)
	m, _, _ := newTestManager(t, cfg)

	down := TransitionEvent("svc", "svc", "up", "down", nil, time.Now())
	routed := m.Route(down)
	require.Len(t, routed, 1)
	require.Equal(t, "B", routed[0].Name)

	up := TransitionEvent("svc", "svc", "down", "up", nil, time.Now())
	require.Empty(t, m.Route(up))
}

func TestRoute_DisabledChannelExcluded(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{
			{Name: "A", Type: "discord", Enabled: false},
			{Name: "B", Type: "slack", Enabled: true},
		},
		[]config.Service{{ID: "svc", ThresholdSeconds: 60}},
	)
	m, _, _ := newTestManager(t, cfg)

	routed := m.Route(TransitionEvent("svc", "svc", "up", "down", nil, time.Now()))
	require.Len(t, routed, 1)
	require.Equal(t, "B", routed[0].Name)
}

func TestRoute_ServiceNotifyDisabled(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		[]config.Service{
			{ID: "svc", ThresholdSeconds: 60, Notify: config.NotifyOverride{Enabled: boolPtr(false)}},
		},
	)
	m, _, _ := newTestManager(t, cfg)

	require.Empty(t, m.Route(TransitionEvent("svc", "svc", "up", "down", nil, time.Now())))
}

func TestRoute_GroupDefaultsApply(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{
			{Name: "A", Type: "discord", Enabled: true},
			{Name: "B", Type: "slack", Enabled: true},
		},
		[]config.Service{{ID: "svc", Group: "backend", ThresholdSeconds: 60}},
	)
	cfg.Groups = []config.Group{
		{ID: "backend", Notify: config.NotifyOverride{Channels: []string{"A"}}},
	}
	require.NoError(t, config.Finish(cfg))
	m, _, _ := newTestManager(t, cfg)

	routed := m.Route(TransitionEvent("svc", "svc", "up", "down", nil, time.Now()))
	require.Len(t, routed, 1)
	require.Equal(t, "A", routed[0].Name)
}

func TestRoute_ExternalSkipsOptedOutChannels(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{
			{Name: "A", Type: "discord", Enabled: true, ExternalAlerts: boolPtr(false)},
			{Name: "B", Type: "slack", Enabled: true},
		},
		nil,
	)
	m, _, _ := newTestManager(t, cfg)

	ev := Event{Type: "down", External: true, Title: "t", Message: "m", At: time.Now()}
	routed := m.Route(ev)
	require.Len(t, routed, 1)
	require.Equal(t, "B", routed[0].Name)
}

func TestStatusChanged_CooldownSuppression(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		[]config.Service{{ID: "svc", ThresholdSeconds: 60}},
	)
	m, fake, _ := newTestManager(t, cfg)

	base := time.Now()
	m.now = func() time.Time { return base }
	svc, _ := cfg.ServiceByID("svc")

	// First down always fires.
	m.StatusChanged(context.Background(), svc, "up", "down", nil)
	require.Len(t, fake.sent, 1)

	// Recovery inside the cooldown window is suppressed.
	m.now = func() time.Time { return base.Add(10 * time.Minute) }
	m.StatusChanged(context.Background(), svc, "down", "up", nil)
	require.Len(t, fake.sent, 1)

	// A second down inside the window: the last notified event was already
	// a down, so the cooldown applies.
	m.now = func() time.Time { return base.Add(20 * time.Minute) }
	m.StatusChanged(context.Background(), svc, "up", "down", nil)
	require.Len(t, fake.sent, 1)

	// Past the window the next transition fires again.
	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	m.StatusChanged(context.Background(), svc, "down", "up", nil)
	require.Len(t, fake.sent, 2)
}

func TestStatusChanged_FirstDownBypassesCooldown(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		[]config.Service{{ID: "svc", ThresholdSeconds: 60}},
	)
	m, fake, _ := newTestManager(t, cfg)

	base := time.Now()
	m.now = func() time.Time { return base }
	svc, _ := cfg.ServiceByID("svc")

	// A degraded notification primes the cooldown window.
	m.StatusChanged(context.Background(), svc, "up", "degraded", nil)
	require.Len(t, fake.sent, 1)

	// The first down still fires inside the window.
	m.now = func() time.Time { return base.Add(5 * time.Minute) }
	m.StatusChanged(context.Background(), svc, "degraded", "down", nil)
	require.Len(t, fake.sent, 2)
}

func TestStatusChanged_RecordsTransitionInHistory(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		[]config.Service{{ID: "svc", Name: "Checkout", ThresholdSeconds: 60}},
	)
	m, _, alertLog := newTestManager(t, cfg)

	base := time.Now()
	m.now = func() time.Time { return base }
	svc, _ := cfg.ServiceByID("svc")

	lastSeen := base.Add(-2 * time.Minute)
	m.StatusChanged(context.Background(), svc, types.StatusUp, types.StatusDown, &lastSeen)

	require.Len(t, alertLog.inserted, 1)
	entry := alertLog.inserted[0]
	require.Equal(t, "svc", entry.ServiceID)
	require.Equal(t, types.StatusDown, entry.Status)
	require.Equal(t, types.SeverityCritical, entry.Severity)
	require.Equal(t, "Checkout is down", entry.Title)
	require.Equal(t, "statuspulse", entry.Source)
	require.NotEmpty(t, entry.ID)

	// A recovery suppressed by cooldown is still part of the history.
	m.now = func() time.Time { return base.Add(10 * time.Minute) }
	m.StatusChanged(context.Background(), svc, types.StatusDown, types.StatusUp, &lastSeen)

	require.Len(t, alertLog.inserted, 2)
	require.Equal(t, types.StatusUp, alertLog.inserted[1].Status)
	require.Equal(t, types.SeverityOK, alertLog.inserted[1].Severity)
}

func TestStatusStill_RepeatRefire(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		[]config.Service{{ID: "svc", ThresholdSeconds: 60}},
	)
	cfg.Settings.RepeatAlertMinutes = 30
	m, fake, _ := newTestManager(t, cfg)

	base := time.Now()
	m.now = func() time.Time { return base }
	svc, _ := cfg.ServiceByID("svc")

	m.StatusChanged(context.Background(), svc, "up", "down", nil)
	require.Len(t, fake.sent, 1)

	// Still down, repeat interval not yet elapsed.
	m.now = func() time.Time { return base.Add(10 * time.Minute) }
	m.StatusStill(context.Background(), svc, "down", nil)
	require.Len(t, fake.sent, 1)

	// Past the repeat interval the down notification re-fires even though
	// the cooldown window (60m) is still open.
	m.now = func() time.Time { return base.Add(31 * time.Minute) }
	m.StatusStill(context.Background(), svc, "down", nil)
	require.Len(t, fake.sent, 2)

	// The repeat timer resets after each re-fire.
	m.now = func() time.Time { return base.Add(45 * time.Minute) }
	m.StatusStill(context.Background(), svc, "down", nil)
	require.Len(t, fake.sent, 2)
}

func TestStatusStill_NoRepeatWhenDisabled(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		[]config.Service{{ID: "svc", ThresholdSeconds: 60}},
	)
	m, fake, _ := newTestManager(t, cfg)

	base := time.Now()
	m.now = func() time.Time { return base }
	svc, _ := cfg.ServiceByID("svc")

	m.StatusChanged(context.Background(), svc, "up", "down", nil)
	m.now = func() time.Time { return base.Add(24 * time.Hour) }
	m.StatusStill(context.Background(), svc, "down", nil)
	require.Len(t, fake.sent, 1)
}

func TestDispatchExternal_NoCooldown(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{{Name: "A", Type: "discord", Enabled: true}},
		nil,
	)
	m, fake, _ := newTestManager(t, cfg)

	ev := Event{Type: "down", External: true, Title: "t", Message: "m", At: time.Now()}
	for i := 0; i < 3; i++ {
		results := m.DispatchExternal(context.Background(), ev)
		require.Len(t, results, 1)
		require.True(t, results[0].Success)
	}
	require.Len(t, fake.sent, 3)
}

func TestDispatch_PerChannelResultsOnFailure(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{
			{Name: "good", Type: "discord", Enabled: true},
			{Name: "bad", Type: "slack", Enabled: true},
		},
		nil,
	)
	m, _, _ := newTestManager(t, cfg)

	good := &fakeDispatcher{}
	bad := &fakeDispatcher{err: errors.New("boom")}
	m.dispatchers["discord"] = good
	m.dispatchers["slack"] = bad

	ev := Event{Type: "down", External: true, Title: "t", Message: "m", At: time.Now()}
	results := m.DispatchExternal(context.Background(), ev)

	require.Len(t, results, 2)
	require.True(t, results[0].Success)
	require.False(t, results[1].Success)
	require.Equal(t, "boom", results[1].Error)
	// The failing channel never blocks the healthy one.
	require.Len(t, good.sent, 1)
}

func TestTestDispatch_OnlyMatchingType(t *testing.T) {
	cfg := testConfig(t,
		[]config.Channel{
			{Name: "A", Type: "discord", Enabled: true, Events: []string{"up"}},
			{Name: "B", Type: "slack", Enabled: true},
			{Name: "C", Type: "discord", Enabled: false},
		},
		nil,
	)
	m, fake, _ := newTestManager(t, cfg)

	// Test dispatch bypasses event subscriptions: channel A only
	// subscribes to up but still receives the test down event.
	results := m.TestDispatch(context.Background(), "discord", "down")
	require.Len(t, results, 1)
	require.Equal(t, "A", results[0].Channel)
	require.Len(t, fake.sent, 1)
}
