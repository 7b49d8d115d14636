package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_SplitLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "services.yaml", `
settings:
  cooldown_minutes: 15
  timezone: Europe/Berlin
groups:
  - id: backend
    auth_required: false
services:
  - id: api
    name: Public API
    threshold_seconds: 120
    group: backend
  - id: worker
    threshold_seconds: 300
`)
	writeFile(t, dir, "notifications.yaml", `
channels:
  - name: ops
    type: discord
    enabled: true
    events: [down, up]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, 15, cfg.Settings.CooldownMinutes)
	require.Equal(t, "Europe/Berlin", cfg.Settings.Timezone)
	// Unset settings keep their defaults.
	require.Equal(t, DefaultMaxAlerts, cfg.Settings.MaxAlerts)
	require.Equal(t, DefaultEvaluateEverySeconds, cfg.Settings.EvaluateEverySeconds)

	svc, ok := cfg.ServiceByID("api")
	require.True(t, ok)
	require.Equal(t, "Public API", svc.Name)
	require.Equal(t, 120, svc.ThresholdSeconds)
	require.Equal(t, "backend", svc.Group)

	group, ok := cfg.GroupByID("backend")
	require.True(t, ok)
	require.NotNil(t, group.AuthRequired)
	require.False(t, *group.AuthRequired)

	require.Len(t, cfg.Channels, 1)
	require.Equal(t, "ops", cfg.Channels[0].Name)
	require.Equal(t, []string{"down", "up"}, cfg.Channels[0].Events)
}

func TestLoad_SplitLayoutWithoutNotifications(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "services.yaml", `
services:
  - id: api
    threshold_seconds: 60
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Empty(t, cfg.Channels)
}

func TestLoad_LegacyLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
settings:
  repeat_alert_minutes: 30
services:
  - id: api
    threshold_seconds: 60
channels:
  - name: ops
    type: slack
    enabled: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Settings.RepeatAlertMinutes)
	require.Len(t, cfg.Services, 1)
	require.Len(t, cfg.Channels, 1)
}

func TestLoad_SplitLayoutWinsOverLegacy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "services.yaml", `
services:
  - id: from-split
    threshold_seconds: 60
`)
	writeFile(t, dir, "config.yaml", `
services:
  - id: from-legacy
    threshold_seconds: 60
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	_, ok := cfg.ServiceByID("from-split")
	require.True(t, ok)
	_, ok = cfg.ServiceByID("from-legacy")
	require.False(t, ok)
}

func TestLoad_NoConfigFiles(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"missing threshold": `
services:
  - id: api
`,
		"duplicate service id": `
services:
  - id: api
    threshold_seconds: 60
  - id: api
    threshold_seconds: 60
`,
		"empty service id": `
services:
  - threshold_seconds: 60
`,
		"unknown channel type": `
channels:
  - name: ops
    type: carrier-pigeon
`,
		"duplicate channel name": `
channels:
  - name: ops
    type: discord
  - name: ops
    type: slack
`,
		"negative cooldown": `
settings:
  cooldown_minutes: -1
`,
		"grace factor below one": `
settings:
  degraded_grace_factor: 0.5
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "config.yaml", content)
			_, err := Load(dir)
			require.Error(t, err)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	require.Equal(t, time.UTC, cfg.Location())

	cfg.Settings.Timezone = "Europe/Berlin"
	loc := cfg.Location()
	require.Equal(t, "Europe/Berlin", loc.String())

	cfg.Settings.Timezone = "Not/AZone"
	require.Equal(t, time.UTC, cfg.Location())
}

func TestChannelSubscribesTo(t *testing.T) {
	ch := Channel{}
	require.True(t, ch.SubscribesTo("down"))
	require.True(t, ch.SubscribesTo("up"))

	ch.Events = []string{"down"}
	require.True(t, ch.SubscribesTo("down"))
	require.False(t, ch.SubscribesTo("up"))
}

func TestServiceHelpers(t *testing.T) {
	svc := Service{ID: "api"}
	require.True(t, svc.IsEnabled())
	require.Equal(t, "api", svc.DisplayName())

	off := false
	svc.Enabled = &off
	svc.Name = "Public API"
	require.False(t, svc.IsEnabled())
	require.Equal(t, "Public API", svc.DisplayName())
}
