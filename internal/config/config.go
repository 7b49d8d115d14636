package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for global settings.
const (
	DefaultCooldownMinutes      = 60
	DefaultRepeatAlertMinutes   = 0 // disabled
	DefaultMaxAlerts            = 200
	DefaultMaxAgeDays           = 30
	DefaultRetentionDays        = 120
	DefaultEvaluateEverySeconds = 300
	DefaultDegradedGraceFactor  = 2.0
)

// Settings holds the global engine settings.
type Settings struct {
	// CooldownMinutes suppresses repeated transition notifications for the
	// same service within this window. The first down after an up always
	// fires regardless.
	CooldownMinutes int `yaml:"cooldown_minutes"`

	// RepeatAlertMinutes re-sends a down notification while a service stays
	// down past this interval. Zero disables re-sends.
	RepeatAlertMinutes int `yaml:"repeat_alert_minutes"`

	// Timezone for daily uptime bucketing, e.g. "Europe/Berlin". Defaults to UTC.
	Timezone string `yaml:"timezone"`

	// MaxAlerts bounds the alert history by count.
	MaxAlerts int `yaml:"max_alerts"`

	// MaxAgeDays bounds the alert history by age.
	MaxAgeDays int `yaml:"max_age_days"`

	// RetentionDays bounds the per-service daily uptime buckets.
	RetentionDays int `yaml:"retention_days"`

	// EvaluateEverySeconds is the status evaluation cadence.
	EvaluateEverySeconds int `yaml:"evaluate_every_seconds"`

	// DegradedGraceFactor multiplies the staleness threshold for services
	// that reported a degraded hint before they are considered down.
	DegradedGraceFactor float64 `yaml:"degraded_grace_factor"`

	// AuthFailOpen accepts heartbeats for services that require auth but
	// have no secret provisioned. This weakens the auth guarantee and is
	// only intended for migration; a warning is logged on every use.
	AuthFailOpen bool `yaml:"auth_fail_open"`
}

// NotifyOverride narrows notification routing for a service or group.
// Nil pointer and empty slices mean "inherit".
type NotifyOverride struct {
	Enabled  *bool    `yaml:"enabled"`
	Channels []string `yaml:"channels"`
	Events   []string `yaml:"events"`
}

// Service is one monitored service as declared in configuration.
// Services are read-only at runtime.
type Service struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	Enabled          *bool  `yaml:"enabled"`
	ThresholdSeconds int    `yaml:"threshold_seconds"`
	Group            string `yaml:"group"`

	// AuthRequired is tri-state: nil inherits from the group, then the
	// global default (true).
	AuthRequired *bool `yaml:"auth_required"`

	Notify NotifyOverride `yaml:"notify"`
}

// IsEnabled reports whether the service participates in evaluation.
func (s Service) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// DisplayName returns the configured name, falling back to the ID.
func (s Service) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Group provides inheritance defaults for its member services.
type Group struct {
	ID           string         `yaml:"id"`
	AuthRequired *bool          `yaml:"auth_required"`
	Notify       NotifyOverride `yaml:"notify"`
}

// TemplateOverride replaces parts of a channel's default template.
type TemplateOverride struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Channel is one notification target. Credentials are never stored here;
// they are resolved at dispatch time from the secret source by Name.
type Channel struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // discord|slack|telegram|email|webhook|pushover|pagerduty
	Enabled bool   `yaml:"enabled"`

	// Events this channel subscribes to: down, up, degraded. Empty means all.
	Events []string `yaml:"events"`

	// ExternalAlerts controls whether externally ingested alerts are sent
	// to this channel. Nil means yes.
	ExternalAlerts *bool `yaml:"external_alerts"`

	Template TemplateOverride `yaml:"template"`
}

// SubscribesTo reports whether the channel accepts the given event type.
func (c Channel) SubscribesTo(event string) bool {
	if len(c.Events) == 0 {
		return true
	}
	for _, e := range c.Events {
		if e == event {
			return true
		}
	}
	return false
}

// AcceptsExternal reports whether externally ingested alerts may be routed here.
func (c Channel) AcceptsExternal() bool {
	return c.ExternalAlerts == nil || *c.ExternalAlerts
}

// Config is the canonical, immutable runtime configuration. It is loaded
// once at startup and passed explicitly to every component.
type Config struct {
	Settings Settings  `yaml:"settings"`
	Services []Service `yaml:"services"`
	Groups   []Group   `yaml:"groups"`
	Channels []Channel `yaml:"channels"`

	services map[string]Service
	groups   map[string]Group
}

// ServiceByID returns the service definition for id.
func (c *Config) ServiceByID(id string) (Service, bool) {
	s, ok := c.services[id]
	return s, ok
}

// GroupByID returns the group definition for id.
func (c *Config) GroupByID(id string) (Group, bool) {
	g, ok := c.groups[id]
	return g, ok
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Settings.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Settings.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load resolves the configuration from dir. Two file layouts are supported:
// split files (services.yaml + notifications.yaml) and a legacy single
// config.yaml carrying all sections. Both resolve into one canonical Config;
// this function is the only place that branches on file layout.
func Load(dir string) (*Config, error) {
	servicesPath := filepath.Join(dir, "services.yaml")
	notificationsPath := filepath.Join(dir, "notifications.yaml")
	legacyPath := filepath.Join(dir, "config.yaml")

	cfg := defaults()

	if _, err := os.Stat(servicesPath); err == nil {
		if err := unmarshalFile(servicesPath, cfg); err != nil {
			return nil, err
		}
		// notifications.yaml is optional in the split layout
		if _, err := os.Stat(notificationsPath); err == nil {
			if err := unmarshalFile(notificationsPath, cfg); err != nil {
				return nil, err
			}
		}
	} else if _, err := os.Stat(legacyPath); err == nil {
		if err := unmarshalFile(legacyPath, cfg); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("config: neither %s nor %s found", servicesPath, legacyPath)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finish indexes and validates a Config built in memory. Exposed for tests
// and for callers that assemble configuration without files.
func Finish(cfg *Config) error { return cfg.finish() }

func unmarshalFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Settings: Settings{
			CooldownMinutes:      DefaultCooldownMinutes,
			RepeatAlertMinutes:   DefaultRepeatAlertMinutes,
			MaxAlerts:            DefaultMaxAlerts,
			MaxAgeDays:           DefaultMaxAgeDays,
			RetentionDays:        DefaultRetentionDays,
			EvaluateEverySeconds: DefaultEvaluateEverySeconds,
			DegradedGraceFactor:  DefaultDegradedGraceFactor,
		},
	}
}

func (c *Config) finish() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.services = make(map[string]Service, len(c.Services))
	for _, s := range c.Services {
		c.services[s.ID] = s
	}
	c.groups = make(map[string]Group, len(c.Groups))
	for _, g := range c.Groups {
		c.groups[g.ID] = g
	}
	return nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for _, s := range c.Services {
		if s.ID == "" {
			return fmt.Errorf("service with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate service id %q", s.ID)
		}
		seen[s.ID] = true
		if s.ThresholdSeconds <= 0 {
			return fmt.Errorf("service %q: threshold_seconds must be positive", s.ID)
		}
	}
	names := make(map[string]bool)
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channel with empty name")
		}
		if names[ch.Name] {
			return fmt.Errorf("duplicate channel name %q", ch.Name)
		}
		names[ch.Name] = true
		switch ch.Type {
		case "discord", "slack", "telegram", "email", "webhook", "pushover", "pagerduty":
		default:
			return fmt.Errorf("channel %q: unknown type %q", ch.Name, ch.Type)
		}
	}
	if c.Settings.CooldownMinutes < 0 {
		return fmt.Errorf("settings.cooldown_minutes must not be negative")
	}
	if c.Settings.MaxAlerts <= 0 {
		return fmt.Errorf("settings.max_alerts must be positive")
	}
	if c.Settings.MaxAgeDays <= 0 {
		return fmt.Errorf("settings.max_age_days must be positive")
	}
	if c.Settings.EvaluateEverySeconds <= 0 {
		return fmt.Errorf("settings.evaluate_every_seconds must be positive")
	}
	if c.Settings.DegradedGraceFactor < 1 {
		return fmt.Errorf("settings.degraded_grace_factor must be >= 1")
	}
	return nil
}
