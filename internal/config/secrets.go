package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SecretSource resolves secret material at call time. Secrets are never read
// from or written to the declarative configuration files.
type SecretSource interface {
	// HeartbeatToken returns the expected API key for a service.
	HeartbeatToken(serviceID string) (string, bool)

	// AlertToken returns the shared token gating the external alert endpoint.
	// The second return is false when the endpoint is unauthenticated.
	AlertToken() (string, bool)

	// ChannelSecret returns a named credential for a channel, e.g.
	// ("ops-discord", "WEBHOOK_URL").
	ChannelSecret(channelName, key string) (string, bool)
}

// EnvSecrets resolves secrets from the process environment.
//
// Heartbeat keys come from HEARTBEAT_API_KEYS, a JSON object mapping service
// IDs to tokens. The alert gate token comes from ALERT_API_KEY. Channel
// credentials use CHANNEL_<NAME>_<KEY> with the channel name uppercased and
// dashes replaced by underscores.
type EnvSecrets struct {
	heartbeatKeys map[string]string
}

// LoadEnvSecrets parses HEARTBEAT_API_KEYS and returns an env-backed source.
// An absent or empty variable yields a source with no heartbeat keys.
func LoadEnvSecrets() (*EnvSecrets, error) {
	s := &EnvSecrets{heartbeatKeys: make(map[string]string)}

	raw := os.Getenv("HEARTBEAT_API_KEYS")
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s.heartbeatKeys); err != nil {
		return nil, fmt.Errorf("secrets: parse HEARTBEAT_API_KEYS: %w", err)
	}
	return s, nil
}

func (s *EnvSecrets) HeartbeatToken(serviceID string) (string, bool) {
	token, ok := s.heartbeatKeys[serviceID]
	return token, ok && token != ""
}

func (s *EnvSecrets) AlertToken() (string, bool) {
	token := os.Getenv("ALERT_API_KEY")
	return token, token != ""
}

func (s *EnvSecrets) ChannelSecret(channelName, key string) (string, bool) {
	name := strings.ToUpper(strings.ReplaceAll(channelName, "-", "_"))
	value := os.Getenv("CHANNEL_" + name + "_" + key)
	return value, value != ""
}

// StaticSecrets is a fixed in-memory secret source, used in tests.
type StaticSecrets struct {
	Heartbeat map[string]string
	Alert     string
	Channels  map[string]string // "<name>/<key>" -> value
}

func (s *StaticSecrets) HeartbeatToken(serviceID string) (string, bool) {
	token, ok := s.Heartbeat[serviceID]
	return token, ok && token != ""
}

func (s *StaticSecrets) AlertToken() (string, bool) {
	return s.Alert, s.Alert != ""
}

func (s *StaticSecrets) ChannelSecret(channelName, key string) (string, bool) {
	value, ok := s.Channels[channelName+"/"+key]
	return value, ok && value != ""
}
