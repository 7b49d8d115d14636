package auth

import (
	"crypto/subtle"
	"errors"
	"log"

	"github.com/statuspulse/statuspulse/internal/config"
)

// Terminal authentication failures, reported per-item and never retried.
var (
	ErrUnknownService    = errors.New("unknown service")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingCredential = errors.New("missing credential")
)

// Entry is one service in a heartbeat request, with the token supplied for
// it (per-item token, or empty when only the header token applies).
type Entry struct {
	ServiceID string
	Token     string
}

// Verdict is the authentication outcome for one request entry.
type Verdict struct {
	ServiceID string
	// Authorized is the final decision for this entry.
	Authorized bool
	// Err classifies a rejection: ErrUnknownService, ErrInvalidCredential
	// or ErrMissingCredential. Nil when authorized.
	Err error
	// Misconfigured marks a fail-open acceptance: auth was required but no
	// secret is provisioned for the service.
	Misconfigured bool
}

// Resolver produces per-service authentication verdicts for heartbeat
// submissions.
type Resolver struct {
	cfg     *config.Config
	secrets config.SecretSource
}

func NewResolver(cfg *config.Config, secrets config.SecretSource) *Resolver {
	return &Resolver{cfg: cfg, secrets: secrets}
}

// Resolve evaluates each entry independently and returns verdicts in input
// order. headerToken is the bearer token from the Authorization header and
// acts as the fallback when an entry carries no token of its own.
func (r *Resolver) Resolve(entries []Entry, headerToken string) []Verdict {
	verdicts := make([]Verdict, 0, len(entries))
	for _, entry := range entries {
		verdicts = append(verdicts, r.resolveOne(entry, headerToken))
	}
	return verdicts
}

func (r *Resolver) resolveOne(entry Entry, headerToken string) Verdict {
	v := Verdict{ServiceID: entry.ServiceID}

	svc, ok := r.cfg.ServiceByID(entry.ServiceID)
	if !ok {
		v.Err = ErrUnknownService
		return v
	}

	if !r.authRequired(svc) {
		v.Authorized = true
		return v
	}

	expected, ok := r.secrets.HeartbeatToken(svc.ID)
	if !ok {
		if r.cfg.Settings.AuthFailOpen {
			log.Printf("auth: no API key provisioned for service %s but auth is required; accepting (fail-open enabled)", svc.ID)
			v.Authorized = true
			v.Misconfigured = true
			return v
		}
		v.Err = ErrInvalidCredential
		return v
	}

	supplied := entry.Token
	if supplied == "" {
		supplied = headerToken
	}
	if supplied == "" {
		v.Err = ErrMissingCredential
		return v
	}

	if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
		v.Err = ErrInvalidCredential
		return v
	}

	v.Authorized = true
	return v
}

// authRequired resolves the tri-state requirement: service override, then
// group default, then the global default of true.
func (r *Resolver) authRequired(svc config.Service) bool {
	if svc.AuthRequired != nil {
		return *svc.AuthRequired
	}
	if svc.Group != "" {
		if group, ok := r.cfg.GroupByID(svc.Group); ok && group.AuthRequired != nil {
			return *group.AuthRequired
		}
	}
	return true
}
