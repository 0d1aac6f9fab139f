// Package auth holds the durastore credential store and the HTTP session
// registry. Credentials are explicitly constructed per session and passed by
// reference; there is no ambient global state.
package auth

import (
	"context"
	"encoding/base64"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
)

// Credentials holds one authenticated session's identity token and tenant
// selection context. The token is a transport encoding for the Basic auth
// header, not a security mechanism.
type Credentials struct {
	subdomain     string
	prefix        string
	token         string
	authenticated bool
}

// Token returns the derived identity token, or ErrUnauthorized if the
// credentials were never authenticated. Gateway calls use this to fail fast
// client-side instead of issuing a request that would be rejected remotely.
func (c *Credentials) Token() (string, error) {
	if c == nil || c.token == "" || !c.authenticated {
		return "", domain.ErrUnauthorized
	}
	return c.token, nil
}

// Subdomain returns the active tenant subdomain.
func (c *Credentials) Subdomain() string {
	if c == nil {
		return ""
	}
	return c.subdomain
}

// Prefix returns the optional space-name prefix for the policy repository.
func (c *Credentials) Prefix() string {
	if c == nil {
		return ""
	}
	return c.prefix
}

// Authenticated reports whether the credentials passed the liveness check.
func (c *Credentials) Authenticated() bool {
	return c != nil && c.authenticated
}

// ProbeFunc verifies candidate credentials by performing a lightweight
// existing-data read (listing accounts) against the backend.
type ProbeFunc func(ctx context.Context, creds *Credentials) error

// Manager derives and verifies credentials. The probe is injected so the
// package carries no dependency on the gateway implementation.
type Manager struct {
	probe  ProbeFunc
	prefix string
}

// NewManager creates a credential manager. prefix is the optional space-name
// prefix applied to every credential it issues.
func NewManager(probe ProbeFunc, prefix string) *Manager {
	return &Manager{probe: probe, prefix: prefix}
}

// Authenticate derives an identity token from the username and password and
// verifies it with a lightweight read through the probe. On success the
// returned credentials are marked authenticated; on failure no session state
// is retained and the probe's failure is surfaced unchanged.
func (m *Manager) Authenticate(ctx context.Context, username, password, subdomain string) (*Credentials, error) {
	if username == "" || password == "" || subdomain == "" {
		return nil, domain.ErrInvalidInput
	}

	creds := &Credentials{
		subdomain: subdomain,
		prefix:    m.prefix,
		token:     DeriveToken(username, password),
	}
	// Usable during the probe; nobody else sees the credentials until the
	// probe has succeeded.
	creds.authenticated = true

	if err := m.probe(ctx, creds); err != nil {
		return nil, err
	}

	return creds, nil
}

// DeriveToken encodes username:password for a Basic authorization header.
func DeriveToken(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
