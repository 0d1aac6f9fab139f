package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/duraspace/duplication-policy-manager/internal/auth"
	"github.com/duraspace/duplication-policy-manager/internal/domain"
)

func TestDeriveToken(t *testing.T) {
	if got := auth.DeriveToken("user", "pass"); got != "dXNlcjpwYXNz" {
		t.Errorf("DeriveToken = %q, want dXNlcjpwYXNz", got)
	}
}

func TestAuthenticate(t *testing.T) {
	var probed *auth.Credentials
	manager := auth.NewManager(func(ctx context.Context, creds *auth.Credentials) error {
		probed = creds
		return nil
	}, "test-")

	creds, err := manager.Authenticate(context.Background(), "user", "pass", "admin")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if !creds.Authenticated() {
		t.Error("credentials not marked authenticated")
	}
	if creds.Subdomain() != "admin" {
		t.Errorf("Subdomain = %q, want admin", creds.Subdomain())
	}
	if creds.Prefix() != "test-" {
		t.Errorf("Prefix = %q, want test-", creds.Prefix())
	}
	token, err := creds.Token()
	if err != nil || token != "dXNlcjpwYXNz" {
		t.Errorf("Token = %q, %v; want the derived token", token, err)
	}

	// The probe must be able to issue authenticated calls.
	if probed == nil {
		t.Fatal("probe never ran")
	}
	if _, err := probed.Token(); err != nil {
		t.Errorf("probe saw unusable credentials: %v", err)
	}
}

func TestAuthenticate_ProbeFailureSurfaces(t *testing.T) {
	probeErr := &domain.TransportError{URL: "https://admin.example.org", Status: 401, Err: domain.ErrUnauthorized}
	manager := auth.NewManager(func(ctx context.Context, creds *auth.Credentials) error {
		return probeErr
	}, "")

	creds, err := manager.Authenticate(context.Background(), "user", "wrong", "admin")
	if creds != nil {
		t.Error("credentials returned despite probe failure")
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Authenticate error = %v, want the probe's failure", err)
	}
}

func TestAuthenticate_RequiresAllFields(t *testing.T) {
	manager := auth.NewManager(func(ctx context.Context, creds *auth.Credentials) error {
		t.Error("probe ran for incomplete credentials")
		return nil
	}, "")

	for _, tt := range []struct{ user, pass, sub string }{
		{"", "pass", "admin"},
		{"user", "", "admin"},
		{"user", "pass", ""},
	} {
		if _, err := manager.Authenticate(context.Background(), tt.user, tt.pass, tt.sub); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Authenticate(%q, %q, %q) error = %v, want ErrInvalidInput", tt.user, tt.pass, tt.sub, err)
		}
	}
}

func TestToken_UnauthenticatedCredentials(t *testing.T) {
	var creds auth.Credentials
	if _, err := creds.Token(); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Token on zero credentials error = %v, want ErrUnauthorized", err)
	}
}
