// Package durastore talks to the remote DuraCloud-style storage service. It
// knows the URL shapes for the account index document, per-account policy
// documents, and the XML provider and space listings, and maps transport
// failures onto the application's error taxonomy.
package durastore

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/sethvargo/go-retry"
)

// CredentialSource supplies the identity token and tenant context attached
// to every request.
type CredentialSource interface {
	// Token returns the Basic auth token, or ErrUnauthorized when the
	// session holds no valid credential.
	Token() (string, error)
	// Subdomain returns the tenant subdomain hosting the policy repository.
	Subdomain() string
	// Prefix returns the optional space-name prefix for the repository.
	Prefix() string
}

// Gateway defines the remote operations the policy editor needs.
type Gateway interface {
	ListAccounts(ctx context.Context) ([]string, error)
	SaveAccountsList(ctx context.Context, accounts []string) error
	GetPolicyDocument(ctx context.Context, accountID string) ([]byte, error)
	SavePolicyDocument(ctx context.Context, accountID string, doc []byte) error
	DeletePolicyDocument(ctx context.Context, accountID string) error
	ListStorageProviders(ctx context.Context, accountID string) ([]domain.StorageProvider, error)
	ListSpaces(ctx context.Context, accountID string) ([]string, error)
	CheckAccountExists(ctx context.Context, subdomain string) error
}

// Config holds the connection settings for the durastore backend.
type Config struct {
	// ServiceDomain is the backend's base domain, e.g. "duracloud.org".
	// Request URLs take the form https://{subdomain}.{ServiceDomain}/{APIRoot}.
	ServiceDomain string
	// APIRoot is the path segment of the storage API, e.g. "durastore".
	APIRoot string
	// HTTPClient optionally overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	cfg   Config
	creds CredentialSource
	http  *http.Client
}

// Ensure Client implements Gateway.
var _ Gateway = (*Client)(nil)

// NewClient creates a gateway client bound to one session's credentials.
func NewClient(cfg Config, creds CredentialSource) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, creds: creds, http: httpClient}
}

// baseURL returns the storage API root for a tenant subdomain.
func (c *Client) baseURL(subdomain string) string {
	return fmt.Sprintf("https://%s.%s/%s", subdomain, c.cfg.ServiceDomain, c.cfg.APIRoot)
}

// repoURL returns the shared policy repository collection. The repository
// lives under the session's own subdomain regardless of which account's
// policy is being edited.
func (c *Client) repoURL() string {
	return c.baseURL(c.creds.Subdomain()) + "/" + c.creds.Prefix() + "duplication-policy-repo"
}

// accountsURL returns the account index document URL.
func (c *Client) accountsURL() string {
	return c.repoURL() + "/duplication-accounts.json"
}

// policyURL returns the policy document URL for one account.
func (c *Client) policyURL(accountID string) string {
	return c.repoURL() + "/" + accountID + "-duplication-policy.json"
}

// do performs one authenticated request and maps the outcome onto the error
// taxonomy: 401/403 wrap ErrUnauthorized, 404 wraps ErrNotFound, any other
// non-2xx or network failure is a bare TransportError.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	token, err := c.creds.Token()
	if err != nil {
		// Fail fast: never issue an unauthenticated request.
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	req.Header.Set("Authorization", "Basic "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{URL: url, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &domain.TransportError{URL: url, Status: resp.StatusCode, Err: domain.ErrUnauthorized}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &domain.TransportError{URL: url, Status: resp.StatusCode, Err: domain.ErrNotFound}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &domain.TransportError{URL: url, Status: resp.StatusCode}
	}

	return data, nil
}

// get performs an idempotent read with fibonacci backoff on transient
// failures. Auth and not-found outcomes are never retried.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		data, err = c.do(ctx, http.MethodGet, url, nil)
		if terr, ok := err.(*domain.TransportError); ok {
			if terr.Status == 0 || terr.Status >= 500 {
				return retry.RetryableError(err)
			}
		}
		return err
	})
	return data, err
}

// ListAccounts fetches and parses the account index document. An index that
// encodes no accounts yields an empty slice.
func (c *Client) ListAccounts(ctx context.Context) ([]string, error) {
	url := c.accountsURL()
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []string{}, nil
	}
	var accounts []string
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, &domain.MalformedResponseError{URL: url, Err: err}
	}
	if accounts == nil {
		accounts = []string{}
	}
	return accounts, nil
}

// SaveAccountsList overwrites the index document with the supplied accounts,
// preserving their order.
func (c *Client) SaveAccountsList(ctx context.Context, accounts []string) error {
	if accounts == nil {
		accounts = []string{}
	}
	body, err := json.Marshal(accounts)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, c.accountsURL(), body)
	return err
}

// GetPolicyDocument fetches the raw policy JSON for an account. A missing
// document fails with ErrNotFound, distinct from an empty document.
func (c *Client) GetPolicyDocument(ctx context.Context, accountID string) ([]byte, error) {
	return c.get(ctx, c.policyURL(accountID))
}

// SavePolicyDocument overwrites the policy document for an account.
func (c *Client) SavePolicyDocument(ctx context.Context, accountID string, doc []byte) error {
	_, err := c.do(ctx, http.MethodPut, c.policyURL(accountID), doc)
	return err
}

// DeletePolicyDocument removes the policy document. Absence is not an error.
func (c *Client) DeletePolicyDocument(ctx context.Context, accountID string) error {
	_, err := c.do(ctx, http.MethodDelete, c.policyURL(accountID), nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// storageAcctXML mirrors one storageAcct element of the provider listing.
type storageAcctXML struct {
	ID   string `xml:"id"`
	Type string `xml:"storageProviderType"`
}

// storesXML mirrors the provider listing document. encoding/xml decodes a
// document containing a single storageAcct element into a one-element slice,
// which gives the single-vs-many normalization the backend requires.
type storesXML struct {
	Accounts []storageAcctXML `xml:"storageAcct"`
}

// ListStorageProviders fetches and parses the XML provider listing for an
// account.
func (c *Client) ListStorageProviders(ctx context.Context, accountID string) ([]domain.StorageProvider, error) {
	url := c.baseURL(accountID) + "/stores"
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var doc storesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.MalformedResponseError{URL: url, Err: err}
	}
	providers := make([]domain.StorageProvider, 0, len(doc.Accounts))
	for _, acct := range doc.Accounts {
		providers = append(providers, domain.StorageProvider{
			ID:   strings.TrimSpace(acct.ID),
			Type: strings.TrimSpace(acct.Type),
		})
	}
	return providers, nil
}

// spaceXML mirrors one space element of the space listing.
type spaceXML struct {
	ID string `xml:"id,attr"`
}

// spacesXML mirrors the space listing document.
type spacesXML struct {
	Spaces []spaceXML `xml:"space"`
}

// ListSpaces fetches and parses the XML space listing for an account into
// space names.
func (c *Client) ListSpaces(ctx context.Context, accountID string) ([]string, error) {
	url := c.baseURL(accountID) + "/spaces"
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var doc spacesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.MalformedResponseError{URL: url, Err: err}
	}
	names := make([]string, 0, len(doc.Spaces))
	for _, s := range doc.Spaces {
		names = append(names, strings.TrimSpace(s.ID))
	}
	return names, nil
}

// CheckAccountExists issues a lightweight read against the account's
// namespace. Any successful response means the subdomain exists.
func (c *Client) CheckAccountExists(ctx context.Context, subdomain string) error {
	_, err := c.get(ctx, c.baseURL(subdomain)+"/spaces")
	return err
}

// isNotFound reports whether err represents a missing remote resource.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
