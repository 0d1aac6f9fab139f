package domain

import "time"

// Account represents a tenant, identified by its durastore subdomain.
// Accounts are verified against the backend, never declared locally.
type Account struct {
	ID string `json:"id"`
}

// StorageProvider is a storage backend instance usable as a rule endpoint.
// Providers are read-only from this application's perspective: they are
// fetched from the backend's provider list on every policy load and never
// created or deleted here.
type StorageProvider struct {
	ID   string `json:"id"`
	Type string `json:"storageProviderType"`
}

// StorePolicy is a single source->destination duplication rule.
// Source and destination reference StorageProvider ids and must differ.
type StorePolicy struct {
	ID            string `json:"id"`
	SourceID      string `json:"sourceId"`
	DestinationID string `json:"destinationId"`
}

// Pair returns the (source, destination) endpoints of the rule.
func (p *StorePolicy) Pair() (string, string) {
	return p.SourceID, p.DestinationID
}

// Space is a named storage bucket within an account that may carry its own
// duplication rules. SpaceID is the backend space name, unique within a
// policy. Ignored is an in-memory flag and is never written to the wire
// document.
type Space struct {
	ID            string         `json:"id"`
	SpaceID       string         `json:"spaceId"`
	Ignored       bool           `json:"ignored,omitempty"`
	StorePolicies []*StorePolicy `json:"storePolicies"`
}

// FindStorePolicy returns the rule with the given id, or nil.
func (s *Space) FindStorePolicy(id string) *StorePolicy {
	for _, p := range s.StorePolicies {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Policy is the duplication configuration for one account. Its ID equals
// the account subdomain (1:1 with Account). StorageProviders is a read-only
// projection of what the backend offers for this account, refreshed on every
// load. DefaultPolicies apply when a space has no space-specific rule.
type Policy struct {
	ID               string            `json:"id"`
	Spaces           []*Space          `json:"spaces"`
	StorageProviders []StorageProvider `json:"storageProviders"`
	DefaultPolicies  []*StorePolicy    `json:"defaultPolicies"`
}

// FindSpace returns the configured space with the given backend name, or nil.
func (p *Policy) FindSpace(spaceID string) *Space {
	for _, s := range p.Spaces {
		if s.SpaceID == spaceID {
			return s
		}
	}
	return nil
}

// HasProvider reports whether the policy's provider cache contains id.
func (p *Policy) HasProvider(id string) bool {
	for _, sp := range p.StorageProviders {
		if sp.ID == id {
			return true
		}
	}
	return false
}

// PolicyVersion is a persisted snapshot of a policy document taken after a
// successful save. Used for the audit trail and rollback.
type PolicyVersion struct {
	ID            string    `json:"id" db:"id"`
	AccountID     string    `json:"accountId" db:"account_id"`
	VersionNumber int       `json:"versionNumber" db:"version_number"`
	Document      string    `json:"document" db:"document"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// LoginRequest is the request body for establishing a session.
type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Subdomain string `json:"subdomain"`
}

// LoginResponse carries the session token issued on successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	Subdomain string `json:"subdomain"`
}

// CreateAccountRequest is the request body for creating an account.
type CreateAccountRequest struct {
	ID string `json:"id"`
}

// AddSpaceRequest is the request body for attaching a space to a policy.
type AddSpaceRequest struct {
	SpaceID string `json:"spaceId"`
	Ignored bool   `json:"ignored,omitempty"`
}

// AddStorePolicyRequest is the request body for adding a duplication rule.
type AddStorePolicyRequest struct {
	SourceID      string `json:"srcStoreId"`
	DestinationID string `json:"destStoreId"`
}
