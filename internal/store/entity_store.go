// Package store provides the in-memory, identity-mapped record graph backed
// by the remote gateway. Records are cached by (kind, identifier); remote
// reads populate the cache and multi-step remote writes run in an order that
// never leaves the index pointing at a missing policy document.
package store

import (
	"context"
	"sync"

	"github.com/duraspace/duplication-policy-manager/internal/codec"
	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/durastore"
	"golang.org/x/sync/errgroup"
)

// EntityStore is the graph repository for one session. All remote-touching
// operations take a context; local reads and pushes are synchronous.
type EntityStore struct {
	gw durastore.Gateway

	mu            sync.RWMutex
	accounts      map[string]*domain.Account
	policies      map[string]*domain.Policy
	spaces        map[string]*domain.Space
	storePolicies map[string]*domain.StorePolicy
	providers     map[string]*domain.StorageProvider
	pendingNew    map[string]bool
}

// NewEntityStore creates an empty entity store over a gateway.
func NewEntityStore(gw durastore.Gateway) *EntityStore {
	return &EntityStore{
		gw:            gw,
		accounts:      make(map[string]*domain.Account),
		policies:      make(map[string]*domain.Policy),
		spaces:        make(map[string]*domain.Space),
		storePolicies: make(map[string]*domain.StorePolicy),
		providers:     make(map[string]*domain.StorageProvider),
		pendingNew:    make(map[string]bool),
	}
}

// Gateway exposes the underlying gateway for read-only listings.
func (s *EntityStore) Gateway() durastore.Gateway {
	return s.gw
}

// FindAccount returns the cached account or verifies its existence remotely
// and caches it. The backend is the authority on whether a subdomain exists.
func (s *EntityStore) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	acct, ok := s.accounts[id]
	pending := s.pendingNew[id]
	s.mu.RUnlock()
	if ok && !pending {
		return acct, nil
	}

	if err := s.gw.CheckAccountExists(ctx, id); err != nil {
		return nil, err
	}

	acct = &domain.Account{ID: id}
	s.PushAccount(acct)
	return acct, nil
}

// FindAllAccounts lists the accounts recorded in the remote index and caches
// each one.
func (s *EntityStore) FindAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	ids, err := s.gw.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		acct := &domain.Account{ID: id}
		s.PushAccount(acct)
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// CreateAccount stages a new account record. Accounts use the user-supplied
// subdomain as their identifier; the record stays pending until SaveAccount
// completes the remote sequence.
func (s *EntityStore) CreateAccount(id string) *domain.Account {
	acct := &domain.Account{ID: id}
	s.mu.Lock()
	s.accounts[id] = acct
	s.pendingNew[id] = true
	s.mu.Unlock()
	return acct
}

// SaveAccount materializes a staged account remotely: read the current
// index, persist an empty policy document, then persist the index with the
// new id appended. The document is written before the index so a failure
// between steps never leaves an index entry pointing at a missing document.
func (s *EntityStore) SaveAccount(ctx context.Context, acct *domain.Account) error {
	ids, err := s.gw.ListAccounts(ctx)
	if err != nil {
		return err
	}

	present := false
	for _, id := range ids {
		if id == acct.ID {
			present = true
			break
		}
	}

	if !present {
		if err := s.gw.SavePolicyDocument(ctx, acct.ID, []byte("{}")); err != nil {
			return err
		}
		if err := s.gw.SaveAccountsList(ctx, append(ids, acct.ID)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	delete(s.pendingNew, acct.ID)
	s.mu.Unlock()
	return nil
}

// DeleteAccount removes an account remotely: read the current index, persist
// it with the id removed, then delete the policy document. The index is
// trimmed first so a failure between steps leaves at worst an orphaned,
// unreferenced document, never a dangling index entry.
func (s *EntityStore) DeleteAccount(ctx context.Context, acct *domain.Account) error {
	ids, err := s.gw.ListAccounts(ctx)
	if err != nil {
		return err
	}

	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != acct.ID {
			trimmed = append(trimmed, id)
		}
	}

	if err := s.gw.SaveAccountsList(ctx, trimmed); err != nil {
		return err
	}
	if err := s.gw.DeletePolicyDocument(ctx, acct.ID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.accounts, acct.ID)
	delete(s.pendingNew, acct.ID)
	s.mu.Unlock()
	s.EvictPolicy(acct.ID)
	return nil
}

// FindPolicy returns the cached policy or performs the load sequence: verify
// the account exists, then fetch the provider listing and the policy
// document concurrently, and combine them once both complete. The provider
// cache on the policy is refreshed on every load.
func (s *EntityStore) FindPolicy(ctx context.Context, accountID string) (*domain.Policy, error) {
	s.mu.RLock()
	policy, ok := s.policies[accountID]
	s.mu.RUnlock()
	if ok {
		return policy, nil
	}

	if err := s.gw.CheckAccountExists(ctx, accountID); err != nil {
		return nil, err
	}

	var (
		providers []domain.StorageProvider
		doc       []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		providers, err = s.gw.ListStorageProviders(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		doc, err = s.gw.GetPolicyDocument(gctx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	policy, err := codec.DeserializePolicy(accountID, doc)
	if err != nil {
		return nil, &domain.MalformedResponseError{URL: accountID, Err: err}
	}
	policy.StorageProviders = providers

	s.PushPolicy(policy)
	return policy, nil
}

// SavePolicy serializes the policy graph and persists it, returning the
// rendered wire document.
func (s *EntityStore) SavePolicy(ctx context.Context, policy *domain.Policy) ([]byte, error) {
	doc, err := codec.SerializePolicy(policy)
	if err != nil {
		return nil, err
	}
	if err := s.gw.SavePolicyDocument(ctx, policy.ID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// PushAccount inserts or overwrites an account record without staging remote
// work.
func (s *EntityStore) PushAccount(acct *domain.Account) {
	s.mu.Lock()
	s.accounts[acct.ID] = acct
	delete(s.pendingNew, acct.ID)
	s.mu.Unlock()
}

// PushPolicy caches a policy graph along with all of its owned records.
func (s *EntityStore) PushPolicy(policy *domain.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[policy.ID] = policy
	for i := range policy.StorageProviders {
		sp := policy.StorageProviders[i]
		s.providers[sp.ID] = &sp
	}
	for _, space := range policy.Spaces {
		s.spaces[space.ID] = space
		for _, rule := range space.StorePolicies {
			s.storePolicies[rule.ID] = rule
		}
	}
	for _, rule := range policy.DefaultPolicies {
		s.storePolicies[rule.ID] = rule
	}
}

// PushSpace caches a space record.
func (s *EntityStore) PushSpace(space *domain.Space) {
	s.mu.Lock()
	s.spaces[space.ID] = space
	s.mu.Unlock()
}

// PushStorePolicy caches a rule record.
func (s *EntityStore) PushStorePolicy(rule *domain.StorePolicy) {
	s.mu.Lock()
	s.storePolicies[rule.ID] = rule
	s.mu.Unlock()
}

// Space returns a cached space record, or nil.
func (s *EntityStore) Space(id string) *domain.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spaces[id]
}

// StorePolicy returns a cached rule record, or nil.
func (s *EntityStore) StorePolicy(id string) *domain.StorePolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storePolicies[id]
}

// Provider returns a cached provider record, or nil.
func (s *EntityStore) Provider(id string) *domain.StorageProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[id]
}

// RemoveSpaceRecord drops a deleted space and its rules from the cache.
func (s *EntityStore) RemoveSpaceRecord(space *domain.Space) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spaces, space.ID)
	for _, rule := range space.StorePolicies {
		delete(s.storePolicies, rule.ID)
	}
}

// RemoveStorePolicyRecord drops a deleted rule from the cache.
func (s *EntityStore) RemoveStorePolicyRecord(rule *domain.StorePolicy) {
	s.mu.Lock()
	delete(s.storePolicies, rule.ID)
	s.mu.Unlock()
}

// EvictPolicy drops a policy graph and its owned records from the cache, so
// the next FindPolicy performs a fresh load.
func (s *EntityStore) EvictPolicy(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, ok := s.policies[accountID]
	if !ok {
		return
	}
	delete(s.policies, accountID)
	for _, space := range policy.Spaces {
		delete(s.spaces, space.ID)
		for _, rule := range space.StorePolicies {
			delete(s.storePolicies, rule.ID)
		}
	}
	for _, rule := range policy.DefaultPolicies {
		delete(s.storePolicies, rule.ID)
	}
}
