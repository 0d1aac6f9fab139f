// Package service implements the policy edit operations. Every operation
// validates before it mutates, and a mutation whose remote save is rejected
// is reverted so the visible graph never diverges from durable state beyond
// the failed call.
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/storage"
	"github.com/duraspace/duplication-policy-manager/internal/store"
	"github.com/duraspace/duplication-policy-manager/internal/validation"
	"github.com/google/uuid"
)

// PolicyService combines entity store mutations with validation and remote
// persistence. Operations are serialized by a mutex: the original editor ran
// on a single cooperative control flow, and all graph writes here funnel
// through the same point.
type PolicyService struct {
	mu      sync.Mutex
	store   *store.EntityStore
	history storage.Storage
}

// NewPolicyService creates a service over an entity store. history may be
// nil to disable the version audit trail.
func NewPolicyService(entityStore *store.EntityStore, history storage.Storage) *PolicyService {
	return &PolicyService{store: entityStore, history: history}
}

// Accounts lists the accounts recorded in the remote index.
func (s *PolicyService) Accounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.FindAllAccounts(ctx)
}

// CreateAccount provisions a new account and its empty policy document.
// Fails with ErrAlreadyExists when the index already records the subdomain.
func (s *PolicyService) CreateAccount(ctx context.Context, id string) (*domain.Account, error) {
	if err := validation.ValidateSubdomain(id); err != nil {
		return nil, validation.NewValidationError("id", id, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.store.Gateway().ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range ids {
		if existing == id {
			return nil, domain.ErrAlreadyExists
		}
	}

	acct := s.store.CreateAccount(id)
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// DeleteAccount removes an account from the index and deletes its policy
// document, in that order. Deleting an absent account is not an error.
func (s *PolicyService) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteAccount(ctx, &domain.Account{ID: id}); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.DeletePolicyVersions(ctx, id); err != nil {
			log.Printf("Warning: failed to prune version history for %s: %v", id, err)
		}
	}
	return nil
}

// GetPolicy loads (or returns the cached) policy graph for an account.
func (s *PolicyService) GetPolicy(ctx context.Context, accountID string) (*domain.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.FindPolicy(ctx, accountID)
}

// Providers returns the storage providers available to an account.
func (s *PolicyService) Providers(ctx context.Context, accountID string) ([]domain.StorageProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.store.FindPolicy(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return policy.StorageProviders, nil
}

// AvailableSpaces returns the backend's space names that are not yet
// configured on the account's policy.
func (s *PolicyService) AvailableSpaces(ctx context.Context, accountID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.store.FindPolicy(ctx, accountID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.Gateway().ListSpaces(ctx, accountID)
	if err != nil {
		return nil, err
	}

	available := make([]string, 0, len(all))
	for _, name := range all {
		if policy.FindSpace(name) == nil {
			available = append(available, name)
		}
	}
	return available, nil
}

// AddSpace attaches a new space with an empty rule collection to the
// account's policy and persists it.
func (s *PolicyService) AddSpace(ctx context.Context, accountID, spaceID string, ignored bool) (*domain.Space, error) {
	if err := validation.ValidateSpaceName(spaceID); err != nil {
		return nil, validation.NewValidationError("spaceId", spaceID, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.store.FindPolicy(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if policy.FindSpace(spaceID) != nil {
		return nil, validation.NewValidationError("spaceId", spaceID, "space is already configured")
	}

	space := &domain.Space{
		ID:            uuid.New().String(),
		SpaceID:       spaceID,
		Ignored:       ignored,
		StorePolicies: []*domain.StorePolicy{},
	}
	policy.Spaces = append(policy.Spaces, space)

	doc, err := s.store.SavePolicy(ctx, policy)
	if err != nil {
		policy.Spaces = policy.Spaces[:len(policy.Spaces)-1]
		return nil, err
	}

	s.store.PushSpace(space)
	s.recordVersion(ctx, accountID, doc)
	return space, nil
}

// RemoveSpace detaches a space from the policy and persists it. When the
// save is rejected the space is restored at its previous position.
func (s *PolicyService) RemoveSpace(ctx context.Context, accountID, spaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.store.FindPolicy(ctx, accountID)
	if err != nil {
		return err
	}
	space := policy.FindSpace(spaceID)
	if space == nil {
		return domain.ErrNotFound
	}

	idx := -1
	for i, sp := range policy.Spaces {
		if sp == space {
			idx = i
			break
		}
	}
	policy.Spaces = append(policy.Spaces[:idx], policy.Spaces[idx+1:]...)

	doc, err := s.store.SavePolicy(ctx, policy)
	if err != nil {
		policy.Spaces = append(policy.Spaces[:idx], append([]*domain.Space{space}, policy.Spaces[idx:]...)...)
		return err
	}

	s.store.RemoveSpaceRecord(space)
	s.recordVersion(ctx, accountID, doc)
	return nil
}

// AddStorePolicy adds a source->destination rule to a space's collection, or
// to the policy's default collection when spaceID is empty. Validation runs
// strictly before any mutation.
func (s *PolicyService) AddStorePolicy(ctx context.Context, accountID, spaceID, sourceID, destinationID string) (*domain.StorePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.store.FindPolicy(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var space *domain.Space
	target := &policy.DefaultPolicies
	if spaceID != "" {
		space = policy.FindSpace(spaceID)
		if space == nil {
			return nil, domain.ErrNotFound
		}
		target = &space.StorePolicies
	}

	if err := validation.ValidateProviderRefs(policy, sourceID, destinationID); err != nil {
		return nil, err
	}
	if err := validation.ValidateStorePolicy(*target, sourceID, destinationID); err != nil {
		return nil, err
	}

	rule := &domain.StorePolicy{
		ID:            uuid.New().String(),
		SourceID:      sourceID,
		DestinationID: destinationID,
	}
	*target = append(*target, rule)

	doc, err := s.store.SavePolicy(ctx, policy)
	if err != nil {
		*target = (*target)[:len(*target)-1]
		return nil, err
	}

	s.store.PushStorePolicy(rule)
	s.recordVersion(ctx, accountID, doc)
	return rule, nil
}

// RemoveStorePolicy detaches a rule from a space's collection, or from the
// default collection when spaceID is empty, and persists the policy. A
// rejected save restores the rule at its previous position.
func (s *PolicyService) RemoveStorePolicy(ctx context.Context, accountID, spaceID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy, err := s.store.FindPolicy(ctx, accountID)
	if err != nil {
		return err
	}

	target := &policy.DefaultPolicies
	if spaceID != "" {
		space := policy.FindSpace(spaceID)
		if space == nil {
			return domain.ErrNotFound
		}
		target = &space.StorePolicies
	}

	idx := -1
	for i, rule := range *target {
		if rule.ID == ruleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}

	rule := (*target)[idx]
	*target = append((*target)[:idx], (*target)[idx+1:]...)

	doc, err := s.store.SavePolicy(ctx, policy)
	if err != nil {
		*target = append((*target)[:idx], append([]*domain.StorePolicy{rule}, (*target)[idx:]...)...)
		return err
	}

	s.store.RemoveStorePolicyRecord(rule)
	s.recordVersion(ctx, accountID, doc)
	return nil
}

// Versions lists the recorded policy versions for an account, newest first.
func (s *PolicyService) Versions(ctx context.Context, accountID string, limit, offset int) ([]*domain.PolicyVersion, error) {
	if s.history == nil {
		return []*domain.PolicyVersion{}, nil
	}
	return s.history.ListPolicyVersions(ctx, accountID, limit, offset)
}

// Rollback persists a previously recorded document for the account and
// evicts the cached graph so the next load reflects the restored state.
func (s *PolicyService) Rollback(ctx context.Context, accountID, versionID string) (*domain.Policy, error) {
	if s.history == nil {
		return nil, domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.history.GetPolicyVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.AccountID != accountID {
		return nil, domain.ErrNotFound
	}

	doc := []byte(version.Document)
	if err := s.store.Gateway().SavePolicyDocument(ctx, accountID, doc); err != nil {
		return nil, err
	}

	s.store.EvictPolicy(accountID)
	s.recordVersion(ctx, accountID, doc)
	return s.store.FindPolicy(ctx, accountID)
}

// recordVersion appends a snapshot to the audit trail. History writes are
// best-effort: a failure is logged and never fails the edit that produced
// the document.
func (s *PolicyService) recordVersion(ctx context.Context, accountID string, doc []byte) {
	if s.history == nil {
		return
	}

	next := 1
	latest, err := s.history.GetLatestPolicyVersion(ctx, accountID)
	if err == nil {
		next = latest.VersionNumber + 1
	} else if err != domain.ErrNotFound {
		log.Printf("Warning: failed to read version history for %s: %v", accountID, err)
		return
	}

	version := &domain.PolicyVersion{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		VersionNumber: next,
		Document:      string(doc),
		CreatedAt:     time.Now(),
	}
	if err := s.history.CreatePolicyVersion(ctx, version); err != nil {
		log.Printf("Warning: failed to record policy version for %s: %v", accountID, err)
	}
}
