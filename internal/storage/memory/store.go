package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu       sync.RWMutex
	versions map[string]*domain.PolicyVersion // key: id
}

// Ensure Store implements the storage interface.
var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		versions: make(map[string]*domain.PolicyVersion),
	}
}

func (s *Store) Close() error { return nil }

// CreatePolicyVersion stores a version snapshot.
func (s *Store) CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[version.ID]; exists {
		return domain.ErrAlreadyExists
	}
	copied := *version
	s.versions[version.ID] = &copied
	return nil
}

// GetPolicyVersion returns a version by id.
func (s *Store) GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *version
	return &copied, nil
}

// GetLatestPolicyVersion returns the highest-numbered version for an account.
func (s *Store) GetLatestPolicyVersion(ctx context.Context, accountID string) (*domain.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.PolicyVersion
	for _, v := range s.versions {
		if v.AccountID != accountID {
			continue
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

// ListPolicyVersions returns an account's versions, newest first.
func (s *Store) ListPolicyVersions(ctx context.Context, accountID string, limit, offset int) ([]*domain.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.PolicyVersion, 0)
	for _, v := range s.versions {
		if v.AccountID == accountID {
			copied := *v
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].VersionNumber > all[j].VersionNumber
	})

	if offset >= len(all) {
		return []*domain.PolicyVersion{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// DeletePolicyVersions removes all versions for an account.
func (s *Store) DeletePolicyVersions(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range s.versions {
		if v.AccountID == accountID {
			delete(s.versions, id)
		}
	}
	return nil
}
