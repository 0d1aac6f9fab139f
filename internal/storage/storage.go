package storage

import (
	"context"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
)

// Storage defines the interface for the policy-version audit store.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Policy versions
	CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error
	GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error)
	GetLatestPolicyVersion(ctx context.Context, accountID string) (*domain.PolicyVersion, error)
	ListPolicyVersions(ctx context.Context, accountID string, limit, offset int) ([]*domain.PolicyVersion, error)
	DeletePolicyVersions(ctx context.Context, accountID string) error
}
