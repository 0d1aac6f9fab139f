package durastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
)

// FileShim is a Gateway implementation that persists the account index and
// policy documents as JSON files under a directory. It stands in for the
// real backend during local development and tests. Provider and space
// listings are served from fixed fixtures.
type FileShim struct {
	dir string

	mu sync.RWMutex

	// Providers is the fixture served by ListStorageProviders.
	Providers []domain.StorageProvider
	// SpaceNames is the fixture served by ListSpaces.
	SpaceNames []string
	// Subdomains are tenant subdomains considered to exist in addition to
	// any account present in the index.
	Subdomains []string
}

// Ensure FileShim implements Gateway.
var _ Gateway = (*FileShim)(nil)

// NewFileShim creates a file-backed shim rooted at dir, seeded with a small
// default provider and space fixture.
func NewFileShim(dir string) *FileShim {
	return &FileShim{
		dir: dir,
		Providers: []domain.StorageProvider{
			{ID: "s3", Type: "AMAZON_S3"},
			{ID: "glacier", Type: "AMAZON_GLACIER"},
		},
		SpaceNames: []string{"images", "documents", "archive"},
	}
}

// indexPath returns the account index file path.
func (f *FileShim) indexPath() string {
	return filepath.Join(f.dir, "duplication-accounts.json")
}

// policyPath returns the policy document file path for one account.
func (f *FileShim) policyPath(accountID string) string {
	return filepath.Join(f.dir, accountID+"-duplication-policy.json")
}

// readIndex reads the account index, returning an empty list when the file
// does not exist yet.
func (f *FileShim) readIndex() ([]string, error) {
	data, err := os.ReadFile(f.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading account index: %w", err)
	}
	var accounts []string
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parsing account index: %w", err)
	}
	if accounts == nil {
		accounts = []string{}
	}
	return accounts, nil
}

// ListAccounts returns the accounts recorded in the index file.
func (f *FileShim) ListAccounts(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.readIndex()
}

// SaveAccountsList overwrites the index file, preserving order.
func (f *FileShim) SaveAccountsList(ctx context.Context, accounts []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if accounts == nil {
		accounts = []string{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("writing account index: %w", err)
	}
	return nil
}

// GetPolicyDocument reads the policy document file for an account. A missing
// file fails with ErrNotFound.
func (f *FileShim) GetPolicyDocument(ctx context.Context, accountID string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.policyPath(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("policy document for %s: %w", accountID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reading policy document: %w", err)
	}
	return data, nil
}

// SavePolicyDocument overwrites the policy document file for an account.
func (f *FileShim) SavePolicyDocument(ctx context.Context, accountID string, doc []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.WriteFile(f.policyPath(accountID), doc, 0644); err != nil {
		return fmt.Errorf("writing policy document: %w", err)
	}
	return nil
}

// DeletePolicyDocument removes the policy document file. Absence is not an
// error.
func (f *FileShim) DeletePolicyDocument(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.policyPath(accountID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting policy document: %w", err)
	}
	return nil
}

// ListStorageProviders serves the provider fixture.
func (f *FileShim) ListStorageProviders(ctx context.Context, accountID string) ([]domain.StorageProvider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	providers := make([]domain.StorageProvider, len(f.Providers))
	copy(providers, f.Providers)
	return providers, nil
}

// ListSpaces serves the space-name fixture.
func (f *FileShim) ListSpaces(ctx context.Context, accountID string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, len(f.SpaceNames))
	copy(names, f.SpaceNames)
	return names, nil
}

// CheckAccountExists treats a subdomain as existing when it is listed in the
// Subdomains fixture or recorded in the index.
func (f *FileShim) CheckAccountExists(ctx context.Context, subdomain string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, s := range f.Subdomains {
		if s == subdomain {
			return nil
		}
	}
	accounts, err := f.readIndex()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a == subdomain {
			return nil
		}
	}
	return fmt.Errorf("subdomain %s: %w", subdomain, domain.ErrNotFound)
}
