package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/store"
)

// fakeGateway records every call in order and serves canned state.
type fakeGateway struct {
	ops       []string
	accounts  []string
	documents map[string]string
	providers []domain.StorageProvider
	spaces    []string

	// failOn makes the named operation return an error.
	failOn string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		documents: make(map[string]string),
		providers: []domain.StorageProvider{
			{ID: "s3", Type: "AMAZON_S3"},
			{ID: "glacier", Type: "AMAZON_GLACIER"},
		},
		spaces: []string{"images", "documents"},
	}
}

func (g *fakeGateway) record(op string) error {
	g.ops = append(g.ops, op)
	if g.failOn != "" && g.failOn == opName(op) {
		return fmt.Errorf("%s: injected failure", op)
	}
	return nil
}

// opName strips the argument suffix from a recorded op.
func opName(op string) string {
	for i := 0; i < len(op); i++ {
		if op[i] == ' ' {
			return op[:i]
		}
	}
	return op
}

func (g *fakeGateway) ListAccounts(ctx context.Context) ([]string, error) {
	if err := g.record("ListAccounts"); err != nil {
		return nil, err
	}
	return append([]string(nil), g.accounts...), nil
}

func (g *fakeGateway) SaveAccountsList(ctx context.Context, ids []string) error {
	if err := g.record("SaveAccountsList"); err != nil {
		return err
	}
	g.accounts = append([]string(nil), ids...)
	return nil
}

func (g *fakeGateway) GetPolicyDocument(ctx context.Context, accountID string) ([]byte, error) {
	if err := g.record("GetPolicyDocument " + accountID); err != nil {
		return nil, err
	}
	doc, ok := g.documents[accountID]
	if !ok {
		return nil, &domain.TransportError{URL: accountID, Status: 404, Err: domain.ErrNotFound}
	}
	return []byte(doc), nil
}

func (g *fakeGateway) SavePolicyDocument(ctx context.Context, accountID string, doc []byte) error {
	if err := g.record("SavePolicyDocument " + accountID); err != nil {
		return err
	}
	g.documents[accountID] = string(doc)
	return nil
}

func (g *fakeGateway) DeletePolicyDocument(ctx context.Context, accountID string) error {
	if err := g.record("DeletePolicyDocument " + accountID); err != nil {
		return err
	}
	delete(g.documents, accountID)
	return nil
}

func (g *fakeGateway) ListStorageProviders(ctx context.Context, accountID string) ([]domain.StorageProvider, error) {
	if err := g.record("ListStorageProviders " + accountID); err != nil {
		return nil, err
	}
	return append([]domain.StorageProvider(nil), g.providers...), nil
}

func (g *fakeGateway) ListSpaces(ctx context.Context, accountID string) ([]string, error) {
	if err := g.record("ListSpaces " + accountID); err != nil {
		return nil, err
	}
	return append([]string(nil), g.spaces...), nil
}

func (g *fakeGateway) CheckAccountExists(ctx context.Context, accountID string) error {
	if err := g.record("CheckAccountExists " + accountID); err != nil {
		return err
	}
	for _, id := range g.accounts {
		if id == accountID {
			return nil
		}
	}
	if _, ok := g.documents[accountID]; ok {
		return nil
	}
	return &domain.TransportError{URL: accountID, Status: 404, Err: domain.ErrNotFound}
}

func TestSaveAccount_DocumentWrittenBeforeIndex(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"existing"}
	s := store.NewEntityStore(gw)

	acct := s.CreateAccount("tenant-a")
	if err := s.SaveAccount(context.Background(), acct); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	want := []string{"ListAccounts", "SavePolicyDocument tenant-a", "SaveAccountsList"}
	if len(gw.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", gw.ops, want)
	}
	for i := range want {
		if gw.ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", gw.ops, want)
		}
	}

	if gw.documents["tenant-a"] != "{}" {
		t.Errorf("new policy document = %q, want {}", gw.documents["tenant-a"])
	}
	if len(gw.accounts) != 2 || gw.accounts[1] != "tenant-a" {
		t.Errorf("index = %v, want [existing tenant-a]", gw.accounts)
	}
}

func TestSaveAccount_IndexNeverDanglesOnDocumentFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.failOn = "SavePolicyDocument"
	s := store.NewEntityStore(gw)

	acct := s.CreateAccount("tenant-a")
	if err := s.SaveAccount(context.Background(), acct); err == nil {
		t.Fatal("SaveAccount succeeded despite document write failure")
	}

	if len(gw.accounts) != 0 {
		t.Errorf("index = %v after failed document write, want empty", gw.accounts)
	}
}

func TestSaveAccount_AlreadyIndexed(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a"}
	gw.documents["tenant-a"] = "{}"
	s := store.NewEntityStore(gw)

	acct := s.CreateAccount("tenant-a")
	if err := s.SaveAccount(context.Background(), acct); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	for _, op := range gw.ops {
		if opName(op) == "SavePolicyDocument" || opName(op) == "SaveAccountsList" {
			t.Errorf("unexpected write %q for an already-indexed account", op)
		}
	}
}

func TestDeleteAccount_IndexTrimmedBeforeDocumentDeletion(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a", "tenant-b"}
	gw.documents["tenant-a"] = "{}"
	s := store.NewEntityStore(gw)

	if err := s.DeleteAccount(context.Background(), &domain.Account{ID: "tenant-a"}); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	want := []string{"ListAccounts", "SaveAccountsList", "DeletePolicyDocument tenant-a"}
	if len(gw.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", gw.ops, want)
	}
	for i := range want {
		if gw.ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", gw.ops, want)
		}
	}

	if len(gw.accounts) != 1 || gw.accounts[0] != "tenant-b" {
		t.Errorf("index = %v, want [tenant-b]", gw.accounts)
	}
	if _, ok := gw.documents["tenant-a"]; ok {
		t.Error("policy document survived deletion")
	}
}

func TestDeleteAccount_DocumentKeptWhenIndexWriteFails(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a"}
	gw.documents["tenant-a"] = "{}"
	gw.failOn = "SaveAccountsList"
	s := store.NewEntityStore(gw)

	if err := s.DeleteAccount(context.Background(), &domain.Account{ID: "tenant-a"}); err == nil {
		t.Fatal("DeleteAccount succeeded despite index write failure")
	}

	if _, ok := gw.documents["tenant-a"]; !ok {
		t.Error("policy document deleted before the index write succeeded")
	}
}

func TestFindPolicy_CombinesDocumentAndProviders(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a"}
	gw.documents["tenant-a"] = `{"spaceDuplicationStorePolicies":{"images":[{"srcStoreId":"s3","destStoreId":"glacier"}]}}`
	s := store.NewEntityStore(gw)

	policy, err := s.FindPolicy(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("FindPolicy failed: %v", err)
	}

	if policy.ID != "tenant-a" {
		t.Errorf("policy.ID = %q, want tenant-a", policy.ID)
	}
	if len(policy.StorageProviders) != 2 {
		t.Errorf("got %d providers, want 2", len(policy.StorageProviders))
	}
	if len(policy.Spaces) != 1 || policy.Spaces[0].SpaceID != "images" {
		t.Fatalf("spaces = %+v, want one space named images", policy.Spaces)
	}
	rules := policy.Spaces[0].StorePolicies
	if len(rules) != 1 || rules[0].SourceID != "s3" || rules[0].DestinationID != "glacier" {
		t.Errorf("rules = %+v, want one s3->glacier rule", rules)
	}
}

func TestFindPolicy_CachedAfterFirstLoad(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a"}
	gw.documents["tenant-a"] = "{}"
	s := store.NewEntityStore(gw)

	first, err := s.FindPolicy(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("FindPolicy failed: %v", err)
	}
	loaded := len(gw.ops)

	second, err := s.FindPolicy(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("second FindPolicy failed: %v", err)
	}
	if second != first {
		t.Error("second FindPolicy returned a different record")
	}
	if len(gw.ops) != loaded {
		t.Errorf("cached FindPolicy issued %d extra gateway calls", len(gw.ops)-loaded)
	}
}

func TestFindPolicy_UnknownAccount(t *testing.T) {
	gw := newFakeGateway()
	s := store.NewEntityStore(gw)

	_, err := s.FindPolicy(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindPolicy error = %v, want ErrNotFound", err)
	}
}

func TestEvictPolicy_ForcesReload(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a"}
	gw.documents["tenant-a"] = "{}"
	s := store.NewEntityStore(gw)

	if _, err := s.FindPolicy(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("FindPolicy failed: %v", err)
	}

	gw.documents["tenant-a"] = `{"spaceDuplicationStorePolicies":{"archive":[]}}`
	s.EvictPolicy("tenant-a")

	policy, err := s.FindPolicy(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("FindPolicy after eviction failed: %v", err)
	}
	if len(policy.Spaces) != 1 || policy.Spaces[0].SpaceID != "archive" {
		t.Errorf("reloaded spaces = %+v, want [archive]", policy.Spaces)
	}
}

func TestFindAccount_CachesExistenceCheck(t *testing.T) {
	gw := newFakeGateway()
	gw.accounts = []string{"tenant-a"}
	s := store.NewEntityStore(gw)

	if _, err := s.FindAccount(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	checked := len(gw.ops)

	if _, err := s.FindAccount(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("second FindAccount failed: %v", err)
	}
	if len(gw.ops) != checked {
		t.Errorf("cached FindAccount issued %d extra gateway calls", len(gw.ops)-checked)
	}
}

func TestSavePolicy_ReturnsRenderedDocument(t *testing.T) {
	gw := newFakeGateway()
	s := store.NewEntityStore(gw)

	policy := &domain.Policy{ID: "tenant-a", Spaces: []*domain.Space{}}
	doc, err := s.SavePolicy(context.Background(), policy)
	if err != nil {
		t.Fatalf("SavePolicy failed: %v", err)
	}

	want := `{"spaceDuplicationStorePolicies":{}}`
	if string(doc) != want {
		t.Errorf("rendered document = %s, want %s", doc, want)
	}
	if gw.documents["tenant-a"] != want {
		t.Errorf("persisted document = %s, want %s", gw.documents["tenant-a"], want)
	}
}
