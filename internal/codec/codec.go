// Package codec translates between the normalized policy graph and the flat
// JSON wire document stored in the policy repository. It is pure: no I/O, no
// shared state.
package codec

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/google/uuid"
)

// wirePair is one source->destination rule on the wire.
type wirePair struct {
	SrcStoreID  string `json:"srcStoreId"`
	DestStoreID string `json:"destStoreId"`
}

// wirePolicy is the policy document shape. spaceDuplicationStorePolicies maps
// each configured space name to its ordered rules and is always present.
// defaultStorePolicies is the schema extension for policy-level rules; it is
// omitted when empty so documents without defaults stay byte-compatible with
// the classic schema.
type wirePolicy struct {
	SpacePolicies   map[string][]wirePair `json:"spaceDuplicationStorePolicies"`
	DefaultPolicies []wirePair            `json:"defaultStorePolicies,omitempty"`
}

// SerializePolicy produces the wire document for a policy graph. Spaces with
// zero rules appear with an empty sequence; rule order follows each space's
// insertion order. The ignored flag and the provider cache are in-memory
// state and are never written.
func SerializePolicy(policy *domain.Policy) ([]byte, error) {
	doc := wirePolicy{SpacePolicies: make(map[string][]wirePair, len(policy.Spaces))}

	for _, space := range policy.Spaces {
		pairs := make([]wirePair, 0, len(space.StorePolicies))
		for _, rule := range space.StorePolicies {
			pairs = append(pairs, wirePair{
				SrcStoreID:  rule.SourceID,
				DestStoreID: rule.DestinationID,
			})
		}
		doc.SpacePolicies[space.SpaceID] = pairs
	}

	for _, rule := range policy.DefaultPolicies {
		doc.DefaultPolicies = append(doc.DefaultPolicies, wirePair{
			SrcStoreID:  rule.SourceID,
			DestStoreID: rule.DestinationID,
		})
	}

	return json.Marshal(doc)
}

// DeserializePolicy produces a normalized policy graph from a wire document.
// Every space and rule receives a freshly generated identifier. A document
// with no recognizable space map yields a policy with zero spaces.
func DeserializePolicy(accountID string, doc []byte) (*domain.Policy, error) {
	policy := &domain.Policy{
		ID:     accountID,
		Spaces: []*domain.Space{},
	}

	if len(bytes.TrimSpace(doc)) == 0 {
		return policy, nil
	}

	var wire wirePolicy
	if err := json.Unmarshal(doc, &wire); err != nil {
		return nil, err
	}

	// JSON objects carry no order, so spaces come back sorted by name for a
	// stable listing.
	names := make([]string, 0, len(wire.SpacePolicies))
	for spaceID := range wire.SpacePolicies {
		names = append(names, spaceID)
	}
	sort.Strings(names)

	for _, spaceID := range names {
		pairs := wire.SpacePolicies[spaceID]
		space := &domain.Space{
			ID:            uuid.New().String(),
			SpaceID:       spaceID,
			StorePolicies: []*domain.StorePolicy{},
		}
		for _, pair := range pairs {
			space.StorePolicies = append(space.StorePolicies, &domain.StorePolicy{
				ID:            uuid.New().String(),
				SourceID:      pair.SrcStoreID,
				DestinationID: pair.DestStoreID,
			})
		}
		policy.Spaces = append(policy.Spaces, space)
	}

	for _, pair := range wire.DefaultPolicies {
		policy.DefaultPolicies = append(policy.DefaultPolicies, &domain.StorePolicy{
			ID:            uuid.New().String(),
			SourceID:      pair.SrcStoreID,
			DestinationID: pair.DestStoreID,
		})
	}

	return policy, nil
}
