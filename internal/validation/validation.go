// Package validation provides validation functions for duplication policy
// entities. Rule checks run before any mutation and never touch the network.
package validation

import (
	"fmt"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
)

// isLowerAlpha returns true if the byte is a lowercase ASCII letter.
func isLowerAlpha(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// ValidateSubdomain validates a tenant subdomain. Subdomains are DNS labels:
// they must start with a letter and contain only lowercase letters, digits,
// or hyphens, and must not end with a hyphen.
func ValidateSubdomain(subdomain string) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain must not be empty")
	}
	if len(subdomain) > 63 {
		return fmt.Errorf("subdomain must be at most 63 characters")
	}
	if !isLowerAlpha(subdomain[0]) {
		return fmt.Errorf("subdomain must start with a lowercase letter")
	}
	if subdomain[len(subdomain)-1] == '-' {
		return fmt.Errorf("subdomain must not end with a hyphen")
	}
	for _, b := range []byte(subdomain) {
		if !isLowerAlpha(b) && !isNum(b) && b != '-' {
			return fmt.Errorf("subdomains can only contain lowercase letters, digits, or hyphens")
		}
	}
	return nil
}

// ValidateSpaceName validates a backend space name. Space names must start
// with a lowercase letter or digit and contain only lowercase letters,
// digits, periods, or hyphens.
func ValidateSpaceName(name string) error {
	if name == "" {
		return fmt.Errorf("space name must not be empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("space name must be at most 63 characters")
	}
	if !isLowerAlpha(name[0]) && !isNum(name[0]) {
		return fmt.Errorf("space name must start with a lowercase letter or digit")
	}
	for _, b := range []byte(name) {
		if !isLowerAlpha(b) && !isNum(b) && b != '-' && b != '.' {
			return fmt.Errorf("space names can only contain lowercase letters, digits, periods, or hyphens")
		}
	}
	return nil
}

// ValidateStorePolicy validates a new source->destination rule against the
// collection it would join. A rule may not reference the same provider on
// both ends, and no two rules in one collection may share both endpoints.
func ValidateStorePolicy(existing []*domain.StorePolicy, sourceID, destinationID string) error {
	if sourceID == "" {
		return NewValidationError("srcStoreId", sourceID, "source store is required")
	}
	if destinationID == "" {
		return NewValidationError("destStoreId", destinationID, "destination store is required")
	}
	if sourceID == destinationID {
		return NewValidationError("destStoreId", destinationID,
			"source and destination stores must differ")
	}
	for _, p := range existing {
		if p.SourceID == sourceID && p.DestinationID == destinationID {
			return NewValidationError("destStoreId", destinationID,
				fmt.Sprintf("a rule from %s to %s already exists", sourceID, destinationID))
		}
	}
	return nil
}

// ValidateProviderRefs checks that both rule endpoints reference providers
// known to the policy.
func ValidateProviderRefs(policy *domain.Policy, sourceID, destinationID string) error {
	if !policy.HasProvider(sourceID) {
		return NewValidationError("srcStoreId", sourceID, "unknown storage provider")
	}
	if !policy.HasProvider(destinationID) {
		return NewValidationError("destStoreId", destinationID, "unknown storage provider")
	}
	return nil
}
