package validation

import (
	"testing"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
)

func TestValidateSubdomain(t *testing.T) {
	tests := []struct {
		name      string
		subdomain string
		wantErr   bool
	}{
		{"valid simple subdomain", "tenant", false},
		{"valid subdomain with digits", "tenant1", false},
		{"valid subdomain with hyphen", "my-tenant", false},
		{"empty", "", true},
		{"starts with digit", "1tenant", true},
		{"starts with hyphen", "-tenant", true},
		{"ends with hyphen", "tenant-", true},
		{"uppercase", "Tenant", true},
		{"contains dot", "my.tenant", true},
		{"contains underscore", "my_tenant", true},
		{"contains space", "my tenant", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubdomain(tt.subdomain)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSubdomain(%q) error = %v, wantErr %v", tt.subdomain, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSpaceName(t *testing.T) {
	tests := []struct {
		name    string
		space   string
		wantErr bool
	}{
		{"valid simple name", "images", false},
		{"valid name with digits", "images2024", false},
		{"valid name with hyphen", "raw-images", false},
		{"valid name with period", "images.archive", false},
		{"valid name starting with digit", "2024-images", false},
		{"empty", "", true},
		{"starts with hyphen", "-images", true},
		{"uppercase", "Images", true},
		{"contains underscore", "raw_images", true},
		{"contains space", "raw images", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpaceName(tt.space)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpaceName(%q) error = %v, wantErr %v", tt.space, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStorePolicy(t *testing.T) {
	existing := []*domain.StorePolicy{
		{ID: "r1", SourceID: "s3", DestinationID: "glacier"},
	}

	tests := []struct {
		name    string
		src     string
		dest    string
		wantErr bool
	}{
		{"valid new pair", "s3", "sdsc", false},
		{"valid reversed pair", "glacier", "s3", false},
		{"empty source", "", "glacier", true},
		{"empty destination", "s3", "", true},
		{"self referential", "s3", "s3", true},
		{"duplicate pair", "s3", "glacier", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStorePolicy(existing, tt.src, tt.dest)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStorePolicy(%q, %q) error = %v, wantErr %v", tt.src, tt.dest, err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*ValidationError); !ok {
					t.Errorf("ValidateStorePolicy(%q, %q) returned %T, want *ValidationError", tt.src, tt.dest, err)
				}
			}
		})
	}

	// A self-referential pair is rejected even against an empty collection.
	if err := ValidateStorePolicy(nil, "s3", "s3"); err == nil {
		t.Error("ValidateStorePolicy with empty collection accepted a self-referential rule")
	}
}

func TestValidateProviderRefs(t *testing.T) {
	policy := &domain.Policy{
		ID: "tenant",
		StorageProviders: []domain.StorageProvider{
			{ID: "s3", Type: "AMAZON_S3"},
			{ID: "glacier", Type: "AMAZON_GLACIER"},
		},
	}

	if err := ValidateProviderRefs(policy, "s3", "glacier"); err != nil {
		t.Errorf("ValidateProviderRefs with known providers returned %v", err)
	}
	if err := ValidateProviderRefs(policy, "s3", "azure"); err == nil {
		t.Error("ValidateProviderRefs accepted an unknown destination provider")
	}
	if err := ValidateProviderRefs(policy, "azure", "s3"); err == nil {
		t.Error("ValidateProviderRefs accepted an unknown source provider")
	}
}
