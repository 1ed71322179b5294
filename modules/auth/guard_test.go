package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/example/marketplace-api/domain/principal"
)

func TestVendorGuard_CanActivate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVendorRepository(db)
	guard := NewVendorGuard(repo)

	userID := uuid.New().String()
	vendor := &principal.Vendor{
		ID:            uuid.New().String(),
		CompanyName:   "Acme Corp",
		BusinessEmail: "sales@acme.example.com",
		PasswordHash:  "hash",
		UserID:        &userID,
	}
	if err := repo.Create(vendor); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name        string
		principalID string
		want        bool
	}{
		{
			name:        "vendor id",
			principalID: vendor.ID,
			want:        true,
		},
		{
			name:        "linked user id",
			principalID: userID,
			want:        true,
		},
		{
			name:        "plain shopper",
			principalID: uuid.New().String(),
			want:        false,
		},
		{
			name:        "empty principal id",
			principalID: "",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guard.CanActivate(context.Background(), tt.principalID)
			if got != tt.want {
				t.Errorf("CanActivate(%q) = %v, want %v", tt.principalID, got, tt.want)
			}
		})
	}
}
