package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	password := "correct-horse-battery-staple"
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hash == "" {
		t.Fatal("Hash() returned empty hash")
	}
	if hash == password {
		t.Fatal("Hash() returned the plaintext password")
	}

	if !hasher.Verify(password, hash) {
		t.Error("Verify() = false for correct password")
	}
	if hasher.Verify("wrong-password", hash) {
		t.Error("Verify() = true for wrong password")
	}
}

func TestPasswordHasher_SamePasswordDifferentHashes(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	hash1, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hash2, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt salts each hash, so identical inputs must not collide.
	if hash1 == hash2 {
		t.Error("two hashes of the same password are identical")
	}
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty hash", hash: ""},
		{name: "not a bcrypt hash", hash: "plaintext"},
		{name: "truncated hash", hash: "$2a$10$abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hasher.Verify("password123", tt.hash) {
				t.Error("Verify() = true for malformed hash")
			}
		})
	}
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	hasher := NewPasswordHasher()
	if hasher.cost != DefaultBcryptCost {
		t.Errorf("default cost = %d, want %d", hasher.cost, DefaultBcryptCost)
	}
}
