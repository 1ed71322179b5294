package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/marketplace-api/domain/principal"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&principal.User{}, &principal.Vendor{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupTestService builds the auth service over an in-memory database.
// Bcrypt runs at minimum cost to keep the suite fast.
func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	issuer, err := NewTokenIssuer(testTokenConfig())
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	service := NewService(
		NewUserRepository(db),
		NewVendorRepository(db),
		NewPasswordHasherWithCost(bcrypt.MinCost),
		issuer,
	)
	return service, db
}

func registerTestUser(t *testing.T, service *Service, email string) (*principal.TokenPair, *principal.User) {
	t.Helper()

	pair, user, err := service.RegisterUser(context.Background(), RegisterUserInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "password123",
	})
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	return pair, user
}

func TestService_RegisterUser(t *testing.T) {
	service, db := setupTestService(t)

	pair, user, err := service.RegisterUser(context.Background(), RegisterUserInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "password123",
	})
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("RegisterUser() returned incomplete token pair")
	}
	if user.Role != principal.RoleUser {
		t.Errorf("user.Role = %q, want %q", user.Role, principal.RoleUser)
	}

	// The returned record must carry no secrets.
	if user.PasswordHash != "" {
		t.Error("returned user carries a password hash")
	}
	if user.RefreshTokenHash != nil {
		t.Error("returned user carries a refresh token hash")
	}

	// The stored record must carry both, and neither in recoverable form.
	var stored principal.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to load stored user: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "password123" {
		t.Error("stored password hash missing or plaintext")
	}
	if stored.RefreshTokenHash == nil {
		t.Fatal("registration did not establish a session hash")
	}
	if *stored.RefreshTokenHash == pair.RefreshToken {
		t.Error("stored refresh token hash is the raw token")
	}
}

func TestService_RegisterUser_DuplicateEmail(t *testing.T) {
	service, _ := setupTestService(t)
	registerTestUser(t, service, "ada@example.com")

	_, _, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Email:    "ada@example.com",
		Password: "different-password",
	})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("RegisterUser(duplicate) error = %v, want ErrDuplicateIdentity", err)
	}
}

func TestService_RegisterUser_Validation(t *testing.T) {
	service, _ := setupTestService(t)

	longPassword := make([]byte, 73)
	for i := range longPassword {
		longPassword[i] = 'a'
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "invalid email",
			email:    "not-an-email",
			password: "password123",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "empty email",
			email:    "",
			password: "password123",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "short password",
			email:    "user@example.com",
			password: "1234567",
			wantErr:  ErrWeakPassword,
		},
		{
			name:     "password over bcrypt limit",
			email:    "user@example.com",
			password: string(longPassword),
			wantErr:  ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.RegisterUser(context.Background(), RegisterUserInput{
				Email:    tt.email,
				Password: tt.password,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterUser() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_SignInUser(t *testing.T) {
	service, _ := setupTestService(t)
	registerTestUser(t, service, "ada@example.com")

	pair, p, err := service.SignInUser(context.Background(), "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("SignInUser() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("SignInUser() returned incomplete token pair")
	}
	if p.PasswordHash != "" || p.RefreshTokenHash != nil {
		t.Error("SignInUser() returned unsanitized principal")
	}
}

func TestService_SignInUser_UniformDenial(t *testing.T) {
	service, _ := setupTestService(t)
	registerTestUser(t, service, "ada@example.com")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
		},
		{
			name:     "wrong password",
			email:    "ada@example.com",
			password: "wrong-password",
		},
		{
			name:     "empty password",
			email:    "ada@example.com",
			password: "",
		},
	}

	// Every credential failure surfaces the exact same error value, so
	// a caller cannot probe which emails are registered.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.SignInUser(context.Background(), tt.email, tt.password)
			if !errors.Is(err, ErrAccessDenied) {
				t.Errorf("SignInUser() error = %v, want ErrAccessDenied", err)
			}
		})
	}
}

func TestService_RefreshRotation(t *testing.T) {
	service, _ := setupTestService(t)
	pair, user := registerTestUser(t, service, "ada@example.com")

	// First refresh succeeds and rotates the stored hash.
	next, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("Refresh() did not issue a new refresh token")
	}

	// The consumed token is permanently dead.
	if _, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, pair.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Refresh(consumed token) error = %v, want ErrAccessDenied", err)
	}

	// The replacement token still works.
	if _, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, next.RefreshToken); err != nil {
		t.Errorf("Refresh(rotated token) error = %v", err)
	}
}

func TestService_ConcurrentRefresh_SingleWinner(t *testing.T) {
	service, _ := setupTestService(t)
	pair, user := registerTestUser(t, service, "ada@example.com")

	// Two refreshes racing on the same stored hash: the conditional
	// rotation lets exactly one through.
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, pair.RefreshToken)
			results <- err
		}()
	}

	var successes, denials int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			successes++
		case errors.Is(err, ErrAccessDenied):
			denials++
		default:
			t.Fatalf("Refresh() unexpected error = %v", err)
		}
	}

	if successes != 1 || denials != 1 {
		t.Errorf("successes = %d, denials = %d, want exactly one of each", successes, denials)
	}
}

func TestService_SignInSupersedesSession(t *testing.T) {
	service, _ := setupTestService(t)
	first, user := registerTestUser(t, service, "ada@example.com")

	// A later sign-in replaces the stored hash, killing the first
	// session's refresh token.
	second, _, err := service.SignInUser(context.Background(), "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("SignInUser() error = %v", err)
	}

	if _, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, first.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Refresh(superseded token) error = %v, want ErrAccessDenied", err)
	}
	if _, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, second.RefreshToken); err != nil {
		t.Errorf("Refresh(current token) error = %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	service, _ := setupTestService(t)
	pair, user := registerTestUser(t, service, "ada@example.com")

	if err := service.Logout(context.Background(), principal.RoleUser, user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	// The refresh token is dead after logout even though its signature
	// and expiry are still valid.
	if _, err := service.Refresh(context.Background(), principal.RoleUser, user.ID, pair.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Refresh(after logout) error = %v, want ErrAccessDenied", err)
	}

	// Logout is idempotent.
	if err := service.Logout(context.Background(), principal.RoleUser, user.ID); err != nil {
		t.Errorf("Logout(again) error = %v", err)
	}
}

func TestService_VendorLifecycle(t *testing.T) {
	service, _ := setupTestService(t)

	pair, vendor, err := service.RegisterVendor(context.Background(), RegisterVendorInput{
		CompanyName:   "Acme Corp",
		BusinessEmail: "sales@acme.example.com",
		Password:      "password123",
		Address:       "1 Acme Way",
	})
	if err != nil {
		t.Fatalf("RegisterVendor() error = %v", err)
	}
	if vendor.PasswordHash != "" || vendor.RefreshTokenHash != nil {
		t.Error("RegisterVendor() returned unsanitized vendor")
	}

	claims, err := service.VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.Role != principal.RoleVendor {
		t.Errorf("claims.Role = %q, want %q", claims.Role, principal.RoleVendor)
	}
	if claims.PrincipalID != vendor.ID {
		t.Errorf("claims.PrincipalID = %q, want %q", claims.PrincipalID, vendor.ID)
	}

	// Refresh dispatches on the role carried by the claims.
	next, err := service.Refresh(context.Background(), claims.Role, vendor.ID, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh(vendor) error = %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("Refresh(vendor) did not rotate the token")
	}

	if _, _, err := service.SignInVendor(context.Background(), "sales@acme.example.com", "password123"); err != nil {
		t.Errorf("SignInVendor() error = %v", err)
	}
	if _, _, err := service.SignInVendor(context.Background(), "sales@acme.example.com", "wrong"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("SignInVendor(wrong password) error = %v, want ErrAccessDenied", err)
	}
}

func TestService_RefreshWrongPrincipalVariant(t *testing.T) {
	service, _ := setupTestService(t)
	pair, user := registerTestUser(t, service, "ada@example.com")

	// A shopper token presented against the vendor store finds no
	// principal and is denied.
	if _, err := service.Refresh(context.Background(), principal.RoleVendor, user.ID, pair.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Refresh(wrong variant) error = %v, want ErrAccessDenied", err)
	}
}

func TestService_VerifyTokens(t *testing.T) {
	service, _ := setupTestService(t)
	pair, user := registerTestUser(t, service, "ada@example.com")

	claims, err := service.VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.PrincipalID != user.ID || claims.Email != "ada@example.com" || claims.Role != principal.RoleUser {
		t.Errorf("unexpected access claims: %+v", claims)
	}

	if _, err := service.VerifyRefreshToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyRefreshToken(access token) error = %v, want ErrInvalidToken", err)
	}
	if _, err := service.VerifyAccessToken(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccessToken(refresh token) error = %v, want ErrInvalidToken", err)
	}
}

func TestService_GetUserSanitized(t *testing.T) {
	service, _ := setupTestService(t)
	_, user := registerTestUser(t, service, "ada@example.com")

	got, err := service.GetUser(user.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.PasswordHash != "" || got.RefreshTokenHash != nil {
		t.Error("GetUser() returned unsanitized record")
	}

	if _, err := service.GetUser("no-such-id"); !errors.Is(err, ErrPrincipalNotFound) {
		t.Errorf("GetUser(unknown) error = %v, want ErrPrincipalNotFound", err)
	}
}

// TestService_SessionLifecycle walks a full session: register, sign in,
// refresh twice, log out, then verify every retired token is dead.
func TestService_SessionLifecycle(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	registered, user := registerTestUser(t, service, "ada@example.com")

	signedIn, _, err := service.SignInUser(ctx, "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("SignInUser() error = %v", err)
	}

	first, err := service.Refresh(ctx, principal.RoleUser, user.ID, signedIn.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	second, err := service.Refresh(ctx, principal.RoleUser, user.ID, first.RefreshToken)
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	if err := service.Logout(ctx, principal.RoleUser, user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	for _, token := range []string{
		registered.RefreshToken,
		signedIn.RefreshToken,
		first.RefreshToken,
		second.RefreshToken,
	} {
		if _, err := service.Refresh(ctx, principal.RoleUser, user.ID, token); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("Refresh(retired token) error = %v, want ErrAccessDenied", err)
		}
	}

	// Signing back in starts a fresh session.
	if _, _, err := service.SignInUser(ctx, "ada@example.com", "password123"); err != nil {
		t.Errorf("SignInUser(after logout) error = %v", err)
	}
}
