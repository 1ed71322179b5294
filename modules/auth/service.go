package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/example/marketplace-api/domain/principal"
)

var (
	// ErrAccessDenied is returned for every credential failure: unknown
	// email, wrong password, missing or stale refresh token. Callers
	// cannot tell these cases apart.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// SessionService drives the session lifecycle for one principal
// variant: sign-in, refresh and logout against a PrincipalStore. It is
// the sole writer of the stored refresh token hash.
type SessionService struct {
	store  PrincipalStore
	hasher *PasswordHasher
	issuer *TokenIssuer
}

// NewSessionService creates a SessionService over the given store.
func NewSessionService(store PrincipalStore, hasher *PasswordHasher, issuer *TokenIssuer) *SessionService {
	return &SessionService{
		store:  store,
		hasher: hasher,
		issuer: issuer,
	}
}

// SignIn authenticates by email and password and establishes a fresh
// session. The returned principal is sanitized.
func (s *SessionService) SignIn(_ context.Context, email, password string) (*principal.TokenPair, *principal.Principal, error) {
	p, err := s.store.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, nil, ErrAccessDenied
		}
		return nil, nil, fmt.Errorf("failed to find principal: %w", err)
	}

	if !s.hasher.Verify(password, p.PasswordHash) {
		return nil, nil, ErrAccessDenied
	}

	pair, err := s.Establish(p)
	if err != nil {
		return nil, nil, err
	}

	sanitized := *p
	sanitized.PasswordHash = ""
	sanitized.RefreshTokenHash = nil
	return pair, &sanitized, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair,
// rotating the stored hash so the presented token becomes permanently
// unusable. A stale (pre-rotation) token always fails.
func (s *SessionService) Refresh(_ context.Context, id, presented string) (*principal.TokenPair, error) {
	p, err := s.store.FindByID(id)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}

	// No stored hash means never signed in or explicitly logged out.
	if p.RefreshTokenHash == nil {
		return nil, ErrAccessDenied
	}
	if !s.hasher.Verify(tokenDigest(presented), *p.RefreshTokenHash) {
		return nil, ErrAccessDenied
	}

	pair, err := s.issuer.Issue(p.ID, p.Email, p.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	next, err := s.hasher.Hash(tokenDigest(pair.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	// Conditional swap against the hash verified above. A concurrent
	// refresh that rotated first makes this one lose.
	if err := s.store.RotateRefreshTokenHash(p.ID, p.RefreshTokenHash, next); err != nil {
		if errors.Is(err, ErrStaleRefreshHash) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	return pair, nil
}

// Logout invalidates the current session by clearing the stored
// refresh token hash. Logging out an already-logged-out principal is a
// no-op success.
func (s *SessionService) Logout(_ context.Context, id string) error {
	return s.store.ClearRefreshTokenHash(id)
}

// Establish issues a token pair for the principal and stores the hash
// of the new refresh token, superseding whatever was stored before.
func (s *SessionService) Establish(p *principal.Principal) (*principal.TokenPair, error) {
	pair, err := s.issuer.Issue(p.ID, p.Email, p.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	hash, err := s.hasher.Hash(tokenDigest(pair.RefreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	if err := s.store.SetRefreshTokenHash(p.ID, hash); err != nil {
		return nil, err
	}

	return pair, nil
}

// tokenDigest pre-hashes a token with SHA-256 so the bcrypt input
// stays under its 72-byte limit regardless of token length.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Service is the authentication facade: registration for both
// principal variants plus role-dispatched session operations.
type Service struct {
	users          *UserRepository
	vendors        *VendorRepository
	userSessions   *SessionService
	vendorSessions *SessionService
	hasher         *PasswordHasher
	issuer         *TokenIssuer
}

// NewService creates the auth service over both repositories.
func NewService(users *UserRepository, vendors *VendorRepository, hasher *PasswordHasher, issuer *TokenIssuer) *Service {
	return &Service{
		users:          users,
		vendors:        vendors,
		userSessions:   NewSessionService(users, hasher, issuer),
		vendorSessions: NewSessionService(vendors, hasher, issuer),
		hasher:         hasher,
		issuer:         issuer,
	}
}

// RegisterUser creates a shopper account and establishes its first
// session. The password is hashed here, explicitly, before anything is
// persisted.
func (s *Service) RegisterUser(_ context.Context, in RegisterUserInput) (*principal.TokenPair, *principal.User, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, nil, err
	}

	exists, err := s.users.EmailExists(in.Email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrDuplicateIdentity
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = principal.RoleUser
	}

	user := &principal.User{
		ID:           uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Role:         role,
		LastLogin:    time.Now(),
	}
	if err := s.users.Create(user); err != nil {
		return nil, nil, err
	}

	p := user.Principal()
	pair, err := s.userSessions.Establish(&p)
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	user.RefreshTokenHash = nil
	return pair, user, nil
}

// RegisterVendor creates a seller account and establishes its first session.
func (s *Service) RegisterVendor(_ context.Context, in RegisterVendorInput) (*principal.TokenPair, *principal.Vendor, error) {
	if err := validateCredentials(in.BusinessEmail, in.Password); err != nil {
		return nil, nil, err
	}

	exists, err := s.vendors.EmailExists(in.BusinessEmail)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrDuplicateIdentity
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	vendor := &principal.Vendor{
		ID:            uuid.New().String(),
		CompanyName:   in.CompanyName,
		BusinessEmail: in.BusinessEmail,
		PasswordHash:  passwordHash,
		Address:       in.Address,
		Website:       in.Website,
		UserID:        in.UserID,
	}
	if err := s.vendors.Create(vendor); err != nil {
		return nil, nil, err
	}

	p := vendor.Principal()
	pair, err := s.vendorSessions.Establish(&p)
	if err != nil {
		return nil, nil, err
	}

	vendor.PasswordHash = ""
	vendor.RefreshTokenHash = nil
	return pair, vendor, nil
}

// SignInUser authenticates a shopper.
func (s *Service) SignInUser(ctx context.Context, email, password string) (*principal.TokenPair, *principal.Principal, error) {
	pair, p, err := s.userSessions.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.TouchLastLogin(p.ID); err != nil {
		return nil, nil, err
	}
	return pair, p, nil
}

// SignInVendor authenticates a seller.
func (s *Service) SignInVendor(ctx context.Context, email, password string) (*principal.TokenPair, *principal.Principal, error) {
	return s.vendorSessions.SignIn(ctx, email, password)
}

// Refresh rotates the session for the given principal, dispatching on
// the role carried by the verified refresh token claims.
func (s *Service) Refresh(ctx context.Context, role, id, presented string) (*principal.TokenPair, error) {
	return s.sessions(role).Refresh(ctx, id, presented)
}

// Logout ends the session for the given principal.
func (s *Service) Logout(ctx context.Context, role, id string) error {
	return s.sessions(role).Logout(ctx, id)
}

// VerifyAccessToken validates an access token for the HTTP middleware.
func (s *Service) VerifyAccessToken(token string) (*principal.Claims, error) {
	claims, err := s.issuer.VerifyAccess(token)
	if err != nil {
		return nil, err
	}
	return toClaims(claims), nil
}

// VerifyRefreshToken validates a refresh token signature and expiry.
// The rotation check against the stored hash happens in Refresh.
func (s *Service) VerifyRefreshToken(token string) (*principal.Claims, error) {
	claims, err := s.issuer.VerifyRefresh(token)
	if err != nil {
		return nil, err
	}
	return toClaims(claims), nil
}

// GetUser retrieves a sanitized user record.
func (s *Service) GetUser(id string) (*principal.User, error) {
	user, err := s.users.Get(id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	user.RefreshTokenHash = nil
	return user, nil
}

// GetVendor retrieves a sanitized vendor record.
func (s *Service) GetVendor(id string) (*principal.Vendor, error) {
	vendor, err := s.vendors.Get(id)
	if err != nil {
		return nil, err
	}
	vendor.PasswordHash = ""
	vendor.RefreshTokenHash = nil
	return vendor, nil
}

// sessions picks the session service for a role. Any role other than
// vendor maps to the user store; roles are open strings.
func (s *Service) sessions(role string) *SessionService {
	if role == principal.RoleVendor {
		return s.vendorSessions
	}
	return s.userSessions
}

func toClaims(claims *TokenClaims) *principal.Claims {
	return &principal.Claims{
		PrincipalID: claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
	}
}

// validateCredentials applies the registration-time checks shared by
// both variants.
func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
