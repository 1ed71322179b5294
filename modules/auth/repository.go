package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/marketplace-api/domain/principal"
)

var (
	// ErrPrincipalNotFound is returned when no principal matches a lookup.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicateIdentity is returned when an email is already registered.
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrStaleRefreshHash is returned when a conditional hash rotation
	// loses the race against a concurrent rotation or logout.
	ErrStaleRefreshHash = errors.New("stored refresh token hash changed")
)

// PrincipalStore is the credential persistence boundary the session
// service operates through. Both principal variants implement it.
type PrincipalStore interface {
	FindByEmail(email string) (*principal.Principal, error)
	FindByID(id string) (*principal.Principal, error)
	// SetRefreshTokenHash unconditionally stores a new refresh token
	// hash, superseding any previous session (sign-up and sign-in).
	SetRefreshTokenHash(id string, hash string) error
	// RotateRefreshTokenHash replaces the stored refresh token hash,
	// but only while it still equals current (nil means "no hash
	// stored"). It fails with ErrStaleRefreshHash otherwise, so two
	// racing refreshes cannot both succeed against one stored hash.
	RotateRefreshTokenHash(id string, current *string, next string) error
	// ClearRefreshTokenHash unconditionally removes the stored hash.
	// Clearing an already-cleared hash is a no-op success.
	ClearRefreshTokenHash(id string) error
}

// Compile-time interface checks.
var _ PrincipalStore = (*UserRepository)(nil)
var _ PrincipalStore = (*VendorRepository)(nil)

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *principal.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// EmailExists checks if a user with the given email exists.
func (r *UserRepository) EmailExists(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&principal.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

// Get retrieves the full user record by ID.
func (r *UserRepository) Get(id string) (*principal.User, error) {
	var user principal.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByEmail finds a user by email and projects it for the session core.
func (r *UserRepository) FindByEmail(email string) (*principal.Principal, error) {
	var user principal.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	p := user.Principal()
	return &p, nil
}

// FindByID finds a user by ID and projects it for the session core.
func (r *UserRepository) FindByID(id string) (*principal.Principal, error) {
	user, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	p := user.Principal()
	return &p, nil
}

// SetRefreshTokenHash unconditionally stores a new hash.
func (r *UserRepository) SetRefreshTokenHash(id string, hash string) error {
	return setHash(r.db, &principal.User{}, id, hash)
}

// RotateRefreshTokenHash conditionally replaces the stored hash.
func (r *UserRepository) RotateRefreshTokenHash(id string, current *string, next string) error {
	return rotateHash(r.db, &principal.User{}, id, current, next)
}

// ClearRefreshTokenHash removes the stored hash.
func (r *UserRepository) ClearRefreshTokenHash(id string) error {
	return clearHash(r.db, &principal.User{}, id)
}

// TouchLastLogin records a successful sign-in time.
func (r *UserRepository) TouchLastLogin(id string) error {
	return r.db.Model(&principal.User{}).Where("id = ?", id).
		Update("last_login", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// VendorRepository handles vendor persistence using GORM.
type VendorRepository struct {
	db *gorm.DB
}

// NewVendorRepository creates a new VendorRepository.
func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// Create creates a new vendor.
func (r *VendorRepository) Create(vendor *principal.Vendor) error {
	if err := r.db.Create(vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// EmailExists checks if a vendor with the given business email exists.
func (r *VendorRepository) EmailExists(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&principal.Vendor{}).Where("business_email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

// Get retrieves the full vendor record by ID.
func (r *VendorRepository) Get(id string) (*principal.Vendor, error) {
	var vendor principal.Vendor
	if err := r.db.First(&vendor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}
	return &vendor, nil
}

// FindByEmail finds a vendor by business email and projects it.
func (r *VendorRepository) FindByEmail(email string) (*principal.Principal, error) {
	var vendor principal.Vendor
	if err := r.db.First(&vendor, "business_email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}
	p := vendor.Principal()
	return &p, nil
}

// FindByID finds a vendor by ID and projects it.
func (r *VendorRepository) FindByID(id string) (*principal.Principal, error) {
	vendor, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	p := vendor.Principal()
	return &p, nil
}

// SetRefreshTokenHash unconditionally stores a new hash.
func (r *VendorRepository) SetRefreshTokenHash(id string, hash string) error {
	return setHash(r.db, &principal.Vendor{}, id, hash)
}

// RotateRefreshTokenHash conditionally replaces the stored hash.
func (r *VendorRepository) RotateRefreshTokenHash(id string, current *string, next string) error {
	return rotateHash(r.db, &principal.Vendor{}, id, current, next)
}

// ClearRefreshTokenHash removes the stored hash.
func (r *VendorRepository) ClearRefreshTokenHash(id string) error {
	return clearHash(r.db, &principal.Vendor{}, id)
}

// ExistsForPrincipal reports whether a vendor record is keyed by the
// given principal id, either directly or through the user back-reference.
func (r *VendorRepository) ExistsForPrincipal(id string) (bool, error) {
	var count int64
	if err := r.db.Model(&principal.Vendor{}).
		Where("id = ? OR user_id = ?", id, id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check vendor existence: %w", err)
	}
	return count > 0, nil
}

// rotateHash performs the conditional single-row hash swap shared by
// both variants. The WHERE clause pins the previously observed value,
// making "verify then write" atomic at the store.
func rotateHash(db *gorm.DB, model any, id string, current *string, next string) error {
	query := db.Model(model)
	if current == nil {
		query = query.Where("id = ? AND refresh_token_hash IS NULL", id)
	} else {
		query = query.Where("id = ? AND refresh_token_hash = ?", id, *current)
	}

	result := query.Update("refresh_token_hash", next)
	if result.Error != nil {
		return fmt.Errorf("failed to rotate refresh token hash: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleRefreshHash
	}
	return nil
}

func setHash(db *gorm.DB, model any, id string, hash string) error {
	result := db.Model(model).Where("id = ?", id).Update("refresh_token_hash", hash)
	if result.Error != nil {
		return fmt.Errorf("failed to set refresh token hash: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

func clearHash(db *gorm.DB, model any, id string) error {
	if err := db.Model(model).Where("id = ?", id).
		Update("refresh_token_hash", nil).Error; err != nil {
		return fmt.Errorf("failed to clear refresh token hash: %w", err)
	}
	return nil
}
