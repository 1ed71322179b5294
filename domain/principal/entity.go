// Package principal defines the authenticable entities of the
// marketplace: shoppers (User) and sellers (Vendor). Both variants
// carry a password hash and the hash of their current refresh token.
package principal

import "time"

// Role values are open strings; these are the ones the API issues.
const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleVendor = "vendor"
)

// User represents a shopper account.
type User struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	FirstName        string    `gorm:"size:50;not null" json:"first_name"`
	LastName         string    `gorm:"size:50;not null" json:"last_name"`
	Email            string    `gorm:"uniqueIndex;not null;type:text" json:"email"`
	PasswordHash     string    `gorm:"not null;type:text" json:"-"`
	Role             string    `gorm:"size:20;not null;default:user" json:"role"`
	IsVerified       bool      `gorm:"not null;default:false" json:"is_verified"`
	RefreshTokenHash *string   `gorm:"type:text" json:"-"`
	LastLogin        time.Time `json:"last_login"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Vendor represents a seller account. UserID optionally links the
// vendor back to the shopper account that registered it.
type Vendor struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	CompanyName      string    `gorm:"size:100;not null" json:"company_name"`
	BusinessEmail    string    `gorm:"uniqueIndex;not null;type:text" json:"business_email"`
	PasswordHash     string    `gorm:"not null;type:text" json:"-"`
	Address          string    `gorm:"not null;type:text" json:"address"`
	Website          string    `gorm:"type:text" json:"website,omitempty"`
	IsVerified       bool      `gorm:"not null;default:false" json:"is_verified"`
	Rating           float64   `gorm:"not null;default:0" json:"rating"`
	UserID           *string   `gorm:"index;size:36" json:"user_id,omitempty"`
	RefreshTokenHash *string   `gorm:"type:text" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the table name for the Vendor entity.
func (Vendor) TableName() string {
	return "vendors"
}

// Principal is the session core's view of either variant. It is the
// only shape the session service reads or writes credentials through.
type Principal struct {
	ID               string
	Email            string
	Role             string
	PasswordHash     string
	RefreshTokenHash *string
}

// Principal projects the user into the session core's view.
func (u *User) Principal() Principal {
	return Principal{
		ID:               u.ID,
		Email:            u.Email,
		Role:             u.Role,
		PasswordHash:     u.PasswordHash,
		RefreshTokenHash: u.RefreshTokenHash,
	}
}

// Principal projects the vendor into the session core's view.
func (v *Vendor) Principal() Principal {
	return Principal{
		ID:               v.ID,
		Email:            v.BusinessEmail,
		Role:             RoleVendor,
		PasswordHash:     v.PasswordHash,
		RefreshTokenHash: v.RefreshTokenHash,
	}
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims represents verified JWT claims handed to request handlers.
type Claims struct {
	PrincipalID string `json:"principal_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}
