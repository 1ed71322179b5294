package api

// SignUpRequest registers a shopper account.
type SignUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

// VendorSignUpRequest registers a seller account.
type VendorSignUpRequest struct {
	CompanyName   string  `json:"company_name"`
	BusinessEmail string  `json:"business_email"`
	Password      string  `json:"password"`
	Address       string  `json:"address"`
	Website       string  `json:"website,omitempty"`
	UserID        *string `json:"user_id,omitempty"`
}

// SignInRequest authenticates by email and password.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// SessionResponse carries a token pair plus the sanitized principal.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Principal    any    `json:"principal"`
}

// UserResponse is the sanitized shopper profile.
type UserResponse struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// StockRequest applies a relative stock adjustment.
type StockRequest struct {
	Delta int `json:"delta"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
