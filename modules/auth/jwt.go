package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/example/marketplace-api/domain/principal"
)

var (
	// ErrInvalidToken is returned when a token fails verification for
	// any reason. Expired, tampered and wrongly-signed tokens all
	// surface the same error.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned when a signing secret is not
	// configured. This is a startup-time failure.
	ErrMissingSecret = errors.New("jwt signing secret is not set")
)

// TokenConfig holds token issuer configuration. The access and refresh
// secrets must differ so a refresh token can never pass as an access
// token and vice versa.
type TokenConfig struct {
	AccessSecret         string
	RefreshSecret        string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// DefaultTokenConfig returns the token lifetimes used in production:
// 15 minute access tokens, 7 day refresh tokens. Secrets always come
// from the environment.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "marketplace-api",
	}
}

// TokenClaims represents the custom claims carried by both token kinds.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the access/refresh token pair.
type TokenIssuer struct {
	config TokenConfig
}

// NewTokenIssuer creates a TokenIssuer. It fails when either secret is
// empty or the two secrets are identical.
func NewTokenIssuer(config TokenConfig) (*TokenIssuer, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if config.AccessSecret == config.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &TokenIssuer{config: config}, nil
}

// Issue signs an access and a refresh token for the principal. The two
// signing operations are independent and run concurrently.
func (i *TokenIssuer) Issue(principalID, email, role string) (*principal.TokenPair, error) {
	var accessToken, refreshToken string

	var g errgroup.Group
	g.Go(func() error {
		var err error
		accessToken, err = i.sign(principalID, email, role, i.config.AccessSecret, i.config.AccessTokenDuration)
		return err
	})
	g.Go(func() error {
		var err error
		refreshToken, err = i.sign(principalID, email, role, i.config.RefreshSecret, i.config.RefreshTokenDuration)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &principal.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(i.config.AccessTokenDuration.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// sign creates a JWT with the given secret and lifetime.
func (i *TokenIssuer) sign(principalID, email, role, secret string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyAccess validates an access token and returns its claims.
func (i *TokenIssuer) VerifyAccess(tokenString string) (*TokenClaims, error) {
	return i.verify(tokenString, i.config.AccessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (i *TokenIssuer) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	return i.verify(tokenString, i.config.RefreshSecret)
}

// verify checks signature and expiry against the given secret. All
// failure modes collapse to ErrInvalidToken.
func (i *TokenIssuer) verify(tokenString, secret string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AccessTokenDuration returns the access token duration in seconds.
func (i *TokenIssuer) AccessTokenDuration() int64 {
	return int64(i.config.AccessTokenDuration.Seconds())
}
