package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/marketplace-api/domain/principal"
	"github.com/example/marketplace-api/modules/auth"
)

const (
	// ClaimsContextKey is the key used to store verified claims in the
	// Fiber context.
	ClaimsContextKey = "claims"
	// RefreshTokenContextKey holds the raw refresh token presented on
	// the refresh endpoint.
	RefreshTokenContextKey = "refreshToken"
)

// AccessTokenMiddleware verifies the Bearer access token and stores
// its claims for the handler. Verification happens here; handlers and
// guards only ever see already-verified claims.
func AccessTokenMiddleware(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return unauthorized(c, "Authorization header is required. Use: Bearer <token>")
		}

		claims, err := authService.VerifyAccessToken(token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// RefreshTokenMiddleware verifies the refresh token's signature and
// expiry, then hands the claims and the raw token to the handler. The
// rotation check against the stored hash happens in the session
// service.
func RefreshTokenMiddleware(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return unauthorized(c, "Refresh token is required")
		}

		claims, err := authService.VerifyRefreshToken(req.RefreshToken)
		if err != nil {
			return unauthorized(c, "Invalid or expired refresh token")
		}

		c.Locals(ClaimsContextKey, claims)
		c.Locals(RefreshTokenContextKey, req.RefreshToken)
		return c.Next()
	}
}

// VendorGuardMiddleware allows a request only when a vendor record
// exists for the authenticated principal. Runs after the access token
// middleware; a missing principal denies by default.
func VendorGuardMiddleware(guard *auth.VendorGuard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil || !guard.CanActivate(c.UserContext(), claims.PrincipalID) {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: "Vendor access required",
			})
		}
		return c.Next()
	}
}

// RoleGuardMiddleware allows a request only for principals carrying
// the given role claim.
func RoleGuardMiddleware(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil || claims.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: "Insufficient privileges",
			})
		}
		return c.Next()
	}
}

// ClaimsFromContext returns the verified claims stored by the token
// middleware, or nil when the request is unauthenticated.
func ClaimsFromContext(c *fiber.Ctx) *principal.Claims {
	claims, ok := c.Locals(ClaimsContextKey).(*principal.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}
