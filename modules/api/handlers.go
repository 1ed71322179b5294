package api

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/marketplace-api/domain/principal"
	"github.com/example/marketplace-api/modules/auth"
	"github.com/example/marketplace-api/modules/cart"
	"github.com/example/marketplace-api/modules/catalog"
	"github.com/example/marketplace-api/modules/vendor"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	auth    *auth.Service
	vendors *vendor.Service
	catalog *catalog.Service
	cart    *cart.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authService *auth.Service, vendorService *vendor.Service, catalogService *catalog.Service, cartService *cart.Service) *Handlers {
	return &Handlers{
		auth:    authService,
		vendors: vendorService,
		catalog: catalogService,
		cart:    cartService,
	}
}

// SignUp handles shopper registration.
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	pair, user, err := h.auth.RegisterUser(c.UserContext(), auth.RegisterUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse(pair, toUserResponse(user)))
}

// VendorSignUp handles seller registration.
func (h *Handlers) VendorSignUp(c *fiber.Ctx) error {
	var req VendorSignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.BusinessEmail == "" || req.Password == "" {
		return badRequest(c, "Business email and password are required")
	}

	pair, v, err := h.auth.RegisterVendor(c.UserContext(), auth.RegisterVendorInput{
		CompanyName:   req.CompanyName,
		BusinessEmail: req.BusinessEmail,
		Password:      req.Password,
		Address:       req.Address,
		Website:       req.Website,
		UserID:        req.UserID,
	})
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse(pair, v))
}

// SignIn handles shopper login.
func (h *Handlers) SignIn(c *fiber.Ctx) error {
	return h.signIn(c, h.auth.SignInUser)
}

// VendorSignIn handles seller login.
func (h *Handlers) VendorSignIn(c *fiber.Ctx) error {
	return h.signIn(c, h.auth.SignInVendor)
}

func (h *Handlers) signIn(c *fiber.Ctx, signIn func(ctx context.Context, email, password string) (*principal.TokenPair, *principal.Principal, error)) error {
	var req SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	pair, p, err := signIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(sessionResponse(pair, p))
}

// Refresh exchanges a verified refresh token for a brand-new pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	token, _ := c.Locals(RefreshTokenContextKey).(string)
	if claims == nil || token == "" {
		return forbidden(c)
	}

	pair, err := h.auth.Refresh(c.UserContext(), claims.Role, claims.PrincipalID, token)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokenResponse(pair))
}

// Logout ends the authenticated principal's session.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	if err := h.auth.Logout(c.UserContext(), claims.Role, claims.PrincipalID); err != nil {
		return h.handleError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// Me returns the authenticated principal's profile.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	if claims.Role == principal.RoleVendor {
		v, err := h.auth.GetVendor(claims.PrincipalID)
		if err != nil {
			return h.handleError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(v)
	}

	user, err := h.auth.GetUser(claims.PrincipalID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(user))
}

// ListVendors returns one page of the vendor directory.
func (h *Handlers) ListVendors(c *fiber.Ctx) error {
	page, err := h.vendors.List(c.UserContext(), vendor.Query{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 10),
		Sort:  c.Query("sort", "rating"),
		Order: c.Query("order", "desc"),
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

// GetVendor returns a vendor's public profile.
func (h *Handlers) GetVendor(c *fiber.Ctx) error {
	profile, err := h.vendors.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// GetVendorStats returns a vendor's standing summary.
func (h *Handlers) GetVendorStats(c *fiber.Ctx) error {
	stats, err := h.vendors.GetStats(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// UpdateVendor applies a partial profile update to the caller's own
// vendor record.
func (h *Handlers) UpdateVendor(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil || claims.PrincipalID != c.Params("id") {
		return forbidden(c)
	}

	var req vendor.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	profile, err := h.vendors.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// VerifyVendor marks a vendor as verified. Admin only.
func (h *Handlers) VerifyVendor(c *fiber.Ctx) error {
	profile, err := h.vendors.Verify(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// ListProducts returns one filtered, paginated page of the catalog.
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	query := catalog.Query{
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 10),
		Search:   c.Query("search"),
		Category: c.Query("category"),
		VendorID: c.Query("vendor_id"),
	}
	if raw := c.Query("min_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			query.MinPrice = &v
		}
	}
	if raw := c.Query("max_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			query.MaxPrice = &v
		}
	}
	if raw := c.Query("in_stock"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			query.InStock = &v
		}
	}

	page, err := h.catalog.List(c.UserContext(), query)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

// GetProduct returns one product.
func (h *Handlers) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// CreateProduct adds a product to the authenticated vendor's catalog.
func (h *Handlers) CreateProduct(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	var req catalog.CreateProductInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	product, err := h.catalog.Create(c.UserContext(), claims.PrincipalID, req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateProduct applies a partial update to a product the vendor owns.
func (h *Handlers) UpdateProduct(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	var req catalog.UpdateProductInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	product, err := h.catalog.Update(c.UserContext(), c.Params("id"), claims.PrincipalID, req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// DeleteProduct removes a product the vendor owns.
func (h *Handlers) DeleteProduct(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	if err := h.catalog.Delete(c.UserContext(), c.Params("id"), claims.PrincipalID); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// AdjustStock applies a relative stock change to a product the vendor owns.
func (h *Handlers) AdjustStock(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	var req StockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	product, err := h.catalog.AdjustStock(c.UserContext(), c.Params("id"), claims.PrincipalID, req.Delta)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// GetCart returns the authenticated user's cart.
func (h *Handlers) GetCart(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	view, err := h.cart.Get(c.UserContext(), claims.PrincipalID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// AddCartItem puts a product into the cart.
func (h *Handlers) AddCartItem(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	var req cart.AddItemInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.cart.AddItem(c.UserContext(), claims.PrincipalID, req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// UpdateCartItem changes a cart entry's quantity.
func (h *Handlers) UpdateCartItem(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	var req cart.UpdateItemInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.cart.UpdateItem(c.UserContext(), claims.PrincipalID, c.Params("productId"), req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// RemoveCartItem drops a product from the cart.
func (h *Handlers) RemoveCartItem(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	view, err := h.cart.RemoveItem(c.UserContext(), claims.PrincipalID, c.Params("productId"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// ClearCart empties the cart.
func (h *Handlers) ClearCart(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	if err := h.cart.Clear(c.UserContext(), claims.PrincipalID); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// ValidateCart re-checks stock for every cart item ahead of checkout.
func (h *Handlers) ValidateCart(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return forbidden(c)
	}

	if err := h.cart.Validate(c.UserContext(), claims.PrincipalID); err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"valid": true})
}

// handleError maps service errors to HTTP status codes. Credential
// failures stay deliberately generic.
func (h *Handlers) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "access_denied",
			Message: "Access denied",
		})
	case errors.Is(err, auth.ErrDuplicateIdentity):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "An account with this email already exists",
		})
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		return unauthorized(c, "Invalid or expired token")
	case errors.Is(err, catalog.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Product belongs to another vendor",
		})
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, vendor.ErrNotFound),
		errors.Is(err, auth.ErrPrincipalNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, cart.ErrInsufficientStock):
		return badRequest(c, err.Error())
	default:
		// Log the actual error but don't expose it to the client.
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

func sessionResponse(pair *principal.TokenPair, p any) SessionResponse {
	return SessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    pair.TokenType,
		Principal:    p,
	}
}

func tokenResponse(pair *principal.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    pair.TokenType,
	}
}

func toUserResponse(u *principal.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
		Error:   "access_denied",
		Message: "Access denied",
	})
}
