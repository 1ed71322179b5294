package api

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/marketplace-api/domain/principal"
	"github.com/example/marketplace-api/middleware/ratelimit"
	"github.com/example/marketplace-api/modules/auth"
	"github.com/example/marketplace-api/modules/cache"
	"github.com/example/marketplace-api/modules/cart"
	"github.com/example/marketplace-api/modules/catalog"
	"github.com/example/marketplace-api/modules/vendor"
)

// Module is the HTTP API module. It terminates HTTP, delegates to the
// domain modules, and owns nothing else.
type Module struct {
	app  *fiber.App
	port string

	authModule    *auth.Module
	vendorModule  *vendor.Module
	catalogModule *catalog.Module
	cartModule    *cart.Module
	cacheModule   *cache.Module
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new API module.
func NewModule() *Module {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "3000"
	}
	return &Module{port: port}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// SetAuthModule wires the auth module. Must be called before Start.
func (m *Module) SetAuthModule(am *auth.Module) { m.authModule = am }

// SetVendorModule wires the vendor module. Must be called before Start.
func (m *Module) SetVendorModule(vm *vendor.Module) { m.vendorModule = vm }

// SetCatalogModule wires the catalog module. Must be called before Start.
func (m *Module) SetCatalogModule(cm *catalog.Module) { m.catalogModule = cm }

// SetCartModule wires the cart module. Must be called before Start.
func (m *Module) SetCartModule(cm *cart.Module) { m.cartModule = cm }

// SetCacheModule wires the cache module, whose Redis client backs the
// rate limiter. Must be called before Start.
func (m *Module) SetCacheModule(cm *cache.Module) { m.cacheModule = cm }

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.authModule == nil || m.vendorModule == nil || m.catalogModule == nil || m.cartModule == nil {
		return fmt.Errorf("api module dependencies not set")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	m.app.Use(cors.New())

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on :%s", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.port,
		},
	}
}

// setupRoutes configures all API routes.
func (m *Module) setupRoutes() {
	authService := m.authModule.Service()
	guard := m.authModule.Guard()
	handlers := NewHandlers(authService, m.vendorModule.Service(), m.catalogModule.Service(), m.cartModule.Service())

	m.app.Get("/health", m.healthHandler)

	v1 := m.app.Group("/api/v1")

	// Credential endpoints are rate limited per client IP when Redis
	// is available.
	credentialLimiter := m.credentialLimiter()

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/sign-up", credentialLimiter, handlers.SignUp)
	authRoutes.Post("/sign-in", credentialLimiter, handlers.SignIn)
	authRoutes.Post("/vendor/sign-up", credentialLimiter, handlers.VendorSignUp)
	authRoutes.Post("/vendor/sign-in", credentialLimiter, handlers.VendorSignIn)
	authRoutes.Post("/refresh", RefreshTokenMiddleware(authService), handlers.Refresh)
	authRoutes.Post("/log-out", AccessTokenMiddleware(authService), handlers.Logout)

	v1.Get("/users/me", AccessTokenMiddleware(authService), handlers.Me)

	vendors := v1.Group("/vendors")
	vendors.Get("/", handlers.ListVendors)
	vendors.Get("/:id", handlers.GetVendor)
	vendors.Get("/:id/stats", handlers.GetVendorStats)
	vendors.Patch("/:id", AccessTokenMiddleware(authService), VendorGuardMiddleware(guard), handlers.UpdateVendor)
	vendors.Post("/:id/verify", AccessTokenMiddleware(authService), RoleGuardMiddleware(principal.RoleAdmin), handlers.VerifyVendor)

	products := v1.Group("/products")
	products.Get("/", handlers.ListProducts)
	products.Get("/:id", handlers.GetProduct)
	products.Post("/", AccessTokenMiddleware(authService), VendorGuardMiddleware(guard), handlers.CreateProduct)
	products.Patch("/:id", AccessTokenMiddleware(authService), VendorGuardMiddleware(guard), handlers.UpdateProduct)
	products.Delete("/:id", AccessTokenMiddleware(authService), VendorGuardMiddleware(guard), handlers.DeleteProduct)
	products.Patch("/:id/stock", AccessTokenMiddleware(authService), VendorGuardMiddleware(guard), handlers.AdjustStock)

	carts := v1.Group("/cart", AccessTokenMiddleware(authService))
	carts.Get("/", handlers.GetCart)
	carts.Post("/items", handlers.AddCartItem)
	carts.Patch("/items/:productId", handlers.UpdateCartItem)
	carts.Delete("/items/:productId", handlers.RemoveCartItem)
	carts.Delete("/", handlers.ClearCart)
	carts.Post("/validate", handlers.ValidateCart)
}

// healthHandler fans in the health of every module that reports one.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	checks := map[string]mono.HealthCheckableModule{}
	if m.authModule != nil {
		checks["auth"] = m.authModule
	}
	if m.cacheModule != nil {
		checks["cache"] = m.cacheModule
	}

	healthy := true
	modules := fiber.Map{}
	for name, module := range checks {
		status := module.Health(c.UserContext())
		if !status.Healthy {
			healthy = false
		}
		modules[name] = status
	}

	overall := "healthy"
	code := fiber.StatusOK
	if !healthy {
		overall = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  overall,
		"modules": modules,
	})
}

// credentialLimiter builds the rate limiting middleware for sign-up
// and sign-in routes. Without a cache module the limiter degrades to
// a pass-through.
func (m *Module) credentialLimiter() fiber.Handler {
	if m.cacheModule == nil || m.cacheModule.Client() == nil {
		log.Println("[api] Rate limiting disabled, no Redis client")
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	cfg := ratelimit.DefaultConfig()
	cfg.KeyPrefix = "ratelimit:auth:"
	return ratelimit.New(m.cacheModule.Client(), cfg)
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
