package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"

	"github.com/example/marketplace-api/modules/api"
	"github.com/example/marketplace-api/modules/auth"
	"github.com/example/marketplace-api/modules/cache"
	"github.com/example/marketplace-api/modules/cart"
	"github.com/example/marketplace-api/modules/catalog"
	"github.com/example/marketplace-api/modules/vendor"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Marketplace API ===")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	cacheModule := cache.NewModule()
	authModule := auth.NewModule()
	catalogModule := catalog.NewModule()
	vendorModule := vendor.NewModule()
	cartModule := cart.NewModule()
	apiModule := api.NewModule()

	// Cross-module wiring happens before Start; each module pulls its
	// dependency's services when its own Start runs, so registration
	// order below must match the dependency order.
	catalogModule.SetCacheModule(cacheModule)
	vendorModule.SetCatalogModule(catalogModule)
	cartModule.SetCatalogModule(catalogModule)
	apiModule.SetAuthModule(authModule)
	apiModule.SetVendorModule(vendorModule)
	apiModule.SetCatalogModule(catalogModule)
	apiModule.SetCartModule(cartModule)
	apiModule.SetCacheModule(cacheModule)

	app.Register(cacheModule)
	app.Register(authModule)
	app.Register(catalogModule)
	app.Register(vendorModule)
	app.Register(cartModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("REST API Endpoints (http://localhost:3000):")
	log.Println("")
	log.Println("  Auth:")
	log.Println("  POST   /api/v1/auth/sign-up          - Register a shopper")
	log.Println("  POST   /api/v1/auth/sign-in          - Shopper login")
	log.Println("  POST   /api/v1/auth/vendor/sign-up   - Register a vendor")
	log.Println("  POST   /api/v1/auth/vendor/sign-in   - Vendor login")
	log.Println("  POST   /api/v1/auth/refresh          - Rotate the token pair")
	log.Println("  POST   /api/v1/auth/log-out          - End the session")
	log.Println("  GET    /api/v1/users/me              - Current principal profile")
	log.Println("")
	log.Println("  Vendors:")
	log.Println("  GET    /api/v1/vendors               - Vendor directory")
	log.Println("  GET    /api/v1/vendors/:id           - Vendor profile")
	log.Println("  GET    /api/v1/vendors/:id/stats     - Vendor standing")
	log.Println("  PATCH  /api/v1/vendors/:id           - Update own profile")
	log.Println("")
	log.Println("  Products:")
	log.Println("  GET    /api/v1/products              - Browse the catalog")
	log.Println("  POST   /api/v1/products              - Create (vendor)")
	log.Println("  PATCH  /api/v1/products/:id          - Update (owner)")
	log.Println("  DELETE /api/v1/products/:id          - Delete (owner)")
	log.Println("  PATCH  /api/v1/products/:id/stock    - Adjust stock (owner)")
	log.Println("")
	log.Println("  Cart:")
	log.Println("  GET    /api/v1/cart                  - View cart")
	log.Println("  POST   /api/v1/cart/items            - Add item")
	log.Println("  PATCH  /api/v1/cart/items/:productId - Change quantity")
	log.Println("  DELETE /api/v1/cart/items/:productId - Remove item")
	log.Println("  DELETE /api/v1/cart                  - Clear cart")
	log.Println("  POST   /api/v1/cart/validate         - Stock pre-check")
	log.Println("")
	log.Println("  GET    /health                       - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
