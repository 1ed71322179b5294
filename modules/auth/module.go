package auth

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/marketplace-api/domain/principal"
)

// Module provides authentication services: registration, the session
// lifecycle and the vendor ownership guard.
type Module struct {
	db      *gorm.DB
	service *Service
	guard   *VendorGuard
	dbPath  string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new auth Module.
func NewModule() *Module {
	dbPath := os.Getenv("MARKETPLACE_DB_PATH")
	if dbPath == "" {
		dbPath = "marketplace.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start initializes the database, the token issuer and the services.
// Missing signing secrets abort startup; they are not a per-request
// condition.
func (m *Module) Start(_ context.Context) error {
	// Every module opens its own connection to the shared database
	// file; the busy timeout makes concurrent writers wait instead of
	// failing with SQLITE_BUSY.
	db, err := gorm.Open(sqlite.Open(m.dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&principal.User{}, &principal.Vendor{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	config := DefaultTokenConfig()
	config.AccessSecret = os.Getenv("JWT_SECRET_AT")
	config.RefreshSecret = os.Getenv("JWT_SECRET_RT")
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	issuer, err := NewTokenIssuer(config)
	if err != nil {
		return fmt.Errorf("token issuer misconfigured: %w", err)
	}

	users := NewUserRepository(db)
	vendors := NewVendorRepository(db)
	m.service = NewService(users, vendors, NewPasswordHasher(), issuer)
	m.guard = NewVendorGuard(vendors)

	log.Printf("[auth] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// Service returns the auth service for dependent modules.
func (m *Module) Service() *Service {
	return m.service
}

// Guard returns the vendor ownership guard.
func (m *Module) Guard() *VendorGuard {
	return m.guard
}
