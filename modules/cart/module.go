package cart

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/marketplace-api/modules/catalog"
)

// Module provides the shopping cart.
type Module struct {
	db            *gorm.DB
	service       *Service
	catalogModule *catalog.Module
	dbPath        string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new cart module.
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
	return "cart"
}

// SetCatalogModule sets the catalog dependency. The catalog module
// must be registered before this one.
func (m *Module) SetCatalogModule(cm *catalog.Module) {
	m.catalogModule = cm
}

// Start initializes the database and creates the service.
func (m *Module) Start(_ context.Context) error {
	if m.catalogModule == nil || m.catalogModule.Service() == nil {
		return fmt.Errorf("cart catalog dependency not set")
	}

	// Shared database file; the busy timeout makes concurrent writers
	// wait instead of failing with SQLITE_BUSY.
	db, err := gorm.Open(sqlite.Open(m.dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewService(repo, m.catalogModule.Service())
	log.Printf("[cart] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[cart] Module stopped")
	return nil
}

// Service returns the cart service.
func (m *Module) Service() *Service {
	return m.service
}
