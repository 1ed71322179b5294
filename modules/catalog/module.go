package catalog

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/marketplace-api/modules/cache"
)

// Module provides the product catalog.
type Module struct {
	db          *gorm.DB
	repo        *Repository
	service     *Service
	cacheModule *cache.Module
	dbPath      string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new catalog module.
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
	return "catalog"
}

// SetCacheModule sets the cache dependency. The cache module must be
// registered before this one so its Start has already run.
func (m *Module) SetCacheModule(cm *cache.Module) {
	m.cacheModule = cm
}

// Start initializes the database and creates the service.
func (m *Module) Start(_ context.Context) error {
	if m.cacheModule == nil || m.cacheModule.Cache() == nil {
		return fmt.Errorf("catalog cache dependency not set")
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
	m.repo = NewRepository(db)

	if err := m.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewService(m.repo, m.cacheModule.Cache())
	log.Printf("[catalog] Module started (database: %s)", m.dbPath)
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
	log.Println("[catalog] Module stopped")
	return nil
}

// Service returns the catalog service.
func (m *Module) Service() *Service {
	return m.service
}
