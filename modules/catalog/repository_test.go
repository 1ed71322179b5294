package catalog

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&Product{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedProduct(t *testing.T, repo *Repository, name, vendorID string, price float64, stock int, categories []string) *Product {
	t.Helper()

	product := &Product{
		ID:         uuid.New().String(),
		Name:       name,
		Price:      price,
		Stock:      stock,
		VendorID:   vendorID,
		Categories: toJSONArray(categories),
		Images:     toJSONArray(nil),
		IsActive:   true,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("failed to seed product %q: %v", name, err)
	}
	return product
}

func TestRepository_Find_Filters(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	seedProduct(t, repo, "Mechanical Keyboard", "vendor-1", 89.99, 12, []string{"electronics", "accessories"})
	seedProduct(t, repo, "Wireless Mouse", "vendor-1", 29.99, 0, []string{"electronics"})
	seedProduct(t, repo, "Ceramic Mug", "vendor-2", 12.50, 40, []string{"kitchen"})

	minPrice := 20.0
	maxPrice := 90.0
	inStock := true
	outOfStock := false

	tests := []struct {
		name      string
		query     Query
		wantNames []string
	}{
		{
			name:      "no filters returns everything",
			query:     Query{},
			wantNames: []string{"Mechanical Keyboard", "Wireless Mouse", "Ceramic Mug"},
		},
		{
			name:      "search matches name substring",
			query:     Query{Search: "Mouse"},
			wantNames: []string{"Wireless Mouse"},
		},
		{
			name:      "category filter",
			query:     Query{Category: "kitchen"},
			wantNames: []string{"Ceramic Mug"},
		},
		{
			name:      "vendor filter",
			query:     Query{VendorID: "vendor-2"},
			wantNames: []string{"Ceramic Mug"},
		},
		{
			name:      "price range",
			query:     Query{MinPrice: &minPrice, MaxPrice: &maxPrice},
			wantNames: []string{"Mechanical Keyboard", "Wireless Mouse"},
		},
		{
			name:      "in stock only",
			query:     Query{InStock: &inStock},
			wantNames: []string{"Mechanical Keyboard", "Ceramic Mug"},
		},
		{
			name:      "out of stock only",
			query:     Query{InStock: &outOfStock},
			wantNames: []string{"Wireless Mouse"},
		},
		{
			name:      "combined filters",
			query:     Query{Category: "electronics", VendorID: "vendor-1", InStock: &inStock},
			wantNames: []string{"Mechanical Keyboard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := repo.Find(tt.query)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if total != int64(len(tt.wantNames)) {
				t.Errorf("total = %d, want %d", total, len(tt.wantNames))
			}

			got := make(map[string]bool, len(products))
			for _, p := range products {
				got[p.Name] = true
			}
			for _, name := range tt.wantNames {
				if !got[name] {
					t.Errorf("missing product %q in results", name)
				}
			}
		})
	}
}

func TestRepository_Find_Pagination(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 5; i++ {
		seedProduct(t, repo, "Product", "vendor-1", 10, 1, nil)
	}

	products, total, err := repo.Find(Query{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(products) != 2 {
		t.Errorf("len(products) = %d, want 2", len(products))
	}

	// The last page is short.
	products, _, err = repo.Find(Query{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(products) != 1 {
		t.Errorf("len(products) on last page = %d, want 1", len(products))
	}
}

func TestRepository_Update_ZeroValues(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	product := seedProduct(t, repo, "Mechanical Keyboard", "vendor-1", 89.99, 5, nil)
	product.Description = "Tactile switches"
	if err := repo.Update(product); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Deactivating, zeroing stock and emptying the description must all
	// reach the database.
	product.IsActive = false
	product.Stock = 0
	product.Description = ""
	if err := repo.Update(product); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, err := repo.FindByID(product.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.IsActive {
		t.Error("IsActive = true, want false")
	}
	if stored.Stock != 0 {
		t.Errorf("Stock = %d, want 0", stored.Stock)
	}
	if stored.Description != "" {
		t.Errorf("Description = %q, want empty", stored.Description)
	}
	if stored.Name != "Mechanical Keyboard" {
		t.Errorf("Name = %q, want unchanged", stored.Name)
	}

	missing := &Product{ID: "no-such-id"}
	if err := repo.Update(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing product) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_AdjustStock(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	product := seedProduct(t, repo, "Mechanical Keyboard", "vendor-1", 89.99, 10, nil)

	updated, err := repo.AdjustStock(product.ID, -4)
	if err != nil {
		t.Fatalf("AdjustStock(-4) error = %v", err)
	}
	if updated.Stock != 6 {
		t.Errorf("stock = %d, want 6", updated.Stock)
	}

	updated, err = repo.AdjustStock(product.ID, 2)
	if err != nil {
		t.Fatalf("AdjustStock(+2) error = %v", err)
	}
	if updated.Stock != 8 {
		t.Errorf("stock = %d, want 8", updated.Stock)
	}

	// Draining below zero fails and leaves the stock untouched.
	if _, err := repo.AdjustStock(product.ID, -9); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("AdjustStock(oversell) error = %v, want ErrInsufficientStock", err)
	}
	current, err := repo.FindByID(product.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if current.Stock != 8 {
		t.Errorf("stock after failed adjustment = %d, want 8", current.Stock)
	}

	// Draining to exactly zero is allowed.
	updated, err = repo.AdjustStock(product.ID, -8)
	if err != nil {
		t.Fatalf("AdjustStock(to zero) error = %v", err)
	}
	if updated.Stock != 0 {
		t.Errorf("stock = %d, want 0", updated.Stock)
	}

	if _, err := repo.AdjustStock("no-such-id", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("AdjustStock(missing product) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	product := seedProduct(t, repo, "Mechanical Keyboard", "vendor-1", 89.99, 10, nil)

	if err := repo.Delete(product.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.FindByID(product.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(deleted) error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(product.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrNotFound", err)
	}
}
