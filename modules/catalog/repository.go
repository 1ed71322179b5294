package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a product is not found.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a stock adjustment would
	// drive the stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repository provides access to product storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new product repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the products table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Product{})
}

// Create saves a new product to the database.
func (r *Repository) Create(product *Product) error {
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID retrieves a product by its ID.
func (r *Repository) FindByID(id string) (*Product, error) {
	var product Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

// Find retrieves one page of products matching the query, along with
// the total match count.
func (r *Repository) Find(q Query) ([]Product, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	scope := r.filter(q)

	var total int64
	if err := scope.Model(&Product{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	if err := scope.Offset((page - 1) * limit).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}
	return products, total, nil
}

// filter translates a Query into a gorm scope.
func (r *Repository) filter(q Query) *gorm.DB {
	scope := r.db.Session(&gorm.Session{})

	if q.Search != "" {
		like := "%" + q.Search + "%"
		scope = scope.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if q.Category != "" {
		// Categories is a JSON array of strings; match the quoted element.
		scope = scope.Where("categories LIKE ?", `%"`+q.Category+`"%`)
	}
	if q.VendorID != "" {
		scope = scope.Where("vendor_id = ?", q.VendorID)
	}
	if q.MinPrice != nil {
		scope = scope.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		scope = scope.Where("price <= ?", *q.MaxPrice)
	}
	if q.InStock != nil {
		if *q.InStock {
			scope = scope.Where("stock > 0")
		} else {
			scope = scope.Where("stock = 0")
		}
	}
	return scope
}

// Update persists the given product row. Columns are selected
// explicitly so zero values (stock 0, is_active false, an emptied
// description) are written rather than skipped.
func (r *Repository) Update(product *Product) error {
	result := r.db.Model(&Product{}).Where("id = ?", product.ID).
		Select("name", "description", "price", "stock", "categories", "images", "is_active").
		Updates(product)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a product by ID (soft delete).
func (r *Repository) Delete(id string) error {
	result := r.db.Delete(&Product{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a relative stock change as a single conditional
// update, so two concurrent adjustments cannot oversell.
func (r *Repository) AdjustStock(id string, delta int) (*Product, error) {
	result := r.db.Model(&Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing product from an oversell.
		if _, err := r.FindByID(id); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}
	return r.FindByID(id)
}
