package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrCartNotFound is returned when a user has no cart yet.
	ErrCartNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a product is not in the cart.
	ErrItemNotFound = errors.New("item not found in cart")
)

// Repository provides access to cart storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new cart repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the cart tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Cart{}, &Item{})
}

// FindByUser retrieves a user's cart with its items.
func (r *Repository) FindByUser(userID string) (*Cart, error) {
	var cart Cart
	if err := r.db.Preload("Items").First(&cart, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return &cart, nil
}

// GetOrCreate retrieves a user's cart, creating an empty one if needed.
func (r *Repository) GetOrCreate(userID string) (*Cart, error) {
	cart, err := r.FindByUser(userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	cart = &Cart{
		ID:     uuid.New().String(),
		UserID: userID,
	}
	if err := r.db.Create(cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// SaveItem inserts or updates one cart item row.
func (r *Repository) SaveItem(item *Item) error {
	if err := r.db.Save(item).Error; err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

// DeleteItem removes one product's entry from the cart.
func (r *Repository) DeleteItem(cartID, productID string) error {
	result := r.db.Delete(&Item{}, "cart_id = ? AND product_id = ?", cartID, productID)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ClearItems removes every item from the cart. Clearing an empty cart
// is a no-op success.
func (r *Repository) ClearItems(cartID string) error {
	if err := r.db.Delete(&Item{}, "cart_id = ?", cartID).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// UpdateTotal persists the recomputed cart total.
func (r *Repository) UpdateTotal(cartID string, total float64) error {
	if err := r.db.Model(&Cart{}).Where("id = ?", cartID).
		Update("total_amount", total).Error; err != nil {
		return fmt.Errorf("failed to update cart total: %w", err)
	}
	return nil
}
