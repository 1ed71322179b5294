package cart

import (
	"time"

	"github.com/example/marketplace-api/modules/catalog"
)

// AddItemInput adds a product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemInput changes the quantity of a cart item. Zero removes it.
type UpdateItemInput struct {
	Quantity int `json:"quantity"`
}

// View is the populated cart returned to callers.
type View struct {
	ID          string     `json:"id"`
	Items       []ItemView `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ItemView is one cart entry with its product populated.
type ItemView struct {
	Product  *catalog.Product `json:"product"`
	Quantity int              `json:"quantity"`
	Price    float64          `json:"price"`
}
