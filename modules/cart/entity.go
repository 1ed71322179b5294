package cart

import (
	"time"
)

// Cart is a user's shopping cart. TotalAmount is recomputed by the
// service on every mutation.
type Cart struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"uniqueIndex;size:36;not null"`
	Items       []Item `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	TotalAmount float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for the Cart entity.
func (Cart) TableName() string {
	return "carts"
}

// Item is one product entry in a cart. Price is the unit price at the
// time the item was added.
type Item struct {
	ID        string `gorm:"primaryKey;size:36"`
	CartID    string `gorm:"index;size:36;not null"`
	ProductID string `gorm:"size:36;not null"`
	Quantity  int    `gorm:"not null"`
	Price     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the Item entity.
func (Item) TableName() string {
	return "cart_items"
}
