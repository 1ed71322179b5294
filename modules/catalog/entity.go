package catalog

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product represents a product in the catalog. Categories and Images
// are JSON arrays of strings.
type Product struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Name          string         `gorm:"size:100;not null;index" json:"name"`
	Description   string         `gorm:"size:1000;not null" json:"description"`
	Price         float64        `gorm:"not null" json:"price"`
	Stock         int            `gorm:"not null;default:0" json:"stock"`
	VendorID      string         `gorm:"size:36;not null;index" json:"vendor_id"`
	Categories    datatypes.JSON `json:"categories"`
	Images        datatypes.JSON `json:"images"`
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`
	AverageRating float64        `gorm:"not null;default:0" json:"average_rating"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName returns the table name for the Product entity.
func (Product) TableName() string {
	return "products"
}
