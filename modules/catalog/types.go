package catalog

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Categories  []string `json:"categories"`
	Images      []string `json:"images"`
}

// UpdateProductInput carries a partial product update. Nil fields are
// left untouched.
type UpdateProductInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Stock       *int      `json:"stock"`
	Categories  *[]string `json:"categories"`
	Images      *[]string `json:"images"`
	IsActive    *bool     `json:"is_active"`
}

// Query filters and paginates a catalog listing.
type Query struct {
	Page     int
	Limit    int
	Search   string
	Category string
	VendorID string
	MinPrice *float64
	MaxPrice *float64
	InStock  *bool
}

// Page is one page of catalog results.
type Page struct {
	Items      []Product `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}
