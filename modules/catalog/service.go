package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/example/marketplace-api/modules/cache"
)

// ErrNotOwner is returned when a vendor mutates a product it does not own.
var ErrNotOwner = errors.New("product belongs to another vendor")

// Service provides catalog operations with a Redis cache-aside layer.
// Reads collapse through singleflight so a cold key hits the database
// once; every mutation invalidates the affected keys.
type Service struct {
	repo  *Repository
	cache *cache.Cache
	group singleflight.Group
}

// NewService creates a catalog service.
func NewService(repo *Repository, c *cache.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: c,
	}
}

// Create adds a product to the vendor's catalog.
func (s *Service) Create(ctx context.Context, vendorID string, in CreateProductInput) (*Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("price must be non-negative")
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("stock must be non-negative")
	}

	product := &Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       roundPrice(in.Price),
		Stock:       in.Stock,
		VendorID:    vendorID,
		Categories:  toJSONArray(in.Categories),
		Images:      toJSONArray(in.Images),
		IsActive:    true,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}

	s.invalidateLists(ctx)
	return product, nil
}

// Get retrieves a product, serving repeated reads from the cache.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	key := "product:" + id

	var cached Product
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[catalog] cache read failed: %v", err)
	}
	if hit {
		return &cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		product, err := s.repo.FindByID(id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, product); err != nil {
			log.Printf("[catalog] cache write failed: %v", err)
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// List retrieves one page of products matching the query.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	key := listKey(q)

	var cached Page
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[catalog] cache read failed: %v", err)
	}
	if hit {
		return &cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		page, err := s.list(q)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, page); err != nil {
			log.Printf("[catalog] cache write failed: %v", err)
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

func (s *Service) list(q Query) (*Page, error) {
	products, total, err := s.repo.Find(q)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	return &Page{
		Items:      products,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// Update applies a partial update to a product the vendor owns.
func (s *Service) Update(ctx context.Context, id, vendorID string, in UpdateProductInput) (*Product, error) {
	product, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if product.VendorID != vendorID {
		return nil, ErrNotOwner
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, fmt.Errorf("price must be non-negative")
		}
		product.Price = roundPrice(*in.Price)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, fmt.Errorf("stock must be non-negative")
		}
		product.Stock = *in.Stock
	}
	if in.Categories != nil {
		product.Categories = toJSONArray(*in.Categories)
	}
	if in.Images != nil {
		product.Images = toJSONArray(*in.Images)
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return product, nil
}

// Delete removes a product the vendor owns.
func (s *Service) Delete(ctx context.Context, id, vendorID string) error {
	product, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if product.VendorID != vendorID {
		return ErrNotOwner
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

// AdjustStock applies a relative stock change on a product the vendor owns.
func (s *Service) AdjustStock(ctx context.Context, id, vendorID string, delta int) (*Product, error) {
	product, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if product.VendorID != vendorID {
		return nil, ErrNotOwner
	}

	updated, err := s.repo.AdjustStock(id, delta)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}

// CountByVendor reports how many products a vendor currently lists.
func (s *Service) CountByVendor(_ context.Context, vendorID string) (int64, error) {
	_, total, err := s.repo.Find(Query{VendorID: vendorID, Limit: 1})
	return total, err
}

// invalidate drops the product's cache entry and all cached listings.
func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, "product:"+id); err != nil {
		log.Printf("[catalog] cache invalidation failed: %v", err)
	}
	s.invalidateLists(ctx)
}

func (s *Service) invalidateLists(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, "list:*"); err != nil {
		log.Printf("[catalog] cache invalidation failed: %v", err)
	}
}

// listKey builds a stable cache key from the query fields.
func listKey(q Query) string {
	minPrice, maxPrice := "", ""
	if q.MinPrice != nil {
		minPrice = fmt.Sprintf("%.2f", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		maxPrice = fmt.Sprintf("%.2f", *q.MaxPrice)
	}
	inStock := ""
	if q.InStock != nil {
		inStock = fmt.Sprintf("%t", *q.InStock)
	}
	return fmt.Sprintf("list:%d:%d:%s:%s:%s:%s:%s:%s",
		q.Page, q.Limit, q.Search, q.Category, q.VendorID, minPrice, maxPrice, inStock)
}

// roundPrice normalizes a price to 2 decimal places.
func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

func toJSONArray(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}
