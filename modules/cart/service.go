package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/marketplace-api/modules/catalog"
)

// ErrInsufficientStock is returned when the requested quantity exceeds
// the product's available stock.
var ErrInsufficientStock = errors.New("not enough stock available")

// Service provides cart operations. Product lookups and stock checks
// go through the catalog service.
type Service struct {
	repo    *Repository
	catalog *catalog.Service
}

// NewService creates a cart service.
func NewService(repo *Repository, catalogService *catalog.Service) *Service {
	return &Service{
		repo:    repo,
		catalog: catalogService,
	}
}

// Get returns the user's populated cart. A user without a cart gets an
// empty view.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	cart, err := s.repo.FindByUser(userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return &View{Items: []ItemView{}}, nil
		}
		return nil, err
	}
	return s.populate(ctx, cart)
}

// AddItem puts a product into the cart, merging quantities when the
// product is already there. The unit price is captured at add time.
func (s *Service) AddItem(ctx context.Context, userID string, in AddItemInput) (*View, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}

	product, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	item := findItem(cart, in.ProductID)
	quantity := in.Quantity
	if item != nil {
		quantity += item.Quantity
	}
	if product.Stock < quantity {
		return nil, ErrInsufficientStock
	}

	if item != nil {
		item.Quantity = quantity
	} else {
		item = &Item{
			ID:        uuid.New().String(),
			CartID:    cart.ID,
			ProductID: in.ProductID,
			Quantity:  quantity,
			Price:     product.Price,
		}
		cart.Items = append(cart.Items, *item)
	}
	if err := s.repo.SaveItem(item); err != nil {
		return nil, err
	}

	return s.refresh(ctx, userID)
}

// UpdateItem sets the quantity of a cart entry. Quantity zero removes it.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, in UpdateItemInput) (*View, error) {
	if in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must be non-negative")
	}

	cart, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	item := findItem(cart, productID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	if in.Quantity == 0 {
		if err := s.repo.DeleteItem(cart.ID, productID); err != nil {
			return nil, err
		}
		return s.refresh(ctx, userID)
	}

	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < in.Quantity {
		return nil, ErrInsufficientStock
	}

	item.Quantity = in.Quantity
	if err := s.repo.SaveItem(item); err != nil {
		return nil, err
	}

	return s.refresh(ctx, userID)
}

// RemoveItem drops a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*View, error) {
	cart, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteItem(cart.ID, productID); err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID)
}

// Clear empties the cart. Clearing a missing or empty cart succeeds.
func (s *Service) Clear(_ context.Context, userID string) error {
	cart, err := s.repo.FindByUser(userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.ClearItems(cart.ID); err != nil {
		return err
	}
	return s.repo.UpdateTotal(cart.ID, 0)
}

// Validate re-checks stock for every cart item ahead of checkout.
func (s *Service) Validate(ctx context.Context, userID string) error {
	cart, err := s.repo.FindByUser(userID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return ErrCartNotFound
	}

	for _, item := range cart.Items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}
	}
	return nil
}

// refresh recomputes the stored total and returns the populated view.
func (s *Service) refresh(ctx context.Context, userID string) (*View, error) {
	cart, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, item := range cart.Items {
		total += item.Price * float64(item.Quantity)
	}
	if err := s.repo.UpdateTotal(cart.ID, total); err != nil {
		return nil, err
	}
	cart.TotalAmount = total
	cart.UpdatedAt = time.Now()

	return s.populate(ctx, cart)
}

// populate resolves each item's product through the catalog. Items
// whose product was withdrawn are deleted from the cart, and the
// stored total is recomputed so it never counts invisible rows.
func (s *Service) populate(ctx context.Context, cart *Cart) (*View, error) {
	view := &View{
		ID:        cart.ID,
		Items:     make([]ItemView, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	var total float64
	dropped := false
	for _, item := range cart.Items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				if err := s.repo.DeleteItem(cart.ID, item.ProductID); err != nil && !errors.Is(err, ErrItemNotFound) {
					return nil, err
				}
				dropped = true
				continue
			}
			return nil, err
		}
		total += item.Price * float64(item.Quantity)
		view.Items = append(view.Items, ItemView{
			Product:  product,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	if dropped {
		if err := s.repo.UpdateTotal(cart.ID, total); err != nil {
			return nil, err
		}
	}
	view.TotalAmount = total
	return view, nil
}

func findItem(cart *Cart, productID string) *Item {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}
