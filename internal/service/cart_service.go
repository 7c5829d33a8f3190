package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartRepository persists carts by id.
type CartRepository interface {
	LoadCart(ctx context.Context, cartID string) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, cartID string) error
}

// ProductLookup resolves catalog entries.
type ProductLookup interface {
	Get(id string) (models.Product, bool)
}

// CartService applies cart mutations and persists the result
type CartService struct {
	repo    CartRepository
	catalog ProductLookup
	logger  *zap.Logger
}

func NewCartService(repo CartRepository, catalog ProductLookup) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// Get loads the cart; an unknown id yields an empty cart.
func (s *CartService) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	cart, err := s.repo.LoadCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity units of a catalog product. Name, price, image and
// color always come from the catalog.
func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	product, ok := s.catalog.Get(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	cart, err := s.Get(ctx, cartID)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	cart.Add(models.CartItem{
		ID:    product.ID,
		Name:  product.Name,
		Price: product.Price,
		Image: product.PrimaryImage(),
		Color: product.Color,
	}, quantity)

	if err := s.save(ctx, cart); err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	util.CartOperationsTotal.WithLabelValues("add").Inc()
	s.logger.Debug("Cart item added",
		zap.String("cart_id", cartID),
		zap.String("product_id", productID),
		zap.Int("count", cart.Count()))
	return cart, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (*models.Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.UpdateQuantity(productID, quantity)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	util.CartOperationsTotal.WithLabelValues("update").Inc()
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) (*models.Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	cart.Remove(productID)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	util.CartOperationsTotal.WithLabelValues("remove").Inc()
	return cart, nil
}

// Clear empties the cart, typically after an order is confirmed.
func (s *CartService) Clear(ctx context.Context, cartID string) error {
	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	util.CartOperationsTotal.WithLabelValues("clear").Inc()
	return nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) error {
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
