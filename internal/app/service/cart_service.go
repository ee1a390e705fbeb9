package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyoon/shopcart-backend/internal/app/cache"
	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/internal/app/repository"
	"github.com/dyoon/shopcart-backend/pkg/catalog"
	"github.com/dyoon/shopcart-backend/pkg/logger"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrMissingOwner    = errors.New("exactly one of user id or session id is required")
)

// ProductCatalog is the consumed catalog surface. *catalog.Client satisfies
// it; tests plug in a stub.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*catalog.ProductInfo, error)
	CheckInventory(ctx context.Context, productID string, quantity int) (*catalog.InventoryStatus, error)
	ReserveInventory(ctx context.Context, productID string, quantity int) (bool, error)
}

// CartService composes the cart store, cache, inventory ledger and product
// catalog into one business transaction per operation. Caller identity is
// exactly one of userID/sessionID, both opaque strings resolved upstream.
type CartService interface {
	GetCart(ctx context.Context, userID, sessionID string) (*model.Cart, error)
	AddToCart(ctx context.Context, userID, sessionID, productID string, quantity int) (*model.Cart, error)
	UpdateCartItem(ctx context.Context, userID, sessionID, productID string, quantity int) (*model.Cart, error)
	RemoveFromCart(ctx context.Context, userID, sessionID, productID string) (*model.Cart, error)
	TransferCart(ctx context.Context, userID, sessionID string) (*model.Cart, error)
	ClearCart(ctx context.Context, userID, sessionID string) error
}

type cartService struct {
	cartRepo  repository.CartRepository
	cartCache cache.CartCache
	inventory InventoryService
	catalog   ProductCatalog
}

func NewCartService(
	cartRepo repository.CartRepository,
	cartCache cache.CartCache,
	inventory InventoryService,
	productCatalog ProductCatalog,
) CartService {
	return &cartService{
		cartRepo:  cartRepo,
		cartCache: cartCache,
		inventory: inventory,
		catalog:   productCatalog,
	}
}

// GetCart returns the owner's cart, or nil when none exists.
func (s *cartService) GetCart(ctx context.Context, userID, sessionID string) (*model.Cart, error) {
	if err := validateOwner(userID, sessionID); err != nil {
		return nil, err
	}

	cart, err := s.loadCart(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddToCart verifies the product and availability before touching anything,
// then mutates, reserves, persists and refreshes the cache in that order.
func (s *cartService) AddToCart(ctx context.Context, userID, sessionID, productID string, quantity int) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if err := validateOwner(userID, sessionID); err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, model.ErrEmptyProductID
	}
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	cart, err := s.loadCart(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	if cart == nil {
		cart = s.newCartFor(userID, sessionID)
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	if product == nil {
		logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
			"product_id": productID,
		})
		return nil, ErrProductNotFound
	}

	requested := quantity
	if existing := cart.Item(productID); existing != nil {
		requested += existing.Quantity
	}

	if _, err := s.inventory.CheckAvailability(productID, requested); err != nil {
		if errors.Is(err, ErrInventoryNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := cart.AddItem(productID, quantity, product.Price); err != nil {
		return nil, err
	}

	// The in-transaction check inside Reserve is the authoritative one; a
	// concurrent shopper can still win between the read above and here.
	if err := s.inventory.Reserve(cart.ID, productID, requested); err != nil {
		return nil, err
	}

	saved, err := s.cartRepo.Save(cart)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	s.cartCache.SetCart(ctx, saved)

	logger.Info("Item added to cart", map[string]interface{}{
		"cart_id":      saved.ID,
		"product_id":   productID,
		"total_items":  saved.TotalItems(),
		"total_amount": saved.TotalAmount(),
	})
	return saved, nil
}

// UpdateCartItem sets a line's quantity; zero removes the line, and a cart
// left empty is deleted entirely rather than persisted with zero items.
func (s *cartService) UpdateCartItem(ctx context.Context, userID, sessionID, productID string, quantity int) (*model.Cart, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if err := validateOwner(userID, sessionID); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, model.ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveFromCart(ctx, userID, sessionID, productID)
	}

	cart, err := s.loadCart(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if cart.Item(productID) == nil {
		return nil, model.ErrItemNotFound
	}

	if _, err := s.inventory.CheckAvailability(productID, quantity); err != nil {
		if errors.Is(err, ErrInventoryNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := cart.UpdateQuantity(productID, quantity); err != nil {
		return nil, err
	}

	if err := s.inventory.Reserve(cart.ID, productID, quantity); err != nil {
		return nil, err
	}

	saved, err := s.cartRepo.Save(cart)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	s.cartCache.SetCart(ctx, saved)
	return saved, nil
}

// RemoveFromCart drops the line and its reservation. Removing the last item
// deletes the cart: "no cart", not "empty cart".
func (s *cartService) RemoveFromCart(ctx context.Context, userID, sessionID, productID string) (*model.Cart, error) {
	logger.Info("Removing cart item", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"product_id": productID,
	})

	if err := validateOwner(userID, sessionID); err != nil {
		return nil, err
	}

	cart, err := s.loadCart(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("remove from cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	if err := cart.RemoveItem(productID); err != nil {
		return nil, err
	}

	if err := s.inventory.Release(cart.ID, productID); err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		if err := s.deleteCart(ctx, cart); err != nil {
			return nil, fmt.Errorf("remove from cart: %w", err)
		}
		return nil, nil
	}

	saved, err := s.cartRepo.Save(cart)
	if err != nil {
		return nil, fmt.Errorf("remove from cart: %w", err)
	}

	s.cartCache.SetCart(ctx, saved)
	return saved, nil
}

// TransferCart moves an anonymous session's cart to a signed-in user. Three
// cases: no session cart, no user cart, or both. Every case ends with the
// session cache entries invalidated and the user entries refreshed.
func (s *cartService) TransferCart(ctx context.Context, userID, sessionID string) (*model.Cart, error) {
	logger.Info("Transferring cart to user", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	})

	if userID == "" || sessionID == "" {
		return nil, ErrMissingOwner
	}

	sessionCart, err := s.cartRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("transfer cart: %w", err)
	}
	userCart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("transfer cart: %w", err)
	}

	defer s.cartCache.InvalidateOwner(ctx, cache.SessionOwnerKey(sessionID))

	// No session cart: the user keeps their own cart, or gets a fresh
	// empty one.
	if sessionCart == nil {
		if userCart != nil {
			s.cartCache.SetCart(ctx, userCart)
			return userCart, nil
		}
		fresh, err := s.cartRepo.Save(model.NewUserCart(userID))
		if err != nil {
			return nil, fmt.Errorf("transfer cart: %w", err)
		}
		s.cartCache.SetCart(ctx, fresh)
		return fresh, nil
	}

	// No user cart: convert the session cart in place, reservations stay
	// keyed to the same cart id.
	if userCart == nil {
		if err := sessionCart.TransferToUser(userID); err != nil {
			return nil, err
		}
		saved, err := s.cartRepo.Save(sessionCart)
		if err != nil {
			return nil, fmt.Errorf("transfer cart: %w", err)
		}
		s.cartCache.SetCart(ctx, saved)
		logger.Info("Session cart converted to user cart", map[string]interface{}{
			"cart_id": saved.ID,
			"user_id": userID,
		})
		return saved, nil
	}

	// Both exist: merge into the user cart and delete the session cart.
	userCart.MergeWith(sessionCart)

	for _, item := range sessionCart.Items {
		merged := userCart.Item(item.ProductID)
		if merged == nil {
			continue
		}
		// Holds are advisory leases; checkout re-verifies under the row
		// lock, so a failed re-reservation does not block the merge.
		if err := s.inventory.Reserve(userCart.ID, merged.ProductID, merged.Quantity); err != nil {
			logger.Warn("Could not re-reserve merged quantity", map[string]interface{}{
				"cart_id":    userCart.ID,
				"product_id": merged.ProductID,
				"quantity":   merged.Quantity,
				"error":      err.Error(),
			})
		}
	}

	if err := s.inventory.ReleaseAll(sessionCart.ID); err != nil {
		return nil, fmt.Errorf("transfer cart: %w", err)
	}
	if err := s.cartRepo.Delete(sessionCart.ID); err != nil {
		return nil, fmt.Errorf("transfer cart: %w", err)
	}
	s.cartCache.DeleteCart(ctx, sessionCart)

	saved, err := s.cartRepo.Save(userCart)
	if err != nil {
		return nil, fmt.Errorf("transfer cart: %w", err)
	}
	s.cartCache.SetCart(ctx, saved)

	logger.Info("Session cart merged into user cart", map[string]interface{}{
		"cart_id":     saved.ID,
		"user_id":     userID,
		"total_items": saved.TotalItems(),
	})
	return saved, nil
}

// ClearCart removes the owner's cart from store and cache and releases its
// reservations. Clearing a missing cart is a no-op.
func (s *cartService) ClearCart(ctx context.Context, userID, sessionID string) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	})

	if err := validateOwner(userID, sessionID); err != nil {
		return err
	}

	cart, err := s.loadCart(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if cart == nil {
		return nil
	}

	if err := s.deleteCart(ctx, cart); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// loadCart is the cache-aside read: owner mapping, then payload, then the
// store, repopulating the cache on a store hit. The cache can only make
// this faster, never wrong.
func (s *cartService) loadCart(ctx context.Context, userID, sessionID string) (*model.Cart, error) {
	ownerKey := cache.UserOwnerKey(userID)
	if userID == "" {
		ownerKey = cache.SessionOwnerKey(sessionID)
	}

	if cartID, ok := s.cartCache.GetOwnerCartID(ctx, ownerKey); ok {
		if cart, ok := s.cartCache.GetCart(ctx, cartID); ok {
			return cart, nil
		}
	}

	var (
		cart *model.Cart
		err  error
	)
	if userID != "" {
		cart, err = s.cartRepo.FindByUserID(userID)
	} else {
		cart, err = s.cartRepo.FindBySessionID(sessionID)
	}
	if err != nil {
		return nil, err
	}
	if cart != nil {
		s.cartCache.SetCart(ctx, cart)
	}
	return cart, nil
}

func (s *cartService) deleteCart(ctx context.Context, cart *model.Cart) error {
	if err := s.inventory.ReleaseAll(cart.ID); err != nil {
		return err
	}
	if err := s.cartRepo.Delete(cart.ID); err != nil {
		return err
	}
	s.cartCache.DeleteCart(ctx, cart)

	logger.Info("Cart deleted", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return nil
}

func (s *cartService) newCartFor(userID, sessionID string) *model.Cart {
	if userID != "" {
		return model.NewUserCart(userID)
	}
	return model.NewSessionCart(sessionID)
}

func validateOwner(userID, sessionID string) error {
	if (userID == "") == (sessionID == "") {
		return ErrMissingOwner
	}
	return nil
}
