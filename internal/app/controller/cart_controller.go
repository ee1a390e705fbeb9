package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/internal/app/service"
	apperrors "github.com/dyoon/shopcart-backend/internal/errors"
	"github.com/dyoon/shopcart-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// CartResponse is the success envelope. Cart is null when the operation
// leaves the owner without a cart.
type CartResponse struct {
	Success bool      `json:"success"`
	Cart    *CartView `json:"cart"`
	Message string    `json:"message,omitempty"`
}

type CartView struct {
	ID          string         `json:"id"`
	UserID      *string        `json:"user_id,omitempty"`
	SessionID   *string        `json:"session_id,omitempty"`
	Items       []CartItemView `json:"items"`
	TotalItems  int            `json:"total_items"`
	TotalAmount float64        `json:"total_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type CartItemView struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

func NewCartView(cart *model.Cart) *CartView {
	if cart == nil {
		return nil
	}
	items := make([]CartItemView, 0, len(cart.Items))
	for i := range cart.Items {
		item := &cart.Items[i]
		items = append(items, CartItemView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
	}
	return &CartView{
		ID:          cart.ID,
		UserID:      cart.UserID,
		SessionID:   cart.SessionID,
		Items:       items,
		TotalItems:  cart.TotalItems(),
		TotalAmount: cart.TotalAmount(),
		CreatedAt:   cart.CreatedAt,
		UpdatedAt:   cart.UpdatedAt,
	}
}

// GetCart returns the caller's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, sessionID := callerIdentity(c)

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondCartError(c, err, "fetch cart")
		return
	}

	c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Cart:    NewCartView(cart),
	})
}

// AddToCart adds a product to the caller's cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, sessionID := callerIdentity(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	cart, err := ctrl.cartService.AddToCart(c.Request.Context(), userID, sessionID, req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(c, err, "add item to cart")
		return
	}

	c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Cart:    NewCartView(cart),
		Message: "Item added to cart",
	})
}

// UpdateCartItem sets the quantity of a line item; zero removes it
// PUT /api/v1/cart/items/:productId
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, sessionID := callerIdentity(c)
	productID := c.Param("productId")

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart item request", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	cart, err := ctrl.cartService.UpdateCartItem(c.Request.Context(), userID, sessionID, productID, *req.Quantity)
	if err != nil {
		respondCartError(c, err, "update cart item")
		return
	}

	c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Cart:    NewCartView(cart),
		Message: "Cart updated",
	})
}

// RemoveFromCart removes a line item
// DELETE /api/v1/cart/items/:productId
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	userID, sessionID := callerIdentity(c)
	productID := c.Param("productId")

	cart, err := ctrl.cartService.RemoveFromCart(c.Request.Context(), userID, sessionID, productID)
	if err != nil {
		respondCartError(c, err, "remove cart item")
		return
	}

	c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Cart:    NewCartView(cart),
		Message: "Item removed from cart",
	})
}

// TransferCart moves the anonymous session cart to the signed-in user
// POST /api/v1/cart/transfer
func (ctrl *CartController) TransferCart(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		if cookie, err := c.Cookie("cart_session"); err == nil {
			sessionID = cookie
		}
	}

	cart, err := ctrl.cartService.TransferCart(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondCartError(c, err, "transfer cart")
		return
	}

	c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Cart:    NewCartView(cart),
		Message: "Cart transferred",
	})
}

// ClearCart deletes the caller's cart entirely
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID, sessionID := callerIdentity(c)

	if err := ctrl.cartService.ClearCart(c.Request.Context(), userID, sessionID); err != nil {
		respondCartError(c, err, "clear cart")
		return
	}

	c.JSON(http.StatusOK, CartResponse{
		Success: true,
		Cart:    nil,
		Message: "Cart cleared",
	})
}

func callerIdentity(c *gin.Context) (string, string) {
	userID, _ := middleware.GetUserID(c)
	sessionID, _ := middleware.GetSessionID(c)
	return userID, sessionID
}

// respondCartError maps domain errors to status codes; everything
// unexpected goes through the generic parser.
func respondCartError(c *gin.Context, err error, operation string) {
	log := middleware.GetLoggerFromContext(c)

	var stockErr *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrMissingOwner):
		apperrors.BadRequest(c, apperrors.ValidationMissingOwner, err.Error())
	case errors.Is(err, model.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.ValidationInvalidQuantity, err.Error())
	case errors.Is(err, model.ErrEmptyProductID), errors.Is(err, model.ErrInvalidPrice):
		apperrors.BadRequest(c, apperrors.ValidationInvalidProduct, err.Error())
	case errors.Is(err, model.ErrUserOwnerExists):
		apperrors.Conflict(c, apperrors.CartOwnerTaken, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrCartNotFound):
		apperrors.NotFound(c, apperrors.CartNotFound, "Cart not found")
	case errors.Is(err, model.ErrItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Item not found in cart")
	case errors.As(err, &stockErr):
		apperrors.Conflict(c, apperrors.StockInsufficient,
			fmt.Sprintf("Insufficient stock: %d available", stockErr.Available))
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.Conflict(c, apperrors.StockInsufficient, "Insufficient stock")
	default:
		log.Error("Unexpected error in cart operation", err, map[string]interface{}{
			"operation": operation,
		})
		info := apperrors.ParseError(err, operation)
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
	}
}
