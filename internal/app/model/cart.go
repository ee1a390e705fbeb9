package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validation errors raised by cart mutators. Handed to callers unchanged so
// the boundary can map them to precise responses.
var (
	ErrEmptyProductID  = errors.New("product id must not be empty")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("unit price must be positive")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrUserOwnerExists = errors.New("cart already belongs to a user")
	ErrNotSessionCart  = errors.New("only a session cart can be transferred")
	ErrNoOwner         = errors.New("cart requires exactly one owner")
)

// Cart is the aggregate root of a shopper's cart. Exactly one of UserID and
// SessionID is set; the CHECK constraint mirrors that at the schema level.
type Cart struct {
	ID        string     `gorm:"primarykey;size:36" json:"id"`
	UserID    *string    `gorm:"size:64;index;check:chk_carts_owner,(user_id IS NULL) <> (session_id IS NULL)" json:"user_id,omitempty"`
	SessionID *string    `gorm:"size:64;index" json:"session_id,omitempty"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Persisted tells the orchestrators whether this cart has ever been
	// written to the store. Never serialized.
	Persisted bool `gorm:"-" json:"-"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CartID    string    `gorm:"size:36;not null;uniqueIndex:idx_cart_items_cart_product" json:"-"`
	ProductID string    `gorm:"size:64;not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice float64   `gorm:"not null;check:unit_price > 0" json:"unit_price"`
	AddedAt   time.Time `gorm:"not null" json:"added_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal returns quantity x unit price for this line.
func (i *CartItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// NewUserCart creates a transient cart owned by a registered user.
func NewUserCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    &userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSessionCart creates a transient cart owned by an anonymous session.
func NewSessionCart(sessionID string) *Cart {
	now := time.Now()
	return &Cart{
		ID:        uuid.NewString(),
		SessionID: &sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem appends a line item or, if the product is already present,
// increases its quantity. The unit price of an existing line is kept as the
// snapshot taken at first add.
func (c *Cart) AddItem(productID string, quantity int, unitPrice float64) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if unitPrice <= 0 {
		return ErrInvalidPrice
	}

	if item := c.Item(productID); item != nil {
		item.Quantity += quantity
	} else {
		c.Items = append(c.Items, CartItem{
			CartID:    c.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			AddedAt:   time.Now(),
		})
	}

	c.touch()
	return nil
}

// RemoveItem drops the line item for the given product.
func (c *Cart) RemoveItem(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

// UpdateQuantity sets the quantity of an existing line item. Zero removes
// the line; negative quantities are rejected.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		return c.RemoveItem(productID)
	}

	item := c.Item(productID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	c.touch()
	return nil
}

// MergeWith folds the items of another cart into this one. Matching products
// have their quantities summed; this cart's price snapshots win. Never
// destructive to the receiver.
func (c *Cart) MergeWith(other *Cart) {
	if other == nil {
		return
	}
	for _, item := range other.Items {
		if existing := c.Item(item.ProductID); existing != nil {
			existing.Quantity += item.Quantity
		} else {
			c.Items = append(c.Items, CartItem{
				CartID:    c.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				AddedAt:   item.AddedAt,
			})
		}
	}
	c.touch()
}

// TransferToUser re-keys a session cart to a registered user.
func (c *Cart) TransferToUser(userID string) error {
	if c.UserID != nil {
		return ErrUserOwnerExists
	}
	if c.SessionID == nil {
		return ErrNotSessionCart
	}
	c.UserID = &userID
	c.SessionID = nil
	c.touch()
	return nil
}

// Clear empties the cart while keeping its identity.
func (c *Cart) Clear() {
	c.Items = nil
	c.touch()
}

// Item returns the line for the given product, or nil.
func (c *Cart) Item(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// TotalAmount is the sum over all lines of quantity x unit price.
func (c *Cart) TotalAmount() float64 {
	var total float64
	for i := range c.Items {
		total += c.Items[i].Subtotal()
	}
	return total
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	var total int
	for i := range c.Items {
		total += c.Items[i].Quantity
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Validate checks the exactly-one-owner invariant.
func (c *Cart) Validate() error {
	if (c.UserID == nil) == (c.SessionID == nil) {
		return ErrNoOwner
	}
	return nil
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
}
