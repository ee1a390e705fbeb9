package model

import "time"

// Inventory tracks stock and the quantity currently held by live
// reservations for one product. Available is derived, never stored.
type Inventory struct {
	ProductID string    `gorm:"primarykey;size:64" json:"product_id"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	Reserved  int       `gorm:"not null;default:0" json:"reserved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

// Available is stock minus reserved, floored at zero.
func (i *Inventory) Available() int {
	available := i.Stock - i.Reserved
	if available < 0 {
		return 0
	}
	return available
}

// Reservation is a time-boxed hold on inventory tied to one cart and
// product. At most one exists per (cart, product); repeat requests
// supersede, not sum.
type Reservation struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CartID    string    `gorm:"size:36;not null;uniqueIndex:idx_reservations_cart_product;index" json:"cart_id"`
	ProductID string    `gorm:"size:64;not null;uniqueIndex:idx_reservations_cart_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// Expired reports whether the hold has lapsed at the given instant.
func (r *Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
