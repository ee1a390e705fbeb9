package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInventoryNotFound = errors.New("inventory record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries the quantity still available so the
// boundary can tell the shopper what is left. Matches ErrInsufficientStock
// under errors.Is.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type InventoryService interface {
	CheckAvailability(productID string, quantity int) (int, error)
	Reserve(cartID, productID string, quantity int) error
	Release(cartID, productID string) error
	ReleaseAll(cartID string) error
	ConfirmOrder(cartID string) error
	CleanExpiredReservations() (int, error)
}

type inventoryService struct {
	db         *gorm.DB
	holdWindow time.Duration
}

func NewInventoryService(db *gorm.DB, holdWindow time.Duration) InventoryService {
	return &inventoryService{
		db:         db,
		holdWindow: holdWindow,
	}
}

// CheckAvailability reports how many units are free for the product. It
// never mutates; the authoritative check happens again under the row lock
// inside Reserve.
func (s *inventoryService) CheckAvailability(productID string, quantity int) (int, error) {
	var inv model.Inventory
	if err := s.db.First(&inv, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Availability check on unknown product", map[string]interface{}{
				"product_id": productID,
			})
			return 0, ErrInventoryNotFound
		}
		logger.Error("Failed to read inventory record", err, map[string]interface{}{
			"product_id": productID,
		})
		return 0, err
	}

	available := inv.Available()
	if available < quantity {
		return available, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}
	return available, nil
}

// Reserve places a time-boxed hold on the product for the cart. The
// inventory row lock serializes competing reservations on the same product;
// any prior hold from the same cart is superseded, not summed. After the
// insert, reserved is recomputed as the sum of live reservations so a lost
// update heals on the next pass.
func (s *inventoryService) Reserve(cartID, productID string, quantity int) error {
	logger.Info("Reserving stock", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return model.ErrInvalidQuantity
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv model.Inventory
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&inv, "product_id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInventoryNotFound
			}
			return err
		}

		available := inv.Stock - inv.Reserved
		if available < quantity {
			return &InsufficientStockError{
				ProductID: productID,
				Requested: quantity,
				Available: inv.Available(),
			}
		}

		if err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).
			Delete(&model.Reservation{}).Error; err != nil {
			return err
		}

		now := time.Now()
		reservation := model.Reservation{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
			ExpiresAt: now.Add(s.holdWindow),
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}

		return s.rebalanceReserved(tx, &inv, now)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrInventoryNotFound) {
			logger.Warn("Reservation rejected", map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
				"quantity":   quantity,
				"reason":     err.Error(),
			})
		} else {
			logger.Error("Failed to reserve stock", err, map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
			})
		}
		return err
	}

	logger.Info("Stock reserved", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return nil
}

// Release tears down the hold for one (cart, product) pair. Releasing a
// hold that no longer exists is a no-op.
func (s *inventoryService) Release(cartID, productID string) error {
	logger.Info("Releasing reservation", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
	})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv model.Inventory
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&inv, "product_id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		var reservation model.Reservation
		if err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).
			First(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Delete(&reservation).Error; err != nil {
			return err
		}

		// Recompute rather than decrement: an expired hold has already left
		// the reserved count, and subtracting it again would erase another
		// cart's live hold.
		return s.rebalanceReserved(tx, &inv, time.Now())
	})
	if err != nil {
		logger.Error("Failed to release reservation", err, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return err
	}
	return nil
}

// ReleaseAll drops every hold of the cart, product by product under the
// same locking discipline.
func (s *inventoryService) ReleaseAll(cartID string) error {
	var reservations []model.Reservation
	if err := s.db.Where("cart_id = ?", cartID).Find(&reservations).Error; err != nil {
		logger.Error("Failed to list reservations for release", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}

	for _, reservation := range reservations {
		if err := s.Release(cartID, reservation.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmOrder consumes every hold of the cart into a permanent stock
// decrement. The whole transaction rolls back if any product's stock no
// longer covers its reservation; this is the only point a reservation
// becomes permanent.
func (s *inventoryService) ConfirmOrder(cartID string) error {
	logger.Info("Confirming reservations for order", map[string]interface{}{
		"cart_id": cartID,
	})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var reservations []model.Reservation
		if err := tx.Where("cart_id = ?", cartID).Find(&reservations).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, reservation := range reservations {
			var inv model.Inventory
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&inv, "product_id = ?", reservation.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInventoryNotFound
				}
				return err
			}

			if inv.Stock < reservation.Quantity {
				return &InsufficientStockError{
					ProductID: reservation.ProductID,
					Requested: reservation.Quantity,
					Available: inv.Stock,
				}
			}

			if err := tx.Delete(&model.Reservation{}, reservation.ID).Error; err != nil {
				return err
			}

			inv.Stock -= reservation.Quantity
			if err := tx.Model(&model.Inventory{}).
				Where("product_id = ?", inv.ProductID).
				Update("stock", inv.Stock).Error; err != nil {
				return err
			}
			if err := s.rebalanceReserved(tx, &inv, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to confirm order reservations", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}

	logger.Info("Order reservations confirmed", map[string]interface{}{
		"cart_id": cartID,
	})
	return nil
}

// CleanExpiredReservations removes lapsed holds and rebalances reserved for
// each touched product. Safe to run concurrently with reserve/release
// because it takes the same row locks.
func (s *inventoryService) CleanExpiredReservations() (int, error) {
	now := time.Now()

	var expired []model.Reservation
	if err := s.db.Where("expires_at <= ?", now).Find(&expired).Error; err != nil {
		logger.Error("Failed to list expired reservations", err)
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	products := make(map[string]struct{})
	for _, reservation := range expired {
		products[reservation.ProductID] = struct{}{}
	}

	removed := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for productID := range products {
			var inv model.Inventory
			lockErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&inv, "product_id = ?", productID).Error
			if lockErr != nil && !errors.Is(lockErr, gorm.ErrRecordNotFound) {
				return lockErr
			}

			// The lapsed rows go even when the inventory record is gone,
			// otherwise they would be re-listed on every run.
			result := tx.Where("product_id = ? AND expires_at <= ?", productID, now).
				Delete(&model.Reservation{})
			if result.Error != nil {
				return result.Error
			}
			removed += int(result.RowsAffected)

			if lockErr == nil {
				if err := s.rebalanceReserved(tx, &inv, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to clean expired reservations", err)
		return 0, err
	}

	if removed > 0 {
		logger.Info("Expired reservations cleaned", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, nil
}

// rebalanceReserved recomputes reserved as the sum of live reservations for
// the product, inside the caller's transaction and under its row lock.
func (s *inventoryService) rebalanceReserved(tx *gorm.DB, inv *model.Inventory, now time.Time) error {
	var reserved int
	if err := tx.Model(&model.Reservation{}).
		Where("product_id = ? AND expires_at > ?", inv.ProductID, now).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&reserved).Error; err != nil {
		return err
	}

	inv.Reserved = reserved
	return tx.Model(&model.Inventory{}).
		Where("product_id = ?", inv.ProductID).
		Update("reserved", reserved).Error
}
