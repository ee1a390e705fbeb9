package repository

import (
	"errors"

	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Save(cart *model.Cart) (*model.Cart, error)
	FindByID(id string) (*model.Cart, error)
	FindByUserID(userID string) (*model.Cart, error)
	FindBySessionID(sessionID string) (*model.Cart, error)
	Delete(id string) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// Save persists the cart with a full item replace in one transaction: upsert
// the cart row, delete every stored line, re-insert the current set, then
// re-read the lines inside the same transaction so the caller observes
// exactly what committed.
func (r *cartRepository) Save(cart *model.Cart) (*model.Cart, error) {
	logger.Debug("Saving cart in database", map[string]interface{}{
		"cart_id":    cart.ID,
		"item_count": len(cart.Items),
	})

	if err := cart.Validate(); err != nil {
		return nil, err
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(cart).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		if len(cart.Items) > 0 {
			items := make([]model.CartItem, len(cart.Items))
			copy(items, cart.Items)
			for i := range items {
				items[i].ID = 0
				items[i].CartID = cart.ID
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		var committed []model.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).
			Order("added_at, id").
			Find(&committed).Error; err != nil {
			return err
		}
		cart.Items = committed
		return nil
	})
	if err != nil {
		logger.Error("Failed to save cart in database", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return nil, err
	}

	cart.Persisted = true
	logger.Debug("Cart saved in database", map[string]interface{}{
		"cart_id":    cart.ID,
		"item_count": len(cart.Items),
	})
	return cart, nil
}

// FindByID loads a cart with its items. Unknown or blank ids yield nil
// without an error.
func (r *cartRepository) FindByID(id string) (*model.Cart, error) {
	if id == "" {
		return nil, nil
	}

	logger.Debug("Finding cart by ID in database", map[string]interface{}{
		"cart_id": id,
	})

	var cart model.Cart
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("added_at, id")
	}).First(&cart, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find cart by ID in database", err, map[string]interface{}{
			"cart_id": id,
		})
		return nil, err
	}

	cart.Persisted = true
	return &cart, nil
}

// FindByUserID returns the most recently updated cart of the user, or nil.
func (r *cartRepository) FindByUserID(userID string) (*model.Cart, error) {
	return r.findByOwner("user_id = ?", userID)
}

// FindBySessionID returns the most recently updated cart of the session, or nil.
func (r *cartRepository) FindBySessionID(sessionID string) (*model.Cart, error) {
	return r.findByOwner("session_id = ?", sessionID)
}

func (r *cartRepository) findByOwner(cond, ownerID string) (*model.Cart, error) {
	if ownerID == "" {
		return nil, nil
	}

	logger.Debug("Finding cart by owner in database", map[string]interface{}{
		"owner": ownerID,
	})

	var cart model.Cart
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("added_at, id")
	}).Where(cond, ownerID).
		Order("updated_at DESC").
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find cart by owner in database", err, map[string]interface{}{
			"owner": ownerID,
		})
		return nil, err
	}

	cart.Persisted = true
	return &cart, nil
}

// Delete removes the cart and its items in one transaction so a crash can
// never leave orphan lines behind.
func (r *cartRepository) Delete(id string) error {
	logger.Debug("Deleting cart from database", map[string]interface{}{
		"cart_id": id,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Cart{}, "id = ?", id).Error
	})
	if err != nil {
		logger.Error("Failed to delete cart from database", err, map[string]interface{}{
			"cart_id": id,
		})
		return err
	}

	logger.Debug("Cart deleted from database", map[string]interface{}{
		"cart_id": id,
	})
	return nil
}
