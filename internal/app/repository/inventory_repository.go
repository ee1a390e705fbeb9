package repository

import (
	"errors"

	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository covers the plain reads and writes on the inventory
// ledger. The locking reservation transactions live in the inventory
// service, which drives gorm directly.
type InventoryRepository interface {
	FindByProductID(productID string) (*model.Inventory, error)
	Upsert(inv *model.Inventory) error
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// FindByProductID loads an inventory record. Unknown products yield nil
// without an error.
func (r *inventoryRepository) FindByProductID(productID string) (*model.Inventory, error) {
	logger.Debug("Finding inventory record in database", map[string]interface{}{
		"product_id": productID,
	})

	var inv model.Inventory
	if err := r.db.First(&inv, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// Upsert writes an inventory record, replacing stock on conflict. Used by
// the seed importer.
func (r *inventoryRepository) Upsert(inv *model.Inventory) error {
	logger.Debug("Upserting inventory record in database", map[string]interface{}{
		"product_id": inv.ProductID,
		"stock":      inv.Stock,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
	}).Create(inv).Error
	if err != nil {
		logger.Error("Failed to upsert inventory record in database", err, map[string]interface{}{
			"product_id": inv.ProductID,
		})
		return err
	}
	return nil
}

