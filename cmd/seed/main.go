package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dyoon/shopcart-backend/config"
	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/internal/app/repository"
	"github.com/dyoon/shopcart-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Imports inventory levels from an XLSX sheet with columns:
// product_id | stock
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	inventoryRepo := repository.NewInventoryRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	records, err := readInventoryFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total inventory records to import: %d\n", len(records))

	// Tell the operator what the import will actually do before they
	// confirm, since updates overwrite live stock levels.
	created, updated := 0, 0
	for i := range records {
		existing, err := inventoryRepo.FindByProductID(records[i].ProductID)
		if err != nil {
			log.Fatal("Failed to inspect existing inventory:", err)
		}
		if existing == nil {
			created++
			continue
		}
		updated++
		if existing.Stock != records[i].Stock {
			fmt.Printf("  %s: stock %d -> %d\n",
				records[i].ProductID, existing.Stock, records[i].Stock)
		}
	}
	fmt.Printf("New products: %d, existing products to update: %d\n", created, updated)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	imported := 0
	for i := range records {
		if err := inventoryRepo.Upsert(&records[i]); err != nil {
			log.Printf("Failed to import %s: %v", records[i].ProductID, err)
			continue
		}
		imported++
	}

	fmt.Printf("Import finished: %d/%d records\n", imported, len(records))
}

func readInventoryFromXLSX(filePath string) ([]model.Inventory, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var records []model.Inventory
	for i, row := range rows {
		// Skip the header row
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}

		productID := strings.TrimSpace(row[0])
		if productID == "" {
			continue
		}

		stock, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil || stock < 0 {
			log.Printf("Skipping row %d: invalid stock %q", i+1, row[1])
			continue
		}

		records = append(records, model.Inventory{
			ProductID: productID,
			Stock:     stock,
		})
	}

	return records, nil
}
