package catalog

// ProductInfo is the catalog's view of a product. Price is the snapshot the
// cart stores at add time.
type ProductInfo struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// InventoryStatus reports availability for a requested quantity.
type InventoryStatus struct {
	Available   int  `json:"available"`
	IsAvailable bool `json:"is_available"`
}

type reserveRequest struct {
	Quantity int `json:"quantity"`
}

type reserveResponse struct {
	Reserved bool `json:"reserved"`
}
