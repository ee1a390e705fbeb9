package errors

// Error code constants, format: CATEGORY_SPECIFIC_DETAIL.
// Frontends map these codes to localized messages.

const (
	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput    = "VALIDATION_INVALID_INPUT"    // malformed request body
	ValidationMissingOwner    = "VALIDATION_MISSING_OWNER"    // neither or both of user/session
	ValidationInvalidQuantity = "VALIDATION_INVALID_QUANTITY" // quantity out of range
	ValidationInvalidProduct  = "VALIDATION_INVALID_PRODUCT"  // empty product id

	// ==================== Cart (CART_) ====================
	CartNotFound     = "CART_NOT_FOUND"      // no cart for this owner
	CartItemNotFound = "CART_ITEM_NOT_FOUND" // product not in cart
	CartOwnerTaken   = "CART_OWNER_TAKEN"    // transfer target already owned

	// ==================== Product / Inventory (PRODUCT_/STOCK_) ====================
	ProductNotFound    = "PRODUCT_NOT_FOUND"   // unknown product
	StockInsufficient  = "STOCK_INSUFFICIENT"  // available < requested
	StockNotTracked    = "STOCK_NOT_TRACKED"   // no inventory record
	ReservationExpired = "RESERVATION_EXPIRED" // hold lapsed before confirmation

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // unexpected failure
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // store failure
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // catalog failure
)
