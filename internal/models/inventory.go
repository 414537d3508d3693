package models

// Item represents a catalog entry. Items are seeded by migration and are
// immutable at run time.
type Item struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	UnitPrice int    `json:"unit_price" db:"unit_price"`
}

// InventoryRecord holds the available stock for one item
type InventoryRecord struct {
	ItemID        int64 `json:"item_id" db:"item_id"`
	StockQuantity int   `json:"stock_quantity" db:"stock_quantity"`
}

// InventoryView is the staff-facing listing row, inventory joined with catalog
type InventoryView struct {
	ItemID        int64  `json:"item_id"`
	ItemName      string `json:"item_name"`
	UnitPrice     int    `json:"unit_price"`
	StockQuantity int    `json:"stock_quantity"`
}

// Shortfall describes one item whose requested quantity exceeds stock
type Shortfall struct {
	ItemName  string `json:"item_name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
