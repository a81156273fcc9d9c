package models

// Badge is one row of a scope's inventory collection.
type Badge struct {
	Name              string `json:"name"`
	AvailableQuantity int    `json:"available_quantity"`
	UnitCost          int    `json:"unit_cost"`
	Row               int    `json:"-"`
}

// BadgeColumns is the fixed A..C layout of the inventory collection.
var BadgeColumns = []string{"name", "quantity", "cost"}
