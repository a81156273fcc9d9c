package models

import "time"

// PurchaseTimeLayout is the timestamp format written to the purchase log.
const PurchaseTimeLayout = time.RFC3339

// PurchaseColumns is the A..G layout of the purchase log.
var PurchaseColumns = []string{"timestamp", "student_id", "badge", "quantity", "unit_cost", "id", "reverses_id"}

// PurchaseRecord is one append-only purchase log entry. Compensating entries
// carry a negative quantity and the id of the entry they reverse.
type PurchaseRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	StudentID  string    `json:"student_id"`
	BadgeName  string    `json:"badge_name"`
	Quantity   int       `json:"quantity"`
	UnitCost   int       `json:"unit_cost"`
	ReversesID string    `json:"reverses_id,omitempty"`
}

// IsReversal reports whether the entry compensates an earlier one.
func (r PurchaseRecord) IsReversal() bool {
	return r.ReversesID != ""
}

// PurchaseRequest asks to buy Quantity units of a badge at UnitCost each.
type PurchaseRequest struct {
	Scope     string `json:"scope"`
	StudentID string `json:"-"`
	BadgeName string `json:"badge_name" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	UnitCost  int    `json:"unit_cost" validate:"gte=0"`
}

// PurchaseResult is returned for a committed purchase.
type PurchaseResult struct {
	PurchaseID  string         `json:"purchase_id"`
	BadgeName   string         `json:"badge_name"`
	Quantity    int            `json:"quantity"`
	TotalCost   int            `json:"total_cost"`
	NewBalance  int            `json:"new_balance"`
	NewQuantity int            `json:"new_quantity"`
	Holdings    map[string]int `json:"holdings"`
}

// ReversalResult is returned when a purchase has been compensated.
type ReversalResult struct {
	PurchaseID  string `json:"purchase_id"`
	ReversalID  string `json:"reversal_id"`
	StudentID   string `json:"student_id"`
	BadgeName   string `json:"badge_name"`
	Refunded    int    `json:"refunded"`
	NewBalance  int    `json:"new_balance"`
	NewQuantity int    `json:"new_quantity"`
}
