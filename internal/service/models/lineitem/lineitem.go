package lineitem

import (
	"errors"
	"fmt"

	"github.com/kantinku/order/internal/service/models/status"
)

// LineItem is a single catalog item within an order. ItemID references the
// catalog entry and is not unique across orders; within one order an item is
// addressed by its ItemID.
type LineItem struct {
	ItemID    int64         `json:"id"`
	Name      string        `json:"name"`
	UnitPrice int64         `json:"price"`
	Quantity  int           `json:"quantity"`
	Vendor    string        `json:"vendor"`
	ImageURL  string        `json:"imageUrl,omitempty"`
	Status    status.Status `json:"status"`
}

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidUnitPrice = errors.New("unit price must not be negative")
	ErrMissingVendor    = errors.New("vendor is required")
)

// Subtotal is the price contribution of this line to the order total.
func (li *LineItem) Subtotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// Validate checks the creation-time invariants of a line item.
func (li *LineItem) Validate() error {
	if li.Quantity <= 0 {
		return fmt.Errorf("item %d: %w", li.ItemID, ErrInvalidQuantity)
	}
	if li.UnitPrice < 0 {
		return fmt.Errorf("item %d: %w", li.ItemID, ErrInvalidUnitPrice)
	}
	if li.Vendor == "" {
		return fmt.Errorf("item %d: %w", li.ItemID, ErrMissingVendor)
	}

	return nil
}

// Statuses extracts the status of every item, preserving order.
func Statuses(items []LineItem) []status.Status {
	statuses := make([]status.Status, len(items))
	for i, li := range items {
		statuses[i] = li.Status
	}

	return statuses
}

// FilterVendor returns the items belonging to a single vendor, preserving
// cart order.
func FilterVendor(items []LineItem, vendor string) []LineItem {
	filtered := make([]LineItem, 0, len(items))
	for _, li := range items {
		if li.Vendor == vendor {
			filtered = append(filtered, li)
		}
	}

	return filtered
}
