package cart

import (
	"errors"
	"fmt"
)

// Item is a cart line as handed over by the cart provider at checkout time.
// It carries no status; statuses are stamped when the order is created.
type Item struct {
	ItemID    int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Vendor    string `json:"vendor"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Snapshot is the cart state at the moment of checkout. Clearing the cart
// afterwards is the provider's responsibility, not the order service's.
type Snapshot struct {
	Items       []Item `json:"items"`
	TableNumber string `json:"tableNumber"`
}

// CustomerInfo identifies the customer placing the order. Free-text from the
// identity layer; only non-emptiness is checked here.
type CustomerInfo struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrMissingCustomerName = errors.New("customer name is required")
	ErrMissingCustomerID   = errors.New("customer id is required")
)

// Validate rejects snapshots that must never become orders.
func (s *Snapshot) Validate() error {
	if len(s.Items) == 0 {
		return ErrEmptyCart
	}
	for _, it := range s.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", it.ItemID)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("item %d: price must not be negative", it.ItemID)
		}
	}

	return nil
}

// Validate checks that both identity fields are present.
func (c *CustomerInfo) Validate() error {
	if c.Name == "" {
		return ErrMissingCustomerName
	}
	if c.ID == "" {
		return ErrMissingCustomerID
	}

	return nil
}
