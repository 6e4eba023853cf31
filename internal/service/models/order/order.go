package order

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kantinku/order/internal/service/models/lineitem"
	"github.com/kantinku/order/internal/service/models/payment"
	"github.com/kantinku/order/internal/service/models/status"
)

// Order is the root aggregate: a customer's checkout, spanning one or more
// vendors. Items are fixed at creation; only per-item status and the rating
// mutate afterwards. The aggregate status is always derived from the items
// and never stored.
type Order struct {
	ID            string              `json:"id"`
	Code          string              `json:"code"`
	TableNumber   string              `json:"tableNumber"`
	CustomerName  string              `json:"customerName"`
	CustomerID    string              `json:"customerId"`
	Note          string              `json:"note,omitempty"`
	Items         []lineitem.LineItem `json:"items"`
	TotalAmount   int64               `json:"totalAmount"`
	PaymentMethod payment.Method      `json:"paymentMethod"`
	Rating        *int                `json:"rating,omitempty"`
	Version       int64               `json:"-"`
	CreatedAt     time.Time           `json:"createdAt"`
}

var ErrNoItems = errors.New("order must contain at least one item")

// Status derives the aggregate status from the current items.
func (o *Order) Status() status.Status {
	return status.DeriveAggregate(lineitem.Statuses(o.Items))
}

// Rated reports whether a rating has already been attached.
func (o *Order) Rated() bool {
	return o.Rating != nil
}

// Total sums the items' subtotals.
func (o *Order) Total() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].Subtotal()
	}

	return total
}

// Validate checks the creation-time invariants of the aggregate.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// VendorOrder is the vendor-scoped projection of an order: items and total
// cover only the vendor's lines, while Status is the aggregate over ALL
// items of the underlying order. The Status field shadows the embedded
// Status method on purpose; deriving from the filtered items would hide the
// rest of the order's progress from the vendor.
type VendorOrder struct {
	Order
	Status status.Status `json:"status"`
}

// VendorView projects the order for a single vendor. Returns false when the
// vendor has no items on this order.
func (o *Order) VendorView(vendor string) (VendorOrder, bool) {
	items := lineitem.FilterVendor(o.Items, vendor)
	if len(items) == 0 {
		return VendorOrder{}, false
	}

	view := *o
	view.Items = items

	var total int64
	for i := range items {
		total += items[i].Subtotal()
	}
	view.TotalAmount = total

	return VendorOrder{Order: view, Status: o.Status()}, true
}

const (
	codePrefix  = "ORD"
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 7
)

// NewCode builds the short human-readable order code printed on receipts and
// vendor screens. It is a display label, not the primary key; uniqueness is
// carried by the order id.
func NewCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeCharset[rand.Intn(len(codeCharset))]
	}

	return codePrefix + string(code)
}

// String implements fmt.Stringer for log lines.
func (o *Order) String() string {
	return fmt.Sprintf("%s (%s)", o.Code, o.ID)
}
