package status

import (
	"database/sql/driver"
	"errors"

	"github.com/kantinku/order/internal/service/models/payment"
)

// Status is the fulfillment status of a single line item. The same set of
// values is used for the aggregate status derived over a whole order.
type Status string

const (
	// OrderPlaced means the item is waiting for payment.
	OrderPlaced Status = "Order Placed"
	// PaymentConfirmed means payment for the order has been received.
	PaymentConfirmed Status = "Payment Confirmed"
	// Completed means the vendor has handed the item over.
	Completed Status = "Completed"
)

var ErrInvalidStatus = errors.New("invalid status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// ParseStatus converts a raw string into a Status. Unknown values are
// rejected rather than passed through.
func ParseStatus(s string) (Status, error) {
	switch s {
	case OrderPlaced.String():
		return OrderPlaced, nil
	case PaymentConfirmed.String():
		return PaymentConfirmed, nil
	case Completed.String():
		return Completed, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Initial is the status every line item starts with. QRIS payments are
// confirmed online before the order reaches the kitchen, so they skip
// straight to PaymentConfirmed; cash waits for the register.
func Initial(method payment.Method) Status {
	if method == payment.MethodQRIS {
		return PaymentConfirmed
	}

	return OrderPlaced
}

// DeriveAggregate computes the order-wide status from its item statuses.
//
// Payment confirmation is an order-wide event (cash is paid once at the
// register), so a single confirmed item promotes the whole order. Completion
// is tracked per kitchen, so the order is Completed only when every item is.
// This is deliberately not a plain max over the items.
func DeriveAggregate(statuses []Status) Status {
	if len(statuses) == 0 {
		return OrderPlaced
	}

	completed := 0
	confirmed := 0
	for _, s := range statuses {
		switch s {
		case Completed:
			completed++
			confirmed++
		case PaymentConfirmed:
			confirmed++
		case OrderPlaced:
		}
	}

	switch {
	case completed == len(statuses):
		return Completed
	case confirmed > 0:
		return PaymentConfirmed
	default:
		return OrderPlaced
	}
}
