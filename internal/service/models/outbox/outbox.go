package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names for order lifecycle messages published to RabbitMQ.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderRated         = "order.rated"
)

const (
	OrderEventsQueue = "canteen.order.events"
	ContentTypeJSON  = "application/json"
)

// OutboxMessage is a pending event written in the same transaction as the
// state change it describes, published to RabbitMQ by the outbox worker.
type OutboxMessage struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// OrderEvent is the payload of an order lifecycle message.
type OrderEvent struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"orderId"`
	OrderCode  string    `json:"orderCode"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewOrderEventMessage builds an outbox row for an order lifecycle event.
func NewOrderEventMessage(event, orderID, orderCode, orderStatus string, now time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(OrderEvent{
		Event:      event,
		OrderID:    orderID,
		OrderCode:  orderCode,
		Status:     orderStatus,
		OccurredAt: now,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal order event: %w", err)
	}

	return OutboxMessage{
		QueueName:   OrderEventsQueue,
		RoutingKey:  OrderEventsQueue,
		Payload:     payload,
		ContentType: ContentTypeJSON,
		MaxRetries:  10,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	}, nil
}
