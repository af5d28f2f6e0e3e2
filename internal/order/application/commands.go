package application

import (
	"time"

	"github.com/levijcl/Wei-sub000/internal/order/domain"
)

// CreateOrderCommand represents the command to create a new order
type CreateOrderCommand struct {
	OrderID             string
	Items               []LineItemInput
	ScheduledPickupTime *time.Time
	FulfillmentLeadTime time.Duration
}

// LineItemInput represents an order line in a command
type LineItemInput struct {
	SKU      string
	Quantity int
	Price    float64
}

// InitiateFulfillmentCommand represents the command to start fulfilling an order
type InitiateFulfillmentCommand struct {
	OrderID string
}

// MarkShippedCommand represents the command to mark an order as shipped
type MarkShippedCommand struct {
	OrderID        string
	Carrier        string
	TrackingNumber string
}

// GetOrderQuery represents the query to get a single order
type GetOrderQuery struct {
	OrderID string
}

// ListOrdersQuery represents the query to list orders by status
type ListOrdersQuery struct {
	Status string
	Limit  int64
}

// ToDomainLineItems converts LineItemInput slice to domain line items
func (c *CreateOrderCommand) ToDomainLineItems() []domain.OrderLineItem {
	items := make([]domain.OrderLineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, domain.NewOrderLineItem(item.SKU, item.Quantity, item.Price))
	}
	return items
}
