package application

import (
	"time"

	"github.com/levijcl/Wei-sub000/internal/order/domain"
)

// OrderDTO represents an order in the application layer responses
type OrderDTO struct {
	OrderID             string        `json:"orderId"`
	Status              string        `json:"status"`
	LineItems           []LineItemDTO `json:"lineItems"`
	ScheduledPickupTime *time.Time    `json:"scheduledPickupTime,omitempty"`
	Carrier             string        `json:"carrier,omitempty"`
	TrackingNumber      string        `json:"trackingNumber,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// LineItemDTO represents an order line in responses
type LineItemDTO struct {
	LineItemID        string  `json:"lineItemId"`
	SKU               string  `json:"sku"`
	Quantity          int     `json:"quantity"`
	Price             float64 `json:"price"`
	Reserved          bool    `json:"reserved"`
	Committed         bool    `json:"committed"`
	ReservationFailed bool    `json:"reservationFailed"`
	FailureReason     string  `json:"failureReason,omitempty"`
}

// ToOrderDTO converts a domain Order to OrderDTO
func ToOrderDTO(order *domain.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	items := make([]LineItemDTO, 0, len(order.LineItems))
	for i := range order.LineItems {
		item := &order.LineItems[i]
		dto := LineItemDTO{
			LineItemID:        item.LineItemID,
			SKU:               item.SKU,
			Quantity:          item.Quantity,
			Price:             item.Price,
			Reserved:          item.IsReserved(),
			Committed:         item.IsCommitted(),
			ReservationFailed: item.HasReservationFailed(),
		}
		if item.ReservationInfo != nil && item.ReservationInfo.FailureReason != "" {
			dto.FailureReason = item.ReservationInfo.FailureReason
		}
		items = append(items, dto)
	}

	dto := &OrderDTO{
		OrderID:             order.OrderID,
		Status:              string(order.Status),
		LineItems:           items,
		ScheduledPickupTime: order.ScheduledPickupTime,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	if order.ShipmentInfo != nil {
		dto.Carrier = order.ShipmentInfo.Carrier
		dto.TrackingNumber = order.ShipmentInfo.TrackingNumber
	}
	return dto
}
