package models

import (
	"fmt"
	"time"
)

// OrderPlacedMessage is published to the kitchen exchange after a successful
// placement so chefs see new orders without polling
type OrderPlacedMessage struct {
	OrderID         int64      `json:"order_id"`
	CustomerLoginID string     `json:"customer_login_id"`
	DinnerKind      string     `json:"dinner_kind"`
	DinnerStyle     string     `json:"dinner_style"`
	DeliveryAddress string     `json:"delivery_address"`
	ReservationTime *time.Time `json:"reservation_time,omitempty"`
	TotalPrice      int        `json:"total_price"`
}

// StatusUpdateMessage is published to the notifications fanout on every
// effective lifecycle transition
type StatusUpdateMessage struct {
	OrderID   int64     `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderPlacedMessage builds the kitchen message for a persisted order
func NewOrderPlacedMessage(order *Order) *OrderPlacedMessage {
	return &OrderPlacedMessage{
		OrderID:         order.ID,
		CustomerLoginID: order.CustomerLoginID,
		DinnerKind:      string(order.DinnerKind),
		DinnerStyle:     string(order.DinnerStyle),
		DeliveryAddress: order.DeliveryAddress,
		ReservationTime: order.ReservationTime,
		TotalPrice:      order.TotalPrice,
	}
}

// NewStatusUpdateMessage builds a notification for an order status change
func NewStatusUpdateMessage(orderID int64, oldStatus, newStatus OrderStatus, changedBy string) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		OrderID:   orderID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
}

// KitchenRoutingKey generates the routing key for order placed messages
func KitchenRoutingKey(kind DinnerKind) string {
	return fmt.Sprintf("kitchen.%s", kind)
}
