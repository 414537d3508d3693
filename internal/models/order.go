package models

import (
	"fmt"
	"time"
)

// DinnerKind represents one of the fixed menu categories
type DinnerKind string

const (
	Valentine DinnerKind = "VALENTINE"
	French    DinnerKind = "FRENCH"
	English   DinnerKind = "ENGLISH"
	Champagne DinnerKind = "CHAMPAGNE"
)

// DinnerStyle represents the service tier of a dinner
type DinnerStyle string

const (
	Simple DinnerStyle = "SIMPLE"
	Grand  DinnerStyle = "GRAND"
	Deluxe DinnerStyle = "DELUXE"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	StatusOrdered    OrderStatus = "ORDERED"
	StatusCooking    OrderStatus = "COOKING"
	StatusCooked     OrderStatus = "COOKED"
	StatusDelivering OrderStatus = "DELIVERING"
	StatusDelivered  OrderStatus = "DELIVERED"
)

// Order represents a placed dinner order
type Order struct {
	ID              int64       `json:"id" db:"id"`
	CustomerID      int64       `json:"-" db:"customer_id"`
	CustomerLoginID string      `json:"customer_login_id"`
	DinnerKind      DinnerKind  `json:"dinner_kind" db:"dinner_kind"`
	DinnerStyle     DinnerStyle `json:"dinner_style" db:"dinner_style"`
	DeliveryAddress string      `json:"delivery_address" db:"delivery_address"`
	CardNumber      string      `json:"card_number" db:"card_number"`
	ReservationTime *time.Time  `json:"reservation_time,omitempty" db:"reservation_time"`
	TotalPrice      int         `json:"total_price" db:"total_price"`
	Status          OrderStatus `json:"status" db:"status"`
	DeliveryTime    *time.Time  `json:"delivery_time,omitempty" db:"delivery_time"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// OrderLineItem represents one item row of an order
type OrderLineItem struct {
	OrderID  int64  `json:"order_id" db:"order_id"`
	ItemID   int64  `json:"-" db:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// OrderRequest represents a proposed order, whether it came from the
// web form or from the conversational agent
type OrderRequest struct {
	DinnerKind      DinnerKind     `json:"dinner_kind"`
	DinnerStyle     DinnerStyle    `json:"dinner_style"`
	DeliveryAddress string         `json:"delivery_address"`
	CardNumber      string         `json:"card_number"`
	ReservationTime *time.Time     `json:"reservation_time,omitempty"`
	Items           map[string]int `json:"items"`
}

// Validate checks the request fields that do not need storage access.
// Stock and catalog checks belong to the placement engine.
func (req *OrderRequest) Validate() error {
	if !req.DinnerKind.Valid() {
		return fmt.Errorf("dinner_kind must be one of: VALENTINE, FRENCH, ENGLISH, CHAMPAGNE")
	}
	if !req.DinnerStyle.Valid() {
		return fmt.Errorf("dinner_style must be one of: SIMPLE, GRAND, DELUXE")
	}
	if req.DeliveryAddress == "" {
		return fmt.Errorf("delivery_address is required")
	}
	if req.CardNumber == "" {
		return fmt.Errorf("card_number is required")
	}
	for name, qty := range req.Items {
		if qty < 0 {
			return fmt.Errorf("items[%s] quantity must not be negative", name)
		}
	}
	return nil
}

// TotalQuantity returns the sum of all requested quantities
func (req *OrderRequest) TotalQuantity() int {
	total := 0
	for _, qty := range req.Items {
		total += qty
	}
	return total
}

// Valid reports whether the dinner kind is one of the known categories
func (k DinnerKind) Valid() bool {
	switch k {
	case Valentine, French, English, Champagne:
		return true
	}
	return false
}

// Valid reports whether the dinner style is one of the known tiers
func (s DinnerStyle) Valid() bool {
	switch s {
	case Simple, Grand, Deluxe:
		return true
	}
	return false
}
