package models

import (
	"errors"
	"fmt"
	"strings"
)

// The placement engine fails with exactly one of four error kinds. All of
// them surface to the caller synchronously; none is retried internally.
var (
	// ErrStaleSession means the caller presented a session whose login ID no
	// longer resolves to a customer. Distinct from "not found": the fix is to
	// re-authenticate, not to retry.
	ErrStaleSession = errors.New("login session is stale, please sign in again")

	// ErrForbiddenCombination rejects CHAMPAGNE dinners in SIMPLE style
	ErrForbiddenCombination = errors.New("the champagne feast dinner cannot be ordered in SIMPLE style")

	// ErrEmptyOrder rejects orders whose quantities sum to zero
	ErrEmptyOrder = errors.New("an order with every item at zero cannot be placed")
)

// ReferenceError reports a data inconsistency: an item name that does not
// resolve to a catalog entry, or an item with no inventory record
type ReferenceError struct {
	ItemName string
	Reason   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.ItemName)
}

// NewUnknownItemError reports an item name absent from the catalog
func NewUnknownItemError(name string) *ReferenceError {
	return &ReferenceError{ItemName: name, Reason: "unknown item"}
}

// NewMissingInventoryError reports an item that has no inventory record
func NewMissingInventoryError(name string) *ReferenceError {
	return &ReferenceError{ItemName: name, Reason: "item has no inventory record"}
}

// InsufficientInventoryError carries the complete list of shortfalls found in
// one reservation scan, so the caller sees the whole picture in a single
// round trip
type InsufficientInventoryError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientInventoryError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s (requested: %d, available: %d)", s.ItemName, s.Requested, s.Available))
	}
	return "insufficient inventory: " + strings.Join(parts, ", ")
}
