package entity

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusPending is the initial state. Only pending orders accept item changes.
	OrderStatusPending OrderStatus = "PENDING"

	// OrderStatusCanceled marks an order that was called off.
	OrderStatusCanceled OrderStatus = "CANCELED"

	// OrderStatusFinished marks an order that was completed and handed over.
	OrderStatusFinished OrderStatus = "FINISHED"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCanceled, OrderStatusFinished:
		return true
	}

	return false
}

// Order represents a customer order and its line items.
// Price is derived state: it must always equal the sum of the items'
// unit price times amount, and is recomputed on every item mutation.
type Order struct {
	ID        uuid.UUID    // The unique identifier for the order.
	UserID    uuid.UUID    // The account this order belongs to.
	Status    OrderStatus  // Current lifecycle state. New orders start PENDING.
	Price     float64      // Derived total, kept in sync with Items.
	Items     []*OrderItem // The line items making up this order.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a single line item on an order.
type OrderItem struct {
	ID        uuid.UUID // The unique identifier for the item.
	OrderID   uuid.UUID // The order this item belongs to.
	Amount    int       // Quantity ordered. Always positive.
	Flavor    string    // Product flavor, free-form.
	Size      string    // Product size, free-form.
	UnitPrice float64   // Price of a single unit.
	CreatedAt time.Time
}

// Subtotal returns the item's contribution to the order total.
func (i *OrderItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Amount)
}

// TotalPrice computes the order total from the full item set.
func (o *Order) TotalPrice() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal()
	}

	return total
}

// RecalculatePrice restores the derived-price invariant from the current items.
func (o *Order) RecalculatePrice() {
	o.Price = o.TotalPrice()
}

// IsPending reports whether the order still accepts item mutations.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}
