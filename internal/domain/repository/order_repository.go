package repository

import (
	"context"
	"errors"

	"orderdesk/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrOrderNotFound is returned when an order does not exist in the storage.
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderItemNotFound is returned when an item does not exist on the given order.
var ErrOrderItemNotFound = errors.New("order item not found")

// OrderRepository defines the standard operations for order persistence.
// FindByID and the list operations always load the order's items.
type OrderRepository interface {
	// Create persists a new order entity to the storage.
	Create(ctx context.Context, order *entity.Order) error

	// FindByID retrieves a single order with its items by the order's unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)

	// FindByUserID retrieves all orders belonging to a user, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Order, error)

	// FindAll retrieves every order in the system, newest first.
	FindAll(ctx context.Context) ([]*entity.Order, error)

	// Update persists the order's status and derived price.
	Update(ctx context.Context, order *entity.Order) error

	// CreateItem appends a line item to an order.
	CreateItem(ctx context.Context, item *entity.OrderItem) error

	// FindItemByID retrieves a single line item by its unique ID.
	// Returns ErrOrderItemNotFound when the item does not exist.
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*entity.OrderItem, error)

	// DeleteItem removes a line item from an order.
	// Returns ErrOrderItemNotFound when the item is not on that order.
	DeleteItem(ctx context.Context, orderID, itemID uuid.UUID) error
}
