package usecase

import (
	"context"

	"orderdesk/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// CreateOrderInput defines the data required to open a new order.
type CreateOrderInput struct {
	UserID uuid.UUID
}

// AddItemInput defines the data required to add an item to an order.
type AddItemInput struct {
	OrderID   uuid.UUID
	Amount    int
	Flavor    string
	Size      string
	UnitPrice float64
}

// OrderUsecase defines the interface for order management operations.
// Every operation receives the acting user so ownership checks happen in
// one place; handlers only resolve the actor from the request context.
type OrderUsecase interface {
	CreateOrder(ctx context.Context, actor *entity.User, input *CreateOrderInput) (*entity.Order, error)
	GetOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID) (*entity.Order, error)
	ListOrders(ctx context.Context, actor *entity.User) ([]*entity.Order, error)
	ListUserOrders(ctx context.Context, actor *entity.User, userID uuid.UUID) ([]*entity.Order, error)
	AddItem(ctx context.Context, actor *entity.User, input *AddItemInput) (*entity.Order, error)
	RemoveItem(ctx context.Context, actor *entity.User, itemID uuid.UUID) (*entity.Order, error)
	CancelOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID) (*entity.Order, error)
	FinishOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID) (*entity.Order, error)
}
