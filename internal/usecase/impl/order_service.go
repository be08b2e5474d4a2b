package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "orderdesk/internal/delivery/context"
	"orderdesk/internal/domain/entity"
	domainerrors "orderdesk/internal/domain/errors"
	"orderdesk/internal/domain/repository"
	"orderdesk/internal/domain/service"
	"orderdesk/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// orderService implements the OrderUsecase interface.
type orderService struct {
	txManager repository.TransactionManager
	orderRepo repository.OrderRepository
	publisher service.EventPublisher
	logger    *slog.Logger
}

// OrderServiceParams holds dependencies for OrderService, injected by Fx.
type OrderServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	OrderRepo repository.OrderRepository
	Publisher service.EventPublisher
	Logger    *slog.Logger
}

// NewOrderService is the constructor for orderService.
func NewOrderService(params OrderServiceParams) usecase.OrderUsecase {
	return &orderService{
		txManager: params.TxManager,
		orderRepo: params.OrderRepo,
		publisher: params.Publisher,
		logger:    params.Logger,
	}
}

func (srv *orderService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CreateOrder opens a new pending order for the given user.
func (srv *orderService) CreateOrder(ctx context.Context, actor *entity.User, input *usecase.CreateOrderInput) (*entity.Order, error) {
	if !actor.CanAccess(input.UserID) {
		return nil, domainerrors.ErrForbidden.WrapMessage("cannot create orders for another user")
	}

	newOrder := &entity.Order{
		UserID: input.UserID,
		Status: entity.OrderStatusPending,
	}

	if err := srv.orderRepo.Create(ctx, newOrder); err != nil {
		srv.log(ctx).Warn("Failed to create order", slog.Any("userID", input.UserID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create order")
	}

	srv.log(ctx).Info("Order created", slog.Any("orderID", newOrder.ID), slog.Any("userID", newOrder.UserID))
	srv.publishOrderEvent(ctx, service.OrderEventCreated, newOrder)

	return newOrder, nil
}

// GetOrder loads a single order. Existence is checked before ownership so a
// missing order surfaces as 404 even for users who could not access it.
func (srv *orderService) GetOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID) (*entity.Order, error) {
	order, err := srv.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !actor.CanAccess(order.UserID) {
		return nil, domainerrors.ErrForbidden.WrapMessage("order belongs to another user")
	}

	return order, nil
}

// ListOrders returns every order in the system. Admin only.
func (srv *orderService) ListOrders(ctx context.Context, actor *entity.User) ([]*entity.Order, error) {
	if !actor.Admin {
		return nil, domainerrors.ErrForbidden.WrapMessage("listing all orders requires admin")
	}

	orders, err := srv.orderRepo.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return orders, nil
}

// ListUserOrders returns all orders belonging to one user.
func (srv *orderService) ListUserOrders(ctx context.Context, actor *entity.User, userID uuid.UUID) ([]*entity.Order, error) {
	if !actor.CanAccess(userID) {
		return nil, domainerrors.ErrForbidden.WrapMessage("cannot list orders of another user")
	}

	orders, err := srv.orderRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user orders")
	}

	return orders, nil
}

// AddItem appends an item to a pending order and recomputes the order price.
func (srv *orderService) AddItem(ctx context.Context, actor *entity.User, input *usecase.AddItemInput) (*entity.Order, error) {
	var updated *entity.Order

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orderRepo := repoFactory.NewOrderRepository()

		order, err := srv.loadMutableOrder(ctx, orderRepo, actor, input.OrderID)
		if err != nil {
			return err
		}

		item := &entity.OrderItem{
			OrderID:   order.ID,
			Amount:    input.Amount,
			Flavor:    input.Flavor,
			Size:      input.Size,
			UnitPrice: input.UnitPrice,
		}

		if err := orderRepo.CreateItem(ctx, item); err != nil {
			return errors.Wrap(err, "failed to add order item")
		}

		order.Items = append(order.Items, item)
		order.RecalculatePrice()

		if err := orderRepo.Update(ctx, order); err != nil {
			return errors.Wrap(err, "failed to update order price")
		}

		updated = order

		return nil
	})

	if err != nil {
		srv.log(ctx).Warn("Failed to add order item", slog.Any("orderID", input.OrderID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute add item transaction")
	}

	srv.log(ctx).Debug("Order item added", slog.Any("orderID", updated.ID), slog.Float64("price", updated.Price))

	return updated, nil
}

// RemoveItem deletes an item from a pending order and recomputes the order price.
// The owning order is resolved from the item itself.
func (srv *orderService) RemoveItem(ctx context.Context, actor *entity.User, itemID uuid.UUID) (*entity.Order, error) {
	var updated *entity.Order

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orderRepo := repoFactory.NewOrderRepository()

		item, err := orderRepo.FindItemByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderItemNotFound) {
				return domainerrors.ErrOrderItemNotFound.WrapMessage("order item not found")
			}

			return errors.Wrap(err, "failed to find order item")
		}

		order, err := srv.loadMutableOrder(ctx, orderRepo, actor, item.OrderID)
		if err != nil {
			return err
		}

		if err := orderRepo.DeleteItem(ctx, order.ID, itemID); err != nil {
			if errors.Is(err, repository.ErrOrderItemNotFound) {
				return domainerrors.ErrOrderItemNotFound.WrapMessage("order item not found")
			}

			return errors.Wrap(err, "failed to delete order item")
		}

		remaining := make([]*entity.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			if item.ID != itemID {
				remaining = append(remaining, item)
			}
		}
		order.Items = remaining
		order.RecalculatePrice()

		if err := orderRepo.Update(ctx, order); err != nil {
			return errors.Wrap(err, "failed to update order price")
		}

		updated = order

		return nil
	})

	if err != nil {
		srv.log(ctx).Warn("Failed to remove order item", slog.Any("itemID", itemID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute remove item transaction")
	}

	srv.log(ctx).Debug("Order item removed", slog.Any("orderID", updated.ID), slog.Float64("price", updated.Price))

	return updated, nil
}

// CancelOrder marks an order as canceled. Cancellation is allowed from any
// state, so canceling a finished or already canceled order succeeds.
func (srv *orderService) CancelOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID) (*entity.Order, error) {
	order, err := srv.transitionOrder(ctx, actor, orderID, entity.OrderStatusCanceled, false)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Order canceled", slog.Any("orderID", order.ID))
	srv.publishOrderEvent(ctx, service.OrderEventCanceled, order)

	return order, nil
}

// FinishOrder marks a pending order as finished.
func (srv *orderService) FinishOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID) (*entity.Order, error) {
	order, err := srv.transitionOrder(ctx, actor, orderID, entity.OrderStatusFinished, true)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Order finished", slog.Any("orderID", order.ID))
	srv.publishOrderEvent(ctx, service.OrderEventFinished, order)

	return order, nil
}

// transitionOrder loads, authorizes and moves an order to the target status.
func (srv *orderService) transitionOrder(ctx context.Context, actor *entity.User, orderID uuid.UUID, target entity.OrderStatus, requirePending bool) (*entity.Order, error) {
	var updated *entity.Order

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orderRepo := repoFactory.NewOrderRepository()

		order, err := srv.findOrderWith(ctx, orderRepo, orderID)
		if err != nil {
			return err
		}

		if !actor.CanAccess(order.UserID) {
			return domainerrors.ErrForbidden.WrapMessage("order belongs to another user")
		}

		if requirePending && !order.IsPending() {
			return domainerrors.ErrInvalidOrderState.WrapMessage("order is not pending")
		}

		order.Status = target
		if err := orderRepo.Update(ctx, order); err != nil {
			return errors.Wrap(err, "failed to update order status")
		}

		updated = order

		return nil
	})

	if err != nil {
		srv.log(ctx).Warn("Failed to transition order", slog.Any("orderID", orderID), slog.String("target", string(target)), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute order transition transaction")
	}

	return updated, nil
}

// loadMutableOrder loads an order and verifies the actor may mutate its items.
func (srv *orderService) loadMutableOrder(ctx context.Context, orderRepo repository.OrderRepository, actor *entity.User, orderID uuid.UUID) (*entity.Order, error) {
	order, err := srv.findOrderWith(ctx, orderRepo, orderID)
	if err != nil {
		return nil, err
	}

	if !actor.CanAccess(order.UserID) {
		return nil, domainerrors.ErrForbidden.WrapMessage("order belongs to another user")
	}

	if !order.IsPending() {
		return nil, domainerrors.ErrInvalidOrderState.WrapMessage("order is not pending")
	}

	return order, nil
}

func (srv *orderService) findOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	return srv.findOrderWith(ctx, srv.orderRepo, orderID)
}

func (srv *orderService) findOrderWith(ctx context.Context, orderRepo repository.OrderRepository, orderID uuid.UUID) (*entity.Order, error) {
	order, err := orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, domainerrors.ErrOrderNotFound.WrapMessage("order not found")
		}

		return nil, errors.Wrap(err, "failed to find order")
	}

	return order, nil
}

// publishOrderEvent emits an order lifecycle event. Publishing failures are
// logged but never fail the triggering operation.
func (srv *orderService) publishOrderEvent(ctx context.Context, eventType string, order *entity.Order) {
	if srv.publisher == nil {
		return
	}

	event := &service.OrderEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		EventType:  eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		Price:      order.Price,
		OccurredAt: time.Now().UTC(),
	}

	if err := srv.publisher.PublishOrderEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish order event",
			slog.String("event_type", eventType),
			slog.Any("orderID", order.ID),
			slog.Any("error", err),
		)
	}
}
