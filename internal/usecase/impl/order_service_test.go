package impl

import (
	"context"
	"testing"

	"orderdesk/internal/domain/entity"
	domainerrors "orderdesk/internal/domain/errors"
	"orderdesk/internal/domain/service"
	"orderdesk/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAppError(t *testing.T, err error, code string, httpCode int) {
	t.Helper()

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.ErrorCode())
	assert.Equal(t, httpCode, appErr.HTTPCode())
}

func TestOrderService_CreateOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "create@example.com", false)

	order, err := env.orders.CreateOrder(context.Background(), owner, &usecase.CreateOrderInput{UserID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Zero(t, order.Price)
	assert.Equal(t, []string{service.OrderEventCreated}, env.publisher.eventTypes())
}

func TestOrderService_CreateOrder_ForAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "owner-a@example.com", false)
	other := env.registerUser(t, "other-a@example.com", false)

	_, err := env.orders.CreateOrder(context.Background(), other, &usecase.CreateOrderInput{UserID: owner.ID})
	assertAppError(t, err, "FORBIDDEN", 403)

	// An admin may open orders on behalf of any user.
	admin := env.registerUser(t, "admin-a@example.com", true)
	order, err := env.orders.CreateOrder(context.Background(), admin, &usecase.CreateOrderInput{UserID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, order.UserID)
}

func TestOrderService_PriceTracksItems(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "price@example.com", false)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	updated, err := env.orders.AddItem(ctx, owner, &usecase.AddItemInput{
		OrderID:   order.ID,
		Amount:    2,
		Flavor:    "chocolate",
		Size:      "large",
		UnitPrice: 5.0,
	})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, updated.Price, 1e-9)

	updated, err = env.orders.AddItem(ctx, owner, &usecase.AddItemInput{
		OrderID:   order.ID,
		Amount:    1,
		Flavor:    "vanilla",
		Size:      "small",
		UnitPrice: 3.0,
	})
	require.NoError(t, err)
	assert.InDelta(t, 13.0, updated.Price, 1e-9)

	// Removing the first item drops its subtotal from the order price.
	var firstItemID uuid.UUID
	for _, item := range updated.Items {
		if item.Flavor == "chocolate" {
			firstItemID = item.ID
		}
	}
	require.NotEqual(t, uuid.Nil, firstItemID)

	updated, err = env.orders.RemoveItem(ctx, owner, firstItemID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, updated.Price, 1e-9)
	assert.Len(t, updated.Items, 1)

	// The stored order reflects the recomputed price.
	stored, err := env.orders.GetOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, stored.Price, 1e-9)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "missing@example.com", false)

	_, err := env.orders.GetOrder(context.Background(), owner, uuid.New())
	assertAppError(t, err, "ORDER_NOT_FOUND", 404)
}

func TestOrderService_GetOrder_NotFoundBeforeForbidden(t *testing.T) {
	env := newTestEnv(t)
	other := env.registerUser(t, "nosee@example.com", false)

	// A missing order is reported as missing even to users who could never
	// have accessed it.
	_, err := env.orders.GetOrder(context.Background(), other, uuid.New())
	assertAppError(t, err, "ORDER_NOT_FOUND", 404)
}

func TestOrderService_GetOrder_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "owner-b@example.com", false)
	other := env.registerUser(t, "other-b@example.com", false)
	admin := env.registerUser(t, "admin-b@example.com", true)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	_, err := env.orders.GetOrder(ctx, other, order.ID)
	assertAppError(t, err, "FORBIDDEN", 403)

	got, err := env.orders.GetOrder(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestOrderService_ListOrders_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "list@example.com", false)
	admin := env.registerUser(t, "admin-list@example.com", true)
	env.createOrder(t, owner)
	env.createOrder(t, owner)
	ctx := context.Background()

	_, err := env.orders.ListOrders(ctx, owner)
	assertAppError(t, err, "FORBIDDEN", 403)

	all, err := env.orders.ListOrders(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOrderService_ListUserOrders(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "mine@example.com", false)
	other := env.registerUser(t, "theirs@example.com", false)
	env.createOrder(t, owner)
	env.createOrder(t, other)
	ctx := context.Background()

	mine, err := env.orders.ListUserOrders(ctx, owner, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = env.orders.ListUserOrders(ctx, owner, other.ID)
	assertAppError(t, err, "FORBIDDEN", 403)

	admin := env.registerUser(t, "admin-mine@example.com", true)
	theirs, err := env.orders.ListUserOrders(ctx, admin, other.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestOrderService_AddItem_RequiresPending(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "frozen@example.com", false)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	_, err := env.orders.CancelOrder(ctx, owner, order.ID)
	require.NoError(t, err)

	_, err = env.orders.AddItem(ctx, owner, &usecase.AddItemInput{
		OrderID:   order.ID,
		Amount:    1,
		Flavor:    "mint",
		Size:      "small",
		UnitPrice: 2.0,
	})
	assertAppError(t, err, "INVALID_STATE", 400)
}

func TestOrderService_RemoveItem_UnknownItem(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "noitem@example.com", false)
	env.createOrder(t, owner)

	_, err := env.orders.RemoveItem(context.Background(), owner, uuid.New())
	assertAppError(t, err, "ORDER_ITEM_NOT_FOUND", 404)
}

func TestOrderService_RemoveItem_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "itemowner@example.com", false)
	other := env.registerUser(t, "itemother@example.com", false)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	updated, err := env.orders.AddItem(ctx, owner, &usecase.AddItemInput{
		OrderID:   order.ID,
		Amount:    1,
		Flavor:    "lemon",
		Size:      "small",
		UnitPrice: 4.0,
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	_, err = env.orders.RemoveItem(ctx, other, updated.Items[0].ID)
	assertAppError(t, err, "FORBIDDEN", 403)
}

func TestOrderService_FinishOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "finish@example.com", false)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	finished, err := env.orders.FinishOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusFinished, finished.Status)

	// A finished order cannot be finished again.
	_, err = env.orders.FinishOrder(ctx, owner, order.ID)
	assertAppError(t, err, "INVALID_STATE", 400)

	assert.Equal(t, []string{service.OrderEventCreated, service.OrderEventFinished}, env.publisher.eventTypes())
}

func TestOrderService_CancelOrder_AnyState(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "cancel@example.com", false)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	finished, err := env.orders.FinishOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusFinished, finished.Status)

	// Cancellation succeeds regardless of the current status.
	canceled, err := env.orders.CancelOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCanceled, canceled.Status)

	// And it is idempotent.
	canceled, err = env.orders.CancelOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCanceled, canceled.Status)
}

func TestOrderService_Transition_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "owner-c@example.com", false)
	other := env.registerUser(t, "other-c@example.com", false)
	order := env.createOrder(t, owner)
	ctx := context.Background()

	_, err := env.orders.CancelOrder(ctx, other, order.ID)
	assertAppError(t, err, "FORBIDDEN", 403)

	_, err = env.orders.FinishOrder(ctx, other, order.ID)
	assertAppError(t, err, "FORBIDDEN", 403)
}
