package handler

import (
	"log/slog"
	"net/http"
	"time"

	"orderdesk/internal/delivery/http/middleware"
	"orderdesk/internal/delivery/http/response"
	"orderdesk/internal/domain/entity"
	domainerrors "orderdesk/internal/domain/errors"
	"orderdesk/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// OrderHandler holds dependencies for order management handlers.
type OrderHandler struct {
	uc     usecase.OrderUsecase
	logger *slog.Logger
}

// NewOrderHandler is the constructor for OrderHandler, injected by Fx.
func NewOrderHandler(uc usecase.OrderUsecase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: logger,
	}
}

// createOrderRequest optionally names the order's owner; when omitted the
// order belongs to the caller. Only admins may name someone else.
type createOrderRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

type addItemRequest struct {
	Amount    int     `json:"amount" validate:"required,gt=0"`
	Flavor    string  `json:"flavor" validate:"required"`
	Size      string  `json:"size" validate:"required"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Amount    int       `json:"amount"`
	Flavor    string    `json:"flavor"`
	Size      string    `json:"size"`
	UnitPrice float64   `json:"unit_price"`
}

type orderResponse struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	Status    string               `json:"status"`
	Price     float64              `json:"price"`
	Items     []*orderItemResponse `json:"items"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func toOrderResponse(order *entity.Order) *orderResponse {
	items := make([]*orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, &orderItemResponse{
			ID:        item.ID,
			Amount:    item.Amount,
			Flavor:    item.Flavor,
			Size:      item.Size,
			UnitPrice: item.UnitPrice,
		})
	}

	return &orderResponse{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Price:     order.Price,
		Items:     items,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func toOrderResponseList(orders []*entity.Order) []*orderResponse {
	out := make([]*orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}

	return out
}

// pathUUID parses a UUID path parameter.
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails(name + " must be a valid UUID")
	}

	return id, nil
}

// CreateOrder handles the request to open a new order.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid order input")
	}
	if req.UserID == uuid.Nil {
		req.UserID = actor.ID
	}

	order, err := h.uc.CreateOrder(c.Request().Context(), actor, &usecase.CreateOrderInput{UserID: req.UserID})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, toOrderResponse(order), "Order created successfully")
}

// GetOrder handles the request to fetch a single order.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	orderID, err := pathUUID(c, "orderID")
	if err != nil {
		return err
	}

	order, err := h.uc.GetOrder(c.Request().Context(), actor, orderID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponse(order), "Order retrieved successfully")
}

// ListOrders handles the scoped listing: admins see every order, everyone
// else sees their own.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	var orders []*entity.Order
	if actor.Admin {
		orders, err = h.uc.ListOrders(ctx, actor)
	} else {
		orders, err = h.uc.ListUserOrders(ctx, actor, actor.ID)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponseList(orders), "Orders retrieved successfully")
}

// ListAllOrders handles the admin request to list every order.
func (h *OrderHandler) ListAllOrders(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	orders, err := h.uc.ListOrders(c.Request().Context(), actor)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponseList(orders), "Orders retrieved successfully")
}

// ListUserOrders handles the request to list one user's orders.
func (h *OrderHandler) ListUserOrders(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	userID, err := pathUUID(c, "userID")
	if err != nil {
		return err
	}

	orders, err := h.uc.ListUserOrders(c.Request().Context(), actor, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponseList(orders), "Orders retrieved successfully")
}

// AddItem handles the request to add an item to an order.
func (h *OrderHandler) AddItem(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	orderID, err := pathUUID(c, "orderID")
	if err != nil {
		return err
	}

	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid order item input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	order, err := h.uc.AddItem(c.Request().Context(), actor, &usecase.AddItemInput{
		OrderID:   orderID,
		Amount:    req.Amount,
		Flavor:    req.Flavor,
		Size:      req.Size,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponse(order), "Order item added successfully")
}

// RemoveItem handles the request to remove an item from an order.
func (h *OrderHandler) RemoveItem(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	itemID, err := pathUUID(c, "itemID")
	if err != nil {
		return err
	}

	order, err := h.uc.RemoveItem(c.Request().Context(), actor, itemID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponse(order), "Order item removed successfully")
}

// CancelOrder handles the request to cancel an order.
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	orderID, err := pathUUID(c, "orderID")
	if err != nil {
		return err
	}

	order, err := h.uc.CancelOrder(c.Request().Context(), actor, orderID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponse(order), "Order canceled successfully")
}

// FinishOrder handles the request to finish an order.
func (h *OrderHandler) FinishOrder(c echo.Context) error {
	actor, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	orderID, err := pathUUID(c, "orderID")
	if err != nil {
		return err
	}

	order, err := h.uc.FinishOrder(c.Request().Context(), actor, orderID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toOrderResponse(order), "Order finished successfully")
}
