// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"orderdesk/internal/delivery/http/middleware"
	"orderdesk/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	OrderHandler   *handler.OrderHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	orderHandler   *handler.OrderHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		orderHandler:   params.OrderHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes. Refresh accepts both verbs: GET takes the refresh token
	// as a bearer header, POST takes it in the body.
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/create_account", r.authHandler.CreateAccount)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/login-form", r.authHandler.LoginForm)
		authGroup.GET("/refresh", r.authHandler.RefreshToken)
		authGroup.POST("/refresh", r.authHandler.RefreshToken)
		authGroup.POST("/logout", r.authHandler.Logout)
	}

	// Order routes all require an authenticated user; per-order ownership
	// checks happen in the usecase layer.
	orderGroup := e.Group("/order")
	orderGroup.Use(r.authMiddleware.Authenticate)
	{
		orderGroup.GET("/", r.orderHandler.ListOrders)
		orderGroup.POST("/", r.orderHandler.CreateOrder)
		orderGroup.GET("/list", r.orderHandler.ListAllOrders, r.authMiddleware.RequireAdmin)
		orderGroup.GET("/list/:userID", r.orderHandler.ListUserOrders)
		orderGroup.GET("/:orderID", r.orderHandler.GetOrder)
		orderGroup.POST("/:orderID/cancel", r.orderHandler.CancelOrder)
		orderGroup.POST("/:orderID/finish", r.orderHandler.FinishOrder)
		orderGroup.POST("/:orderID/items", r.orderHandler.AddItem)
		orderGroup.DELETE("/items/:itemID", r.orderHandler.RemoveItem)
	}
}
