package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"orderdesk/internal/delivery/http/middleware"
	"orderdesk/internal/delivery/http/router"
	"orderdesk/internal/delivery/http/router/handler"
	"orderdesk/internal/delivery/http/validator"
	"orderdesk/internal/infra/auth"
	"orderdesk/internal/infra/persistence/model"
	"orderdesk/internal/infra/persistence/postgres"
	"orderdesk/internal/usecase/impl"

	"orderdesk/config"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// envelope mirrors the unified response structure.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.UserModel{},
		&model.OrderModel{},
		&model.OrderItemModel{},
		&model.RefreshTokenModel{},
	))

	cfg := &config.Config{}
	cfg.SecretKey.Access = "integration-access-secret"
	cfg.SecretKey.Refresh = "integration-refresh-secret"

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := postgres.NewUserRepository(db)
	users := impl.NewUserService(impl.UserServiceParams{
		TxManager:        postgres.NewTransactionManager(db),
		UserRepo:         userRepo,
		RefreshTokenRepo: postgres.NewRefreshTokenRepository(db),
		Hasher:           auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		TokenService:     tokenService,
		Logger:           testLogger,
	})
	orders := impl.NewOrderService(impl.OrderServiceParams{
		TxManager: postgres.NewTransactionManager(db),
		OrderRepo: postgres.NewOrderRepository(db),
		Logger:    testLogger,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(testLogger).HandleHTTPError

	r := router.NewRouter(router.RouterParams{
		AuthHandler:    handler.NewAuthHandler(users, testLogger),
		OrderHandler:   handler.NewOrderHandler(orders, testLogger),
		AuthMiddleware: middleware.NewAuthMiddleware(tokenService, userRepo),
	})
	r.RegisterRoutes(e)

	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body any) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(payload))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return rec, &env
}

// createAccountAndLogin registers an account and returns its ID and access token.
func createAccountAndLogin(t *testing.T, e *echo.Echo, email string, admin bool) (string, string) {
	t.Helper()

	rec, env := doJSON(t, e, http.MethodPost, "/auth/create_account", "", map[string]any{
		"name":     "Integration User",
		"email":    email,
		"password": "password123",
		"admin":    admin,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, env = doJSON(t, e, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.AccessToken)

	return created.ID, login.AccessToken
}

func TestAuthRoutes_AccountLifecycle(t *testing.T) {
	e := newTestServer(t)

	rec, env := doJSON(t, e, http.MethodPost, "/auth/create_account", "", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	// Duplicate email is a 400 with a stable error code.
	rec, env = doJSON(t, e, http.MethodPost, "/auth/create_account", "", map[string]any{
		"name":     "Alice Again",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMAIL_TAKEN", env.Error.Code)

	// Wrong password is rejected with 400.
	rec, env = doJSON(t, e, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	// Missing fields fail validation.
	rec, env = doJSON(t, e, http.MethodPost, "/auth/create_account", "", map[string]any{
		"email": "incomplete@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestAuthRoutes_LoginForm(t *testing.T) {
	e := newTestServer(t)
	createAccountAndLogin(t, e, "form@example.com", false)

	form := url.Values{}
	form.Set("username", "form@example.com")
	form.Set("password", "password123")

	req := httptest.NewRequest(http.MethodPost, "/auth/login-form", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "bearer", login.TokenType)
}

func TestAuthRoutes_RefreshAndLogout(t *testing.T) {
	e := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/auth/create_account", "", map[string]any{
		"name":     "Refresher",
		"email":    "refresh@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, e, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "refresh@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	rec, _ = doJSON(t, e, http.MethodPost, "/auth/refresh", "", map[string]any{
		"refresh_token": login.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The GET variant reads the refresh token from the bearer header.
	rec, _ = doJSON(t, e, http.MethodGet, "/auth/refresh", login.RefreshToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, e, http.MethodPost, "/auth/logout", "", map[string]any{
		"refresh_token": login.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The refresh token no longer works after logout.
	rec, env = doJSON(t, e, http.MethodPost, "/auth/refresh", "", map[string]any{
		"refresh_token": login.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", env.Error.Code)
}

func TestOrderRoutes_RequireAuthentication(t *testing.T) {
	e := newTestServer(t)

	rec, env := doJSON(t, e, http.MethodPost, "/order/", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = doJSON(t, e, http.MethodGet, "/order/list", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderRoutes_FullFlow(t *testing.T) {
	e := newTestServer(t)
	userID, token := createAccountAndLogin(t, e, "orders@example.com", false)

	rec, env := doJSON(t, e, http.MethodPost, "/order/", token, map[string]any{
		"user_id": userID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order struct {
		ID     string  `json:"id"`
		Status string  `json:"status"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "PENDING", order.Status)
	assert.Zero(t, order.Price)

	rec, env = doJSON(t, e, http.MethodPost, "/order/"+order.ID+"/items", token, map[string]any{
		"amount":     2,
		"flavor":     "chocolate",
		"size":       "large",
		"unit_price": 5.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		Price float64 `json:"price"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.InDelta(t, 10.0, updated.Price, 1e-9)
	require.Len(t, updated.Items, 1)

	// Remove the item again; the price returns to zero.
	rec, env = doJSON(t, e, http.MethodDelete, "/order/items/"+updated.Items[0].ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Zero(t, updated.Price)

	// Finish, then verify further mutations are rejected.
	rec, _ = doJSON(t, e, http.MethodPost, "/order/"+order.ID+"/finish", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, e, http.MethodPost, "/order/"+order.ID+"/items", token, map[string]any{
		"amount":     1,
		"flavor":     "mint",
		"size":       "small",
		"unit_price": 2.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	// Cancel still succeeds on a finished order.
	rec, env = doJSON(t, e, http.MethodPost, "/order/"+order.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var canceled struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &canceled))
	assert.Equal(t, "CANCELED", canceled.Status)
}

func TestOrderRoutes_OwnershipAndAdmin(t *testing.T) {
	e := newTestServer(t)
	ownerID, ownerToken := createAccountAndLogin(t, e, "owner@example.com", false)
	_, otherToken := createAccountAndLogin(t, e, "other@example.com", false)
	_, adminToken := createAccountAndLogin(t, e, "admin@example.com", true)

	rec, env := doJSON(t, e, http.MethodPost, "/order/", ownerToken, map[string]any{
		"user_id": ownerID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var order struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))

	// Another user cannot see the order.
	rec, env = doJSON(t, e, http.MethodGet, "/order/"+order.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	// An admin can.
	rec, _ = doJSON(t, e, http.MethodGet, "/order/"+order.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Listing everything is admin only.
	rec, _ = doJSON(t, e, http.MethodGet, "/order/list", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = doJSON(t, e, http.MethodGet, "/order/list", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)

	// The scoped listing shows users their own orders only.
	rec, env = doJSON(t, e, http.MethodGet, "/order/", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Empty(t, all)

	rec, env = doJSON(t, e, http.MethodGet, "/order/", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)

	// Per-user listing follows the same ownership rule.
	rec, _ = doJSON(t, e, http.MethodGet, "/order/list/"+ownerID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, e, http.MethodGet, "/order/list/"+ownerID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown orders are 404 regardless of who asks.
	rec, env = doJSON(t, e, http.MethodGet, "/order/00000000-0000-0000-0000-000000000001", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ORDER_NOT_FOUND", env.Error.Code)
}
