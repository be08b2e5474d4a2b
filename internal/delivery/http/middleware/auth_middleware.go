package middleware

import (
	"strings"

	"orderdesk/internal/domain/entity"
	domainerrors "orderdesk/internal/domain/errors"
	"orderdesk/internal/domain/repository"
	"orderdesk/internal/domain/service"

	"github.com/labstack/echo/v4"
)

const currentUserKey = "currentUser"

// AuthMiddleware provides middleware for JWT authentication and authorization.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	userRepo repository.UserRepository
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, userRepo: userRepo}
}

// Authenticate validates the access token and resolves its subject to a user.
// A syntactically valid token whose subject no longer exists (or is disabled)
// is rejected the same way as a bad token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return domainerrors.ErrUnauthorized.WrapMessage("authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return domainerrors.ErrUnauthorized.WrapMessage("authorization header must be a Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString, service.TokenTypeAccess)
		if err != nil {
			return domainerrors.ErrUnauthorized.WrapMessage("invalid or expired token")
		}

		user, err := m.userRepo.FindByID(c.Request().Context(), claims.UserID)
		if err != nil {
			return domainerrors.ErrUnauthorized.WrapMessage("token subject is unknown")
		}
		if !user.Active {
			return domainerrors.ErrUnauthorized.WrapMessage("account is disabled")
		}

		c.Set(currentUserKey, user)

		return next(c)
	}
}

// RequireAdmin rejects non-admin users.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if !user.Admin {
			return domainerrors.ErrForbidden.WrapMessage("admin privileges required")
		}

		return next(c)
	}
}

// CurrentUser returns the authenticated user stored by Authenticate.
func CurrentUser(c echo.Context) (*entity.User, error) {
	user, ok := c.Get(currentUserKey).(*entity.User)
	if !ok || user == nil {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("no authenticated user on request")
	}

	return user, nil
}
