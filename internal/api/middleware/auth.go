package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kodecamp/lms/internal/core/domain"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Auth validates the bearer token and injects the current user into context
// under "user", plus "user_id" and "role" for RBAC.
func Auth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			user, err := auth.Authenticate(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				// Store outages surface as dependency failures, not 401.
				if errors.Is(err, domain.ErrDependency) {
					return err
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("role", user.Role())

			return next(c)
		}
	}
}
