package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kodecamp/lms/internal/core/domain"
)

// Context keys written by the Auth middleware.
const (
	CtxUser   = "user"
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// currentUser returns the user the Auth middleware resolved for this
// request. A missing user means the route was mounted without the
// middleware, which is reported as 401 rather than a panic.
func currentUser(c echo.Context) (*domain.User, error) {
	u, _ := c.Get(CtxUser).(*domain.User)
	if u == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return u, nil
}
