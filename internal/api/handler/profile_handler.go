package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kodecamp/lms/internal/core/ports"
)

type updateProfileRequest struct {
	FirstName   *string `json:"first_name"`
	Surname     *string `json:"surname"`
	Username    *string `json:"username"`
	Phone       *string `json:"phone"`
	Gender      *string `json:"gender"`
	Stack       *string `json:"stack"       validate:"omitempty,stack"`
	Track       *string `json:"track"`
	Proficiency *string `json:"proficiency" validate:"omitempty,proficiency"`
	OldPassword string  `json:"old_password"`
	Password    string  `json:"password"    validate:"omitempty,passwordbytes"`
}

// Me returns the authenticated user.
//
// @Summary      Current user profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  map[string]string
// @Router       /dashboard/user/profile [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile applies a partial profile update. Setting password requires
// old_password.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /dashboard/user/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.authService.UpdateProfile(c.Request().Context(), user, ports.ProfileInput{
		FirstName:   req.FirstName,
		Surname:     req.Surname,
		Username:    req.Username,
		Phone:       req.Phone,
		Gender:      req.Gender,
		Stack:       req.Stack,
		Track:       req.Track,
		Proficiency: req.Proficiency,
		OldPassword: req.OldPassword,
		NewPassword: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}
