package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kodecamp/lms/internal/api/metrics"
	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	FirstName   string `json:"first_name"  validate:"required"`
	Surname     string `json:"surname"     validate:"required"`
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,passwordbytes,strongpassword"`
	Username    string `json:"username"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	Stack       string `json:"stack"       validate:"omitempty,stack"`
	Track       string `json:"track"`
	Proficiency string `json:"proficiency" validate:"omitempty,proficiency"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"         validate:"required,passwordbytes"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type verifyEmailResponse struct {
	Message       string `json:"message"`
	EmailVerified bool   `json:"email_verified"`
}

type loginResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates a new, unverified account and mails a verification code.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      424   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName:   req.FirstName,
		Surname:     req.Surname,
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		Phone:       req.Phone,
		Gender:      req.Gender,
		Stack:       req.Stack,
		Track:       req.Track,
		Proficiency: req.Proficiency,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, user)
}

// VerifyEmail consumes a verification code and marks the account verified.
//
// @Summary      Verify email
// @Tags         auth
// @Produce      json
// @Param        otp  path      string  true  "Verification code"
// @Success      200  {object}  verifyEmailResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/verify-email/{otp} [put]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	if _, err := h.authService.VerifyEmail(c.Request().Context(), c.Param("otp")); err != nil {
		result := "error"
		if errors.Is(err, domain.ErrAuthentication) {
			result = "invalid"
		}
		metrics.EmailVerificationsTotal.WithLabelValues(result).Inc()
		return err
	}
	metrics.EmailVerificationsTotal.WithLabelValues("verified").Inc()
	return c.JSON(http.StatusOK, verifyEmailResponse{Message: "email verified", EmailVerified: true})
}

// ResendVerification mails a fresh verification code. The response does not
// reveal whether the address is registered.
//
// @Summary      Resend verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/verify-email/resend [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "if the account is awaiting verification, a new code has been sent"})
}

// Login authenticates a verified user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, loginResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt})
}

// ForgotPassword mails a password reset link.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("requested", resetResult(err)).Inc()
		return err
	}
	metrics.PasswordResetsTotal.WithLabelValues("requested", "ok").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "if the account exists, a password reset link has been sent"})
}

// ResetPassword sets a new password using a reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  path      string                true  "Reset token"
// @Param        body   body      resetPasswordRequest  true  "New password"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /auth/reset-password/{token} [put]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), c.Param("token"), req.Password, req.ConfirmPassword); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("completed", resetResult(err)).Inc()
		return err
	}
	metrics.PasswordResetsTotal.WithLabelValues("completed", "ok").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "password has been reset"})
}

// SetPermission toggles admin rights on the account with the given email.
//
// @Summary      Toggle admin permission
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string  true  "Target account email"
// @Success      200    {object}  domain.User
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /auth/set-permission/{email} [put]
func (h *AuthHandler) SetPermission(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.authService.SetPermission(c.Request().Context(), actor, c.Param("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
		return "invalid"
	default:
		return "error"
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmailNotVerified):
		return "unverified"
	case errors.Is(err, domain.ErrAuthentication):
		return "invalid_credentials"
	default:
		return "error"
	}
}

func resetResult(err error) string {
	if errors.Is(err, domain.ErrDependency) {
		return "error"
	}
	return "rejected"
}
