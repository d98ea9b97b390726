package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
)

type stubAuthService struct {
	registerFn      func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	verifyEmailFn   func(ctx context.Context, code string) (*domain.User, error)
	resendFn        func(ctx context.Context, email string) error
	loginFn         func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	forgotFn        func(ctx context.Context, email string) error
	resetFn         func(ctx context.Context, token, password, confirm string) error
	updateProfileFn func(ctx context.Context, user *domain.User, in ports.ProfileInput) (*domain.User, error)
	setPermissionFn func(ctx context.Context, actor *domain.User, email string) (*domain.User, error)
	authenticateFn  func(ctx context.Context, token string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, code string) (*domain.User, error) {
	return s.verifyEmailFn(ctx, code)
}

func (s *stubAuthService) ResendVerification(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	return s.resetFn(ctx, token, password, confirm)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, user *domain.User, in ports.ProfileInput) (*domain.User, error) {
	return s.updateProfileFn(ctx, user, in)
}

func (s *stubAuthService) SetPermission(ctx context.Context, actor *domain.User, email string) (*domain.User, error) {
	return s.setPermissionFn(ctx, actor, email)
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return s.authenticateFn(ctx, token)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

const validRegisterBody = `{"first_name":"Ada","surname":"Lovelace","email":"ada@example.com","password":"Abc12345#","stack":"Backend","track":"golang","proficiency":"beginner"}`

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Email != "ada@example.com" || in.Stack != "Backend" || in.Track != "golang" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Email: in.Email, FirstName: in.FirstName, PasswordHash: "$2a$secret"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/auth/register", validRegisterBody)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["email"] != "ada@example.com" || resp["first_name"] != "Ada" {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrDuplicateEmail
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := jsonContext(e, http.MethodPost, "/auth/register", validRegisterBody)
	err := handler.Register(c)
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"weak password":   `{"first_name":"Ada","surname":"L","email":"ada@example.com","password":"abc"}`,
		"missing surname": `{"first_name":"Ada","email":"ada@example.com","password":"Abc12345#"}`,
		"bad email":       `{"first_name":"Ada","surname":"L","email":"nope","password":"Abc12345#"}`,
		"unknown stack":   `{"first_name":"Ada","surname":"L","email":"ada@example.com","password":"Abc12345#","stack":"plumbing"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newTestEcho()
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			}
			c, _ := jsonContext(e, http.MethodPost, "/auth/register", body)
			err := NewAuthHandler(stub).Register(c)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAuthHandler_Register_WeakPasswordMessage(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPost, "/auth/register", `{"first_name":"Ada","surname":"L","email":"ada@example.com","password":"abcdefgh"}`)
	err := NewAuthHandler(&stubAuthService{}).Register(c)
	if err == nil || err.Error() != domain.ErrWeakPassword.Msg {
		t.Fatalf("expected weak password message, got %v", err)
	}
}

func TestAuthHandler_PasswordByteLimit(t *testing.T) {
	// 25 three-byte runes plus a valid tail: well under 72 characters, over 72 bytes.
	long := strings.Repeat("€", 25) + "Abc1#"
	tooLong := domain.ErrPasswordTooLong.Msg

	t.Run("register", func(t *testing.T) {
		body := `{"first_name":"Ada","surname":"L","email":"ada@example.com","password":"` + long + `"}`
		c, _ := jsonContext(newTestEcho(), http.MethodPost, "/auth/register", body)
		err := NewAuthHandler(&stubAuthService{}).Register(c)
		if err == nil || err.Error() != tooLong {
			t.Fatalf("expected %q, got %v", tooLong, err)
		}
	})

	t.Run("reset", func(t *testing.T) {
		body := `{"password":"` + long + `","confirm_password":"` + long + `"}`
		c, _ := jsonContext(newTestEcho(), http.MethodPut, "/", body)
		c.SetParamNames("token")
		c.SetParamValues("tok")
		err := NewAuthHandler(&stubAuthService{}).ResetPassword(c)
		if !errors.Is(err, domain.ErrValidation) || err.Error() != tooLong {
			t.Fatalf("expected %q, got %v", tooLong, err)
		}
	})

	t.Run("profile", func(t *testing.T) {
		body := `{"old_password":"Abc12345#","password":"` + long + `"}`
		c, _ := jsonContext(newTestEcho(), http.MethodPut, "/dashboard/user/profile", body)
		c.Set(CtxUser, &domain.User{ID: "u1"})
		err := NewAuthHandler(&stubAuthService{}).UpdateProfile(c)
		if !errors.Is(err, domain.ErrValidation) || err.Error() != tooLong {
			t.Fatalf("expected %q, got %v", tooLong, err)
		}
	})

	t.Run("exactly 72 bytes passes", func(t *testing.T) {
		pw := strings.Repeat("a", 67) + "Bc1#d"
		called := false
		stub := &stubAuthService{
			resetFn: func(ctx context.Context, token, password, confirm string) error {
				called = true
				return nil
			},
		}
		body := `{"password":"` + pw + `","confirm_password":"` + pw + `"}`
		c, _ := jsonContext(newTestEcho(), http.MethodPut, "/", body)
		c.SetParamNames("token")
		c.SetParamValues("tok")
		if err := NewAuthHandler(stub).ResetPassword(c); err != nil || !called {
			t.Fatalf("expected pass-through, err=%v called=%v", err, called)
		}
	})
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPost, "/auth/register", "not-json")

	err := NewAuthHandler(&stubAuthService{}).Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verifyEmailFn: func(ctx context.Context, code string) (*domain.User, error) {
			if code != "code-1" {
				return nil, domain.ErrInvalidOrExpiredOTP
			}
			return &domain.User{ID: "u1", EmailVerified: true}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPut, "/", "")
	c.SetParamNames("otp")
	c.SetParamValues("code-1")
	if err := handler.VerifyEmail(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp verifyEmailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || !resp.EmailVerified {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}

	c, _ = jsonContext(e, http.MethodPut, "/", "")
	c.SetParamNames("otp")
	c.SetParamValues("stale")
	if err := handler.VerifyEmail(c); !errors.Is(err, domain.ErrInvalidOrExpiredOTP) {
		t.Fatalf("expected ErrInvalidOrExpiredOTP, got %v", err)
	}
}

func TestAuthHandler_ResendVerification(t *testing.T) {
	e := newTestEcho()
	var got string
	stub := &stubAuthService{
		resendFn: func(ctx context.Context, email string) error {
			got = email
			return nil
		},
	}

	c, rec := jsonContext(e, http.MethodPost, "/auth/verify-email/resend", `{"email":"ada@example.com"}`)
	if err := NewAuthHandler(stub).ResendVerification(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || got != "ada@example.com" {
		t.Fatalf("unexpected result %d %q", rec.Code, got)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
			if email != "ada@example.com" || password != "Abc12345#" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.LoginResult{User: &domain.User{ID: "u1", Email: email}, Token: "token123", ExpiresAt: expires}, nil
		},
	}

	c, rec := jsonContext(e, http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"Abc12345#"}`)
	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" || resp["expires_at"] != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["email"] != "ada@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	for _, want := range []error{domain.ErrInvalidCredentials, domain.ErrEmailNotVerified} {
		e := newTestEcho()
		stub := &stubAuthService{
			loginFn: func(ctx context.Context, email, password string) (*ports.LoginResult, error) {
				return nil, want
			},
		}
		c, _ := jsonContext(e, http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"bad"}`)
		if err := NewAuthHandler(stub).Login(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPost, "/auth/login", `{"email":"ada@example.com"}`)
	if err := NewAuthHandler(&stubAuthService{}).Login(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		forgotFn: func(ctx context.Context, email string) error { return nil },
	}
	c, rec := jsonContext(e, http.MethodPost, "/auth/forgot-password", `{"email":"ghost@example.com"}`)
	if err := NewAuthHandler(stub).ForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		resetFn: func(ctx context.Context, token, password, confirm string) error {
			if token != "tok" || password != "Xyz98765!" || confirm != "Xyz98765!" {
				t.Fatalf("unexpected args: %s %s %s", token, password, confirm)
			}
			return nil
		},
	}
	c, rec := jsonContext(e, http.MethodPut, "/", `{"password":"Xyz98765!","confirm_password":"Xyz98765!"}`)
	c.SetParamNames("token")
	c.SetParamValues("tok")
	if err := NewAuthHandler(stub).ResetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword_BadToken(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		resetFn: func(ctx context.Context, token, password, confirm string) error {
			return domain.ErrInvalidOrExpiredToken
		},
	}
	c, _ := jsonContext(e, http.MethodPut, "/", `{"password":"Xyz98765!","confirm_password":"Xyz98765!"}`)
	c.SetParamNames("token")
	c.SetParamValues("expired")
	if err := NewAuthHandler(stub).ResetPassword(c); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestAuthHandler_SetPermission(t *testing.T) {
	e := newTestEcho()
	admin := &domain.User{ID: "a1", IsAdmin: true}
	stub := &stubAuthService{
		setPermissionFn: func(ctx context.Context, actor *domain.User, email string) (*domain.User, error) {
			if actor != admin || email != "ada@example.com" {
				t.Fatalf("unexpected args: %+v %s", actor, email)
			}
			return &domain.User{ID: "u1", Email: email, IsAdmin: true}, nil
		},
	}
	c, rec := jsonContext(e, http.MethodPut, "/", "")
	c.Set(CtxUser, admin)
	c.SetParamNames("email")
	c.SetParamValues("ada@example.com")

	if err := NewAuthHandler(stub).SetPermission(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_SetPermission_Unauthenticated(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodPut, "/", "")

	err := NewAuthHandler(&stubAuthService{}).SetPermission(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodGet, "/dashboard/user/profile", "")
	c.Set(CtxUser, &domain.User{ID: "u1", Email: "ada@example.com"})

	if err := NewAuthHandler(&stubAuthService{}).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	e := newTestEcho()
	me := &domain.User{ID: "u1"}
	stub := &stubAuthService{
		updateProfileFn: func(ctx context.Context, user *domain.User, in ports.ProfileInput) (*domain.User, error) {
			if user != me {
				t.Fatalf("unexpected user")
			}
			if in.Username == nil || *in.Username != "ada" || in.FirstName != nil {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.OldPassword != "Abc12345#" || in.NewPassword != "Xyz98765!" {
				t.Fatalf("unexpected passwords: %+v", in)
			}
			return &domain.User{ID: "u1", Username: "ada"}, nil
		},
	}
	c, rec := jsonContext(e, http.MethodPut, "/dashboard/user/profile", `{"username":"ada","old_password":"Abc12345#","password":"Xyz98765!"}`)
	c.Set(CtxUser, me)

	if err := NewAuthHandler(stub).UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_UpdateProfile_ServiceError(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		updateProfileFn: func(ctx context.Context, user *domain.User, in ports.ProfileInput) (*domain.User, error) {
			return nil, domain.ErrIncorrectPassword
		},
	}
	c, _ := jsonContext(e, http.MethodPut, "/dashboard/user/profile", `{"old_password":"wrong","password":"Xyz98765!"}`)
	c.Set(CtxUser, &domain.User{ID: "u1"})

	if err := NewAuthHandler(stub).UpdateProfile(c); !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
}
