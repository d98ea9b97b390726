package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/kodecamp/lms/docs"
	"github.com/kodecamp/lms/internal/api/handler"
	"github.com/kodecamp/lms/internal/api/middleware"
	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
	"github.com/kodecamp/lms/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Auth    ports.AuthService
	Content ports.ContentService
	// Checks are probed by GET /health/ready.
	Checks []handlers.Check
	Log    zerolog.Logger
	// Registerer receives the HTTP request metrics. Defaults to the
	// Prometheus default registerer.
	Registerer prometheus.Registerer
}

// contentCollections maps URL segments to content kinds.
var contentCollections = map[string]domain.ContentKind{
	"announcements":   domain.KindAnnouncement,
	"lessons":         domain.KindLesson,
	"promotion-tasks": domain.KindPromotionTask,
	"resources":       domain.KindResource,
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = handler.NewValidator()

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "lms",
		Registerer: registerer,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth)
	contentHandler := handler.NewContentHandler(deps.Content)
	requireAuth := middleware.Auth(deps.Auth)
	requireAdmin := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.PUT("/verify-email/:otp", authHandler.VerifyEmail)
	auth.POST("/verify-email/resend", authHandler.ResendVerification)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.PUT("/reset-password/:token", authHandler.ResetPassword)
	auth.PUT("/set-permission/:email", authHandler.SetPermission, requireAuth, requireAdmin)

	// --- Dashboard routes (authenticated) ---
	dashboard := e.Group("/dashboard", requireAuth)
	dashboard.GET("/user/profile", authHandler.Me)
	dashboard.PUT("/user/profile", authHandler.UpdateProfile)

	for segment, kind := range contentCollections {
		dashboard.POST("/"+segment, contentHandler.Create(kind), requireAdmin)
		dashboard.GET("/"+segment, contentHandler.List(kind))
		dashboard.GET("/"+segment+"/:id", contentHandler.Get(kind))
	}
	dashboard.POST("/promotion-tasks/:id/submissions", contentHandler.SubmitTask)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Checks...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog entry per request. It logs the route
// pattern rather than the URI since OTPs and reset tokens travel in the path.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			switch {
			case v.Status >= 500:
				evt = log.Error().Err(v.Error)
			case v.Status >= 400:
				evt = log.Warn()
			}
			evt.
				Str("method", v.Method).
				Str("route", c.Path()).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
