package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/univlib/lending-system/docs"
	"github.com/univlib/lending-system/internal/api/handler"
	"github.com/univlib/lending-system/internal/api/metrics"
	"github.com/univlib/lending-system/internal/api/middleware"
	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

// Dependencies are the collaborators the router wires into handlers.
// Mongo, Redis and SQLite may be nil when disabled.
type Dependencies struct {
	Service ports.LendingService
	Mongo   *mongo.Database
	Redis   *redis.Client
	SQLite  handler.Pinger
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware(metrics.Namespace))

	// --- Probes, metrics, docs (no identity required) ---
	healthHandler := handler.NewHealthHandler()
	readyHandler := handler.NewReadinessHandler(deps.Service, deps.Mongo, deps.Redis, deps.SQLite)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readyHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- API v1 ---
	items := handler.NewItemHandler(deps.Service)
	patrons := handler.NewPatronHandler(deps.Service)
	loans := handler.NewLoanHandler(deps.Service)
	librarian := middleware.RequireRole(domain.RoleLibrarian)

	v1 := e.Group("/v1", middleware.Identify(deps.Service))

	v1.GET("/items", items.List)
	v1.GET("/items/:id", items.Get)
	v1.POST("/items", items.Create, librarian)
	v1.DELETE("/items/:id", items.Delete, librarian)

	v1.GET("/patrons/:id", patrons.Get)
	v1.POST("/patrons", patrons.Register, librarian)
	v1.DELETE("/patrons/:id", patrons.Delete, librarian)
	v1.POST("/patrons/:id/guardian", patrons.AssignGuardian, librarian)
	v1.GET("/patrons/:id/loans", patrons.Loans)
	v1.GET("/patrons/:id/history", patrons.History)

	v1.POST("/loans", loans.Borrow)
	v1.POST("/loans/return", loans.Return)
	v1.POST("/loans/renew", loans.Renew)
	v1.GET("/loans", loans.Ledger, librarian)
	v1.GET("/loans/report", loans.Report, librarian)
	v1.GET("/loans/overdue", loans.Overdue, librarian)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
