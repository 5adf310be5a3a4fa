package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthHandler handles GET /health, the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ConsistencyChecker verifies the engine's catalog, registry and ledger agree.
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context) error
}

// Pinger is satisfied by optional stores such as the SQLite journal.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessHandler handles GET /health/ready. It checks engine consistency
// and every configured dependency; a nil dependency is reported as disabled.
type ReadinessHandler struct {
	engine ConsistencyChecker
	mongo  *mongo.Database
	redis  *redis.Client
	sqlite Pinger
}

func NewReadinessHandler(engine ConsistencyChecker, db *mongo.Database, rdb *redis.Client, sqlite Pinger) *ReadinessHandler {
	return &ReadinessHandler{
		engine: engine,
		mongo:  db,
		redis:  rdb,
		sqlite: sqlite,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

var statusDisabled = dependencyStatus{Status: "disabled"}

func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			return
		}
		deps[name] = dependencyStatus{Status: "ok"}
	}

	check("engine", h.engine.CheckConsistency(ctx))

	if h.mongo != nil {
		check("mongodb", h.mongo.Client().Ping(ctx, nil))
	} else {
		deps["mongodb"] = statusDisabled
	}

	if h.redis != nil {
		check("redis", h.redis.Ping(ctx).Err())
	} else {
		deps["redis"] = statusDisabled
	}

	if h.sqlite != nil {
		check("sqlite", h.sqlite.Ping(ctx))
	} else {
		deps["sqlite"] = statusDisabled
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
