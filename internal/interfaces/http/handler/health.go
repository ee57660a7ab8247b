package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/commandx/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the health of the database and optional backends
type HealthHandler struct {
	checks  map[string]HealthCheck
	order   []string
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a health handler. database is always probed.
func NewHealthHandler(database HealthCheck) *HealthHandler {
	h := &HealthHandler{
		checks:  map[string]HealthCheck{},
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	return h.With("database", database)
}

// With adds a named probe, e.g. "redis"
func (h *HealthHandler) With(name string, check HealthCheck) *HealthHandler {
	if _, exists := h.checks[name]; !exists {
		h.order = append(h.order, name)
	}
	h.checks[name] = check
	return h
}

// Handle serves GET /health. Any failing probe yields 503.
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	body := gin.H{}
	for _, name := range h.order {
		if err := h.checks[name](ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.String("check", name), zap.Error(err))
			body[name] = "error"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	body["status"] = status
	body["time"] = h.now().Format(time.RFC3339)
	c.JSON(code, body)
}
