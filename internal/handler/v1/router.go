package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Appointments AppointmentService
	Tokens       middleware.TokenValidator
	RateLimiter  *middleware.RateLimiter
	Metrics      *metrics.Collector
	Log          *zap.Logger
	// Ready reports whether dependencies (the database) are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(d.Log),
		middleware.Metrics(d.Metrics),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				d.Log.Warn("readiness check failed", zap.Error(err))
				respondError(c, http.StatusServiceUnavailable, "not ready")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api/v1")
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Middleware())
	}
	api.Use(middleware.Auth(d.Tokens))
	NewAppointmentHandler(d.Appointments).RegisterRoutes(api)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "route not found")
	})
	return r
}
