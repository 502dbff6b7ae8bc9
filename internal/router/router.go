package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/msp-alerts/internal/middleware"
	"github.com/jwalitptl/msp-alerts/pkg/logger"
)

// Handler is any group of routes mounted under /api/v1.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// RootHandler is mounted at the engine root (health, metrics).
type RootHandler interface {
	RegisterRoutes(gin.IRouter)
}

type RouterConfig struct {
	Timeout time.Duration
	// TimeoutExempt lists full route paths that run without the request timeout.
	TimeoutExempt []string
	MetricsPrefix string
	Registerer    prometheus.Registerer
}

type Router struct {
	engine *gin.Engine
}

func NewRouter(cfg RouterConfig, log *logger.Logger, root []RootHandler, api []Handler) *Router {
	engine := gin.New()

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	httpMetrics := middleware.NewHTTPMetrics(cfg.MetricsPrefix, reg)

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		httpMetrics.Middleware(),
		middleware.ErrorHandler(),
		middleware.Timeout(cfg.Timeout, cfg.TimeoutExempt...),
	)

	for _, h := range root {
		h.RegisterRoutes(engine)
	}

	v1 := engine.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	for _, h := range api {
		h.RegisterRoutes(v1)
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
