package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/urovital/clinic-api/internal/handler/prometheus"
	"github.com/urovital/clinic-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AdminHandler also contributes routes to the /admin group.
type AdminHandler interface {
	Handler
	RegisterAdminRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Health       Handler
	Auth         Handler
	Access       Handler
	Notification AdminHandler
	Actor        Handler
	Metrics      *prometheus.Handler
}

type RouterConfig struct {
	RequestTimeout   time.Duration
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	Security         middleware.SecurityConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, logger zerolog.Logger, config RouterConfig) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.SecurityHeaders(config.Security),
	)
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(config.RequestTimeout))
	}

	return r
}

func (r *Router) Setup() {
	r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)
	if r.handlers.Metrics != nil {
		r.engine.GET("/metrics", r.handlers.Metrics.Handler())
	}

	api := r.engine.Group("/api/v1")

	// Public routes. Register resolves an optional caller on its own.
	r.handlers.Auth.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.handlers.Access.RegisterRoutes(protected)
	r.handlers.Notification.RegisterRoutes(protected)

	admin := protected.Group("/admin")
	r.handlers.Actor.RegisterRoutes(admin)
	r.handlers.Notification.RegisterAdminRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
