package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nidahp/portal-api/internal/handler/prometheus"
	"github.com/nidahp/portal-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	config   RouterConfig
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   Handler
	metrics  *prometheus.Handler
	handlers []Handler
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        float64
	RateBurst        int
	Timeout          time.Duration
	CORSOrigins      []string
	DisableMetrics   bool
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	health Handler,
	metrics *prometheus.Handler,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	mode := config.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	middleware.RegisterValidators()

	engine := gin.New()

	r := &Router{
		config:   config,
		engine:   engine,
		auth:     auth,
		health:   health,
		metrics:  metrics,
		handlers: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.CORS(middleware.DefaultCORSConfig(config.CORSOrigins...)),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public routes
	r.health.RegisterRoutes(api)
	if !r.config.DisableMetrics {
		api.GET("/metrics", r.metrics.Handler())
	}

	// Protected routes; role guards live with each handler's routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.handlers {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
