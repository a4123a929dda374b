package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-grid/internal/adapters/handler/http/middleware"
)

const (
	DefaultRateLimit  = 100
	DefaultRateWindow = time.Minute
)

type RouterDependencies struct {
	HabitHandler       *HabitHandler
	LogHandler         *LogHandler
	StatsHandler       *StatsHandler
	ViewportHandler    *ViewportHandler
	PortabilityHandler *PortabilityHandler
	TokenService       middleware.TokenValidator
	// DB is nil when the server runs on the in-memory store.
	DB         *sqlx.DB
	Redis      *redis.Client
	RateLimit  int
	RateWindow time.Duration
	StartTime  time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		dbStatus := "disabled"
		if deps.DB != nil {
			dbStatus = "up"
			if err := deps.DB.PingContext(c.Request.Context()); err != nil {
				dbStatus = "down"
			}
		}

		redisStatus := cache.Status(c.Request.Context(), deps.Redis)

		statusCode := http.StatusOK
		if dbStatus == "down" || redisStatus == "down" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":   "ok",
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	})

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(deps.TokenService))
	if deps.Redis != nil {
		limit, window := deps.RateLimit, deps.RateWindow
		if limit <= 0 {
			limit = DefaultRateLimit
		}
		if window <= 0 {
			window = DefaultRateWindow
		}
		apiV1.Use(middleware.RateLimiterMiddleware(deps.Redis, limit, window))
	}
	{
		deps.HabitHandler.RegisterRoutes(apiV1)
		deps.LogHandler.RegisterRoutes(apiV1)
		deps.StatsHandler.RegisterRoutes(apiV1)
		deps.ViewportHandler.RegisterRoutes(apiV1)
		deps.PortabilityHandler.RegisterRoutes(apiV1)
	}

	return router
}
