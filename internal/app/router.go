package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"triplog/internal/handler"
	"triplog/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	UserHandler      *handler.UserHandler
	TripHandler      *handler.TripHandler
	RecordingHandler *handler.RecordingHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.Identity())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Idempotency needs Redis; skipped when running without it.
	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.POST("/login", deps.UserHandler.Login)
			users.POST("/password", deps.UserHandler.ChangePassword)
		}

		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.GET("", deps.TripHandler.List)
			trips.GET("/:id", deps.TripHandler.Get)
			trips.PATCH("/:id", deps.TripHandler.Update)
			trips.DELETE("/:id", deps.TripHandler.Delete)
			trips.POST("/:id/positions", deps.TripHandler.AppendPosition)
		}

		// Recording routes.
		recordings := v1.Group("/recordings")
		{
			recordings.GET("", deps.RecordingHandler.Status)
			recordings.GET("/live", deps.RecordingHandler.Live)
			recordings.POST("/start", deps.RecordingHandler.Start)
			recordings.POST("/fixes", deps.RecordingHandler.Fix)
			recordings.POST("/stop", deps.RecordingHandler.Stop)
			recordings.POST("/reset", deps.RecordingHandler.Reset)
			recordings.POST("/commit", deps.RecordingHandler.Commit)
		}
	}

	return router
}
