package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	DeliveryHandler *handler.DeliveryHandler
	DriverHandler   *handler.DriverHandler
	HubHandler      *handler.HubHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

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
		// Delivery routes.
		deliveries := v1.Group("/deliveries")
		{
			deliveries.POST("", deps.DeliveryHandler.CreateDelivery)
			deliveries.GET("", deps.DeliveryHandler.GetAll)
			deliveries.GET("/track/:trackingNumber", deps.DeliveryHandler.Track)
			deliveries.GET("/:id", deps.DeliveryHandler.GetDelivery)
			deliveries.POST("/:id/status", deps.DeliveryHandler.UpdateStatus)
			deliveries.POST("/:id/legs/:legNumber/assign", deps.DeliveryHandler.AssignDriver)
			deliveries.GET("/:id/legs/:legNumber/candidates", deps.DeliveryHandler.ListCandidates)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.POST("/:id/status", deps.DriverHandler.SetStatus)
		}

		// Hub routes.
		hubs := v1.Group("/hubs")
		{
			hubs.POST("", deps.HubHandler.Create)
			hubs.GET("", deps.HubHandler.GetAll)
			hubs.GET("/:code", deps.HubHandler.GetByCode)
		}
	}

	return router
}
