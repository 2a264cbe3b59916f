package http

import (
	"github.com/gin-gonic/gin"

	"github.com/smartshop/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, hub *ProgressHub) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		v1.GET("/state", handler.GetState)

		items := v1.Group("/items")
		{
			items.GET("", handler.ListItems)
			items.POST("", handler.AddItem)
			items.DELETE("", handler.ClearItems)
			items.DELETE("/:id", handler.RemoveItem)
			items.POST("/basket", handler.LoadBasicBasket)
			items.POST("/receipt", handler.ImportReceipt)
		}

		lists := v1.Group("/lists")
		{
			lists.GET("", handler.ListSavedLists)
			lists.POST("", handler.SaveList)
			lists.POST("/suggestion", handler.SuggestListName)
			lists.POST("/:id/load", handler.LoadSavedList)
			lists.DELETE("/:id", handler.DeleteSavedList)
		}

		optimize := v1.Group("/optimize")
		{
			optimize.POST("", handler.Optimize)
			optimize.GET("/progress", handler.GetProgress)
			optimize.GET("/ws", hub.HandleWS)
		}

		v1.GET("/results", handler.GetResults)
	}

	return router
}
