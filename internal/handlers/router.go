package handlers

import (
	"net/http"

	"claimcheck/internal/config"
	"claimcheck/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires middleware and routes onto a fresh gin engine
func NewRouter(corsOrigins []string, handler *VerificationHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CORSMiddleware(corsOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "claimcheck",
			"version": config.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/extractclaims", handler.ExtractClaims)
		api.POST("/search", handler.Search)
		api.POST("/verifyclaims", handler.VerifyClaims)

		runs := api.Group("/runs")
		{
			runs.POST("", handler.StartRun)
			runs.GET("/:session_id", handler.GetRun)
			runs.DELETE("/:session_id", handler.CancelRun)
			runs.GET("/:session_id/events", handler.StreamRun)
			runs.GET("/:session_id/preview", handler.Preview)
			runs.POST("/:session_id/fixes", handler.AcceptFix)
		}
	}

	return router
}
