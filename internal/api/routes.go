package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes. Health and metrics endpoints stay
// open; everything under /api/v1 requires a valid JWT when jwtSecret is
// non-empty.
func SetupRoutes(router *gin.Engine, handler *Handler, jwtSecret string, metricsHandler http.Handler) {
	// Health and readiness checks
	router.GET("/health", handler.HealthCheck)
	router.GET("/ready", handler.ReadyCheck)

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API v1 routes - protected with JWT when a secret is configured
	v1 := router.Group("/api/v1")
	if jwtSecret != "" {
		v1.Use(JWTMiddleware(jwtSecret))
	}
	{
		// Analysis endpoints
		analyze := v1.Group("/analyze")
		{
			analyze.POST("", handler.Analyze)                // POST /api/v1/analyze
			analyze.POST("/preview", handler.AnalyzePreview) // POST /api/v1/analyze/preview
		}

		// Record ingestion and stored result endpoints
		scopes := v1.Group("/scopes")
		{
			scopes.PUT("/:project/records", handler.SyncRecords)       // PUT /api/v1/scopes/:project/records
			scopes.GET("/:project/pages", handler.GetPages)            // GET /api/v1/scopes/:project/pages
			scopes.GET("/:project/clusters", handler.GetQueryClusters) // GET /api/v1/scopes/:project/clusters
			scopes.GET("/:project/topics", handler.GetTopicClusters)   // GET /api/v1/scopes/:project/topics
		}

		// Standalone analysis endpoints
		v1.POST("/content/quality", handler.ContentQuality) // POST /api/v1/content/quality
		v1.POST("/intent", handler.ClassifyIntent)          // POST /api/v1/intent

		// Reporting configuration for dashboard consumers
		v1.GET("/reporting/thresholds", handler.GetReportingThresholds) // GET /api/v1/reporting/thresholds
	}
}
