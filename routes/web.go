package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes registers the root and docs endpoints.
func SetupWebRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Gazetteer Geocoder",
			"docs":    "/docs",
		})
	})

	router.GET("/docs", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"api": "Gazetteer Geocoder API v1",
			"endpoints": map[string]string{
				"resolve":     "POST /v1/locations/resolve",
				"extract":     "POST /v1/locations/extract",
				"nearby":      "GET /v1/locations/nearby",
				"batch":       "POST /v1/locations/jobs",
				"job_status":  "GET /v1/locations/jobs/:id",
				"job_results": "GET /v1/locations/jobs/:id/results",
				"health":      "GET /v1/health",
			},
		})
	})
}
