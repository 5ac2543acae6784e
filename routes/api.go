package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/gazetteer-geocoder/app/controllers"
)

// SetupAPIRoutes registers the versioned API.
func SetupAPIRoutes(router *gin.Engine, geocodeController *controllers.GeocodeController, adminController *controllers.AdminController) {
	v1 := router.Group("/v1")
	{
		locations := v1.Group("/locations")
		{
			locations.POST("/resolve", geocodeController.Resolve)
			locations.POST("/extract", geocodeController.Extract)
			locations.GET("/nearby", geocodeController.Nearby)
			locations.POST("/jobs", geocodeController.BatchResolve)
			locations.GET("/jobs/:id", geocodeController.JobStatus)
			locations.GET("/jobs/:id/results", geocodeController.JobResults)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/reindex", adminController.Reindex)
			admin.POST("/settlements", adminController.AddSettlement)
			admin.DELETE("/settlements/:id", adminController.DeleteSettlement)
			admin.POST("/aliases", adminController.AddAlias)
			admin.POST("/cache/clear", adminController.ClearCache)
			admin.GET("/stats", adminController.Stats)
		}

		v1.GET("/health", geocodeController.Health)
	}
}

// SetupHealthRoutes registers unversioned probes.
func SetupHealthRoutes(router *gin.Engine, geocodeController *controllers.GeocodeController) {
	router.GET("/health", geocodeController.Health)
	router.GET("/ready", geocodeController.Health)
	router.GET("/live", geocodeController.Health)
}
