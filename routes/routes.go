package routes

// Routing for the gazetteer geocoder service.
//
// Layout:
// - api.go: API routes (/v1/*)
// - web.go: root and docs routes
// - routes.go: aggregate setup

import (
	"github.com/gin-gonic/gin"

	"github.com/gazetteer-geocoder/app/controllers"
)

// SetupAllRoutes wires every route group onto the engine.
func SetupAllRoutes(router *gin.Engine, geocodeController *controllers.GeocodeController, adminController *controllers.AdminController) {
	SetupAPIRoutes(router, geocodeController, adminController)
	SetupHealthRoutes(router, geocodeController)
	SetupWebRoutes(router)
}
