package listings

import (
	"stayvault/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupListingRoutes configures all listing-related routes
func SetupListingRoutes(rg *gin.RouterGroup, controller *Controller) {
	RegisterValidators()

	listings := rg.Group("/listings")
	{
		// Public browsing
		listings.GET("", controller.ListListings)                       // GET /api/v1/listings
		listings.GET("/:id", controller.GetListing)                     // GET /api/v1/listings/:id
		listings.GET("/:id/availability", controller.CheckAvailability) // GET /api/v1/listings/:id/availability?date=2025-03-01&hours=9

		// Host operations
		authed := listings.Group("")
		authed.Use(middleware.JWTAuth(), middleware.RequireRoles("HOST", "ADMIN"))
		{
			authed.POST("", controller.CreateListing) // POST /api/v1/listings
		}
	}
}
