package disputes

import (
	"stayvault/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupDisputeRoutes configures dispute routes
func SetupDisputeRoutes(rg *gin.RouterGroup, controller *Controller) {
	disputes := rg.Group("/disputes")
	disputes.Use(middleware.JWTAuth())
	{
		disputes.POST("", controller.OpenDispute) // POST /api/v1/disputes
	}

	admin := rg.Group("/admin/disputes")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.GET("", controller.ListDisputes)                // GET /api/v1/admin/disputes
		admin.GET("/:id", controller.GetDispute)              // GET /api/v1/admin/disputes/:id
		admin.POST("/:id/review", controller.BeginReview)     // POST /api/v1/admin/disputes/:id/review
		admin.POST("/:id/resolve", controller.ResolveDispute) // POST /api/v1/admin/disputes/:id/resolve
	}
}
