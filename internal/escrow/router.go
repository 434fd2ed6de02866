package escrow

import (
	"stayvault/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupEscrowRoutes configures payment, financial, and scheduler routes
func SetupEscrowRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth())
	{
		bookings.POST("/:id/pay", controller.ProcessPayment)                // POST /api/v1/bookings/:id/pay
		bookings.GET("/:id/transactions", controller.GetEscrowTransactions) // GET /api/v1/bookings/:id/transactions
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("/bookings/:id/release", controller.ReleaseFunds) // POST /api/v1/admin/bookings/:id/release
		admin.POST("/bookings/:id/refund", controller.Refund)        // POST /api/v1/admin/bookings/:id/refund
		admin.GET("/transactions", controller.ListTransactions)      // GET /api/v1/admin/transactions
		admin.GET("/financials", controller.GetPlatformFinancials)   // GET /api/v1/admin/financials
		admin.POST("/escrow/sweep", controller.TriggerSweep)         // POST /api/v1/admin/escrow/sweep
	}
}
