package bookings

import (
	"stayvault/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth())
	{
		bookings.POST("", controller.CreateBooking)                   // POST /api/v1/bookings
		bookings.GET("", controller.GetMyBookings)                    // GET /api/v1/bookings
		bookings.GET("/hosting", controller.GetHostBookings)          // GET /api/v1/bookings/hosting
		bookings.GET("/:id", controller.GetBooking)                   // GET /api/v1/bookings/:id
		bookings.POST("/:id/cancel", controller.CancelBooking)        // POST /api/v1/bookings/:id/cancel
		bookings.POST("/:id/handshake", controller.VerifyHandshake)   // POST /api/v1/bookings/:id/handshake
	}

	admin := rg.Group("/admin/bookings")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.GET("", controller.GetAllBookings) // GET /api/v1/admin/bookings
	}
}
