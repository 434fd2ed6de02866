// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"stayvault/internal/bookings"
	"stayvault/internal/disputes"
	"stayvault/internal/escrow"
	"stayvault/internal/ledger"
	"stayvault/internal/listings"
	"stayvault/internal/notifications"
	"stayvault/internal/shared/config"
	"stayvault/internal/shared/database"
	"stayvault/pkg/cache"
	"stayvault/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher
	log       *logger.Logger

	// Cross-package services wired during setup
	listingService listings.Service
	bookingService bookings.Service
	bookingRepo    bookings.Repository
	escrowService  escrow.Service
	scheduler      *escrow.Scheduler
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher, log *logger.Logger) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
		log:       log,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Listings must come first: bookings and escrow depend on them
		r.setupListingRoutes(api)
		r.setupBookingRoutes(api)
		r.setupEscrowRoutes(api)
		r.setupDisputeRoutes(api)
	}
}

// Scheduler exposes the release scheduler so main can run it alongside the
// HTTP server
func (r *Router) Scheduler() *escrow.Scheduler {
	return r.scheduler
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "stayvault-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "stayvault-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupListingRoutes configures listing and availability routes
func (r *Router) setupListingRoutes(rg *gin.RouterGroup) {
	listingRepo := listings.NewRepository(r.db.GetPostgreSQL())

	var cacheService cache.Service
	if r.db.Redis != nil {
		cacheService = cache.NewService(r.db.Redis)
	}

	r.listingService = listings.NewService(listingRepo, cacheService, r.config.Redis.AvailabilityTTL)
	listingController := listings.NewController(r.listingService)

	listings.SetupListingRoutes(rg, listingController)
}

// setupBookingRoutes configures booking lifecycle routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	r.bookingRepo = bookings.NewRepository(r.db.GetPostgreSQL())
	r.bookingService = bookings.NewService(r.bookingRepo, r.listingService, r.config.Escrow, r.log)

	// The availability checker reads booked slots through this adapter
	r.listingService.SetBookingSource(r.bookingService)

	bookingController := bookings.NewController(r.bookingService)
	bookings.SetupBookingRoutes(rg, bookingController)
}

// setupEscrowRoutes configures payment, ledger and financials routes
func (r *Router) setupEscrowRoutes(rg *gin.RouterGroup) {
	ledgerRepo := ledger.NewRepository(r.db.GetPostgreSQL())
	gateway := escrow.NewMockGateway()

	r.escrowService = escrow.NewService(ledgerRepo, r.bookingRepo, r.listingService, gateway, r.publisher, r.config.Escrow, r.log)

	r.scheduler = escrow.NewScheduler(r.escrowService, r.bookingRepo, r.db.Redis, escrow.SchedulerConfig{
		Interval:  r.config.Escrow.SweepInterval,
		BatchSize: r.config.Escrow.SweepBatchSize,
		LockTTL:   r.config.Redis.SweepLockTTL,
	}, r.log)

	escrowController := escrow.NewController(r.escrowService, r.scheduler)
	escrow.SetupEscrowRoutes(rg, escrowController)
}

// setupDisputeRoutes configures dispute routes
func (r *Router) setupDisputeRoutes(rg *gin.RouterGroup) {
	disputeRepo := disputes.NewRepository(r.db.GetPostgreSQL())
	disputeService := disputes.NewService(disputeRepo, r.bookingRepo, r.escrowService, r.publisher, r.log)
	disputeController := disputes.NewController(disputeService)

	disputes.SetupDisputeRoutes(rg, disputeController)
}
