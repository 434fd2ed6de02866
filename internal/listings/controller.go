package listings

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateListing handles POST /api/v1/listings
func (c *Controller) CreateListing(ctx *gin.Context) {
	hostID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	var req CreateListingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	listing, err := c.service.CreateListing(ctx.Request.Context(), hostID, req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to create listing",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Listing created successfully",
		"data":    listing,
	})
}

// GetListing handles GET /api/v1/listings/:id
func (c *Controller) GetListing(ctx *gin.Context) {
	listingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	listing, err := c.service.GetListing(ctx.Request.Context(), listingID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "Listing not found",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Listing retrieved successfully",
		"data":    listing,
	})
}

// ListListings handles GET /api/v1/listings
func (c *Controller) ListListings(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	list, total, err := c.service.ListListings(ctx.Request.Context(), limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list listings",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Listings retrieved successfully",
		"data": gin.H{
			"listings": list,
			"count":    len(list),
			"total":    total,
			"limit":    limit,
			"offset":   offset,
		},
	})
}

// CheckAvailability handles GET /api/v1/listings/:id/availability
func (c *Controller) CheckAvailability(ctx *gin.Context) {
	listingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	var query AvailabilityQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid availability query",
			"details": err.Error(),
		})
		return
	}

	date, err := time.Parse("2006-01-02", query.Date)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	result, err := c.service.CheckAvailability(ctx.Request.Context(), listingID, date, query.Hours)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to check availability",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Availability checked successfully",
		"data":    result,
	})
}

// userIDFromContext extracts the authenticated user id set by JWT middleware
func userIDFromContext(ctx *gin.Context) (uuid.UUID, bool) {
	userIDInterface, exists := ctx.Get("user_id")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}

	userIDStr, ok := userIDInterface.(string)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}

	return userID, true
}
