package disputes

import (
	"errors"
	"net/http"
	"strconv"

	"stayvault/internal/escrow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// OpenDisputeRequest raises a dispute on a booking
type OpenDisputeRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
	Reason    string `json:"reason" binding:"required,min=10,max=2000"`
}

// ResolveDisputeRequest carries the explicit admin decision
type ResolveDisputeRequest struct {
	Decision string `json:"decision" binding:"required,oneof=REFUND_GUEST RELEASE_TO_HOST"`
	Note     string `json:"note" binding:"required,min=3,max=2000"`
}

// OpenDispute handles POST /api/v1/disputes
func (c *Controller) OpenDispute(ctx *gin.Context) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	var req OpenDisputeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	dispute, err := c.service.Open(ctx.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrNotParty):
			status = http.StatusForbidden
		case errors.Is(err, ErrAlreadyDisputed):
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to open dispute",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Dispute opened successfully",
		"data":    dispute,
	})
}

// GetDispute handles GET /api/v1/admin/disputes/:id
func (c *Controller) GetDispute(ctx *gin.Context) {
	disputeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dispute ID"})
		return
	}

	view, err := c.service.Get(ctx.Request.Context(), disputeID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "Dispute not found",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Dispute retrieved successfully",
		"data":    view,
	})
}

// ListDisputes handles GET /api/v1/admin/disputes
func (c *Controller) ListDisputes(ctx *gin.Context) {
	status := Status(ctx.Query("status"))
	if status != "" && !status.IsValid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	disputes, total, err := c.service.List(ctx.Request.Context(), status, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list disputes",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Disputes retrieved successfully",
		"data": gin.H{
			"disputes": disputes,
			"count":    len(disputes),
			"total":    total,
		},
	})
}

// BeginReview handles POST /api/v1/admin/disputes/:id/review
func (c *Controller) BeginReview(ctx *gin.Context) {
	disputeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dispute ID"})
		return
	}

	dispute, err := c.service.BeginReview(ctx.Request.Context(), disputeID)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrBadTransition):
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to begin review",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Dispute moved to review",
		"data":    dispute,
	})
}

// ResolveDispute handles POST /api/v1/admin/disputes/:id/resolve
func (c *Controller) ResolveDispute(ctx *gin.Context) {
	adminID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	disputeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dispute ID"})
		return
	}

	var req ResolveDisputeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	dispute, err := c.service.Resolve(ctx.Request.Context(), disputeID, escrow.Decision(req.Decision), req.Note, adminID)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrAlreadyResolved), errors.Is(err, escrow.ErrDisputeNotOpen), errors.Is(err, escrow.ErrAlreadyReleased):
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to resolve dispute",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Dispute resolved successfully",
		"data":    dispute,
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
