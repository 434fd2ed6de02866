package escrow

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	scheduler *Scheduler
}

func NewController(service Service, scheduler *Scheduler) *Controller {
	return &Controller{service: service, scheduler: scheduler}
}

// PayRequest carries an optional payer override for admin-recorded payments
type PayRequest struct {
	GuestID string `json:"guest_id" binding:"omitempty,uuid"`
}

// ProcessPayment handles POST /api/v1/bookings/:id/pay
func (c *Controller) ProcessPayment(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	guestID, ok := userIDFromContext(ctx)
	if !ok {
		return
	}

	var req PayRequest
	if err := ctx.ShouldBindJSON(&req); err == nil && req.GuestID != "" {
		role, _ := ctx.Get("user_role")
		if role == "ADMIN" {
			if override, parseErr := uuid.Parse(req.GuestID); parseErr == nil {
				guestID = override
			}
		}
	}

	result, err := c.service.ProcessGuestPayment(ctx.Request.Context(), bookingID, guestID)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrAlreadyPaid):
			status = http.StatusConflict
		case errors.Is(err, ErrGatewayTimeout):
			status = http.StatusGatewayTimeout
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to process payment",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Payment recorded successfully",
		"data":    result,
	})
}

// ReleaseFunds handles POST /api/v1/admin/bookings/:id/release
func (c *Controller) ReleaseFunds(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	txn, err := c.service.ReleaseFunds(ctx.Request.Context(), bookingID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrAlreadyReleased) {
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to release funds",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Funds released successfully",
		"data":    txn,
	})
}

// RefundRequest carries the reason recorded on the refund transaction
type RefundRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// Refund handles POST /api/v1/admin/bookings/:id/refund
func (c *Controller) Refund(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req RefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := c.service.Refund(ctx.Request.Context(), bookingID, req.Reason)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrAlreadyReleased) {
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to refund booking",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Refund issued successfully",
		"data":    txn,
	})
}

// GetEscrowTransactions handles GET /api/v1/bookings/:id/transactions
func (c *Controller) GetEscrowTransactions(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	txns, err := c.service.GetEscrowTransactions(ctx.Request.Context(), bookingID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve transactions",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data": gin.H{
			"transactions": txns,
			"count":        len(txns),
		},
	})
}

// ListTransactions handles GET /api/v1/admin/transactions
func (c *Controller) ListTransactions(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	txns, total, err := c.service.ListTransactions(ctx.Request.Context(), limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list transactions",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data": gin.H{
			"transactions": txns,
			"count":        len(txns),
			"total":        total,
			"limit":        limit,
			"offset":       offset,
		},
	})
}

// GetPlatformFinancials handles GET /api/v1/admin/financials
func (c *Controller) GetPlatformFinancials(ctx *gin.Context) {
	fin, err := c.service.GetPlatformFinancials(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute financials",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Financials computed successfully",
		"data":    fin,
	})
}

// TriggerSweep handles POST /api/v1/admin/escrow/sweep
func (c *Controller) TriggerSweep(ctx *gin.Context) {
	if c.scheduler == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	result, err := c.scheduler.Sweep(ctx.Request.Context(), time.Now())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Sweep failed",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Sweep completed",
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
