package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	invapp "github.com/levijcl/Wei-sub000/internal/inventory/application"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// InventoryHandler handles inventory transaction and adjustment HTTP requests
type InventoryHandler struct {
	transactions *invapp.InventoryTransactionApplicationService
	adjustments  *invapp.InventoryAdjustmentApplicationService
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(
	transactions *invapp.InventoryTransactionApplicationService,
	adjustments *invapp.InventoryAdjustmentApplicationService,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryHandler {
	return &InventoryHandler{
		transactions: transactions,
		adjustments:  adjustments,
		logger:       logger.WithComponent("api.inventory"),
		metrics:      m,
	}
}

// RegisterRoutes registers the inventory routes
func (h *InventoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/orders/:id/transactions", h.ListOrderTransactions)
	r.GET("/inventory-transactions/:id", h.GetTransaction)

	adjustments := r.Group("/inventory-adjustments")
	{
		adjustments.GET("", h.ListPendingAdjustments)
		adjustments.GET("/:id", h.GetAdjustment)
		adjustments.POST("/:id/apply", h.ApplyAdjustment)
	}
}

// ListOrderTransactions handles GET /orders/:id/transactions
func (h *InventoryHandler) ListOrderTransactions(c *gin.Context) {
	orderID := c.Param("id")

	txs, err := h.transactions.ListTransactionsBySource(c.Request.Context(), orderID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list transactions", "order_id", orderID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// GetTransaction handles GET /inventory-transactions/:id
func (h *InventoryHandler) GetTransaction(c *gin.Context) {
	transactionID := c.Param("id")

	tx, err := h.transactions.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListPendingAdjustments handles GET /inventory-adjustments
func (h *InventoryHandler) ListPendingAdjustments(c *gin.Context) {
	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	adjustments, err := h.adjustments.ListPendingAdjustments(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pending adjustments")
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"adjustments": adjustments})
}

// GetAdjustment handles GET /inventory-adjustments/:id
func (h *InventoryHandler) GetAdjustment(c *gin.Context) {
	adjustmentID := c.Param("id")

	adjustment, err := h.adjustments.GetAdjustment(c.Request.Context(), adjustmentID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, adjustment)
}

// ApplyAdjustment handles POST /inventory-adjustments/:id/apply
func (h *InventoryHandler) ApplyAdjustment(c *gin.Context) {
	adjustmentID := c.Param("id")

	if err := h.adjustments.ApplyAdjustment(c.Request.Context(), adjustmentID, events.Manual()); err != nil {
		h.logger.WithError(err).Error("Failed to apply adjustment", "adjustment_id", adjustmentID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Adjustment applied", "adjustment_id", adjustmentID)
	c.JSON(http.StatusOK, gin.H{"adjustmentId": adjustmentID, "status": "applied"})
}
