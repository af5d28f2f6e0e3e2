package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/levijcl/Wei-sub000/internal/audit"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/logging"
)

// AuditHandler exposes the audit trail and the dead letter queue for operators
type AuditHandler struct {
	store  *audit.Store
	logger *logging.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(store *audit.Store, logger *logging.Logger) *AuditHandler {
	return &AuditHandler{
		store:  store,
		logger: logger.WithComponent("api.audit"),
	}
}

// RegisterRoutes registers the audit routes
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	trail := r.Group("/audit")
	{
		trail.GET("/records", h.ListRecords)
		trail.GET("/dead-letters", h.ListDeadLetters)
	}
}

// ListRecords handles GET /audit/records
func (h *AuditHandler) ListRecords(c *gin.Context) {
	correlationID := c.Query("correlationId")
	if correlationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correlationId query parameter is required"})
		return
	}

	limit, ok := parseLimit(c, 200)
	if !ok {
		return
	}

	records, err := h.store.FindByCorrelation(c.Request.Context(), correlationID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query audit records", "correlation_id", correlationID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ListDeadLetters handles GET /audit/dead-letters
func (h *AuditHandler) ListDeadLetters(c *gin.Context) {
	limit, ok := parseLimit(c, 50)
	if !ok {
		return
	}

	deadLetters, err := h.store.FindDeadLetters(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query dead letters")
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deadLetters": deadLetters})
}

func parseLimit(c *gin.Context, fallback int64) (int64, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return parsed, true
}
