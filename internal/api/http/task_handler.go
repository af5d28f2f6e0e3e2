package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	wesapp "github.com/levijcl/Wei-sub000/internal/wes/application"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// TaskHandler handles picking task HTTP requests
type TaskHandler struct {
	tasks   *wesapp.PickingTaskApplicationService
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewTaskHandler creates a new picking task handler
func NewTaskHandler(tasks *wesapp.PickingTaskApplicationService, logger *logging.Logger, m *metrics.Metrics) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		logger:  logger.WithComponent("api.picking-tasks"),
		metrics: m,
	}
}

// RegisterRoutes registers the picking task routes
func (h *TaskHandler) RegisterRoutes(r *gin.RouterGroup) {
	tasks := r.Group("/picking-tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.GET("/:id", h.GetTask)
		tasks.PUT("/:id/priority", h.AdjustPriority)
		tasks.POST("/:id/cancel", h.CancelTask)
	}
}

type adjustPriorityRequest struct {
	Priority int `json:"priority" binding:"required,min=1,max=10"`
}

type cancelTaskRequest struct {
	Reason string `json:"reason"`
}

// ListTasks handles GET /picking-tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var (
		tasks interface{}
		err   error
	)
	if orderID := c.Query("orderId"); orderID != "" {
		tasks, err = h.tasks.ListTasksForOrder(c.Request.Context(), orderID)
	} else {
		tasks, err = h.tasks.ListOpenTasks(c.Request.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to list picking tasks")
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTask handles GET /picking-tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID := c.Param("id")

	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, task)
}

// AdjustPriority handles PUT /picking-tasks/:id/priority
func (h *TaskHandler) AdjustPriority(c *gin.Context) {
	taskID := c.Param("id")

	var req adjustPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid priority request", "task_id", taskID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tasks.AdjustTaskPriority(c.Request.Context(), taskID, req.Priority); err != nil {
		h.logger.WithError(err).Error("Failed to adjust task priority", "task_id", taskID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Task priority adjusted", "task_id", taskID, "priority", req.Priority)
	c.JSON(http.StatusOK, gin.H{"taskId": taskID, "priority": req.Priority})
}

// CancelTask handles POST /picking-tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("id")

	var req cancelTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Reason == "" {
		req.Reason = "canceled by operator"
	}

	if err := h.tasks.CancelTask(c.Request.Context(), taskID, req.Reason); err != nil {
		h.logger.WithError(err).Error("Failed to cancel task", "task_id", taskID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Task cancel requested", "task_id", taskID, "reason", req.Reason)
	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID, "status": "canceling"})
}
