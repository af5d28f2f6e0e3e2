package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	orderapp "github.com/levijcl/Wei-sub000/internal/order/application"
	orderdomain "github.com/levijcl/Wei-sub000/internal/order/domain"
	apperrors "github.com/levijcl/Wei-sub000/pkg/errors"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
			return orderdomain.Status(fl.Field().String()).IsValid()
		})
	}
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	orders  *orderapp.OrderApplicationService
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *orderapp.OrderApplicationService, logger *logging.Logger, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		logger:  logger.WithComponent("api.orders"),
		metrics: m,
	}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/fulfillment", h.InitiateFulfillment)
		orders.POST("/:id/shipment", h.MarkShipped)
	}
}

type createOrderRequest struct {
	OrderID                    string            `json:"orderId" binding:"required"`
	Items                      []lineItemRequest `json:"items" binding:"required,min=1,dive"`
	ScheduledPickupTime        *time.Time        `json:"scheduledPickupTime"`
	FulfillmentLeadTimeMinutes int               `json:"fulfillmentLeadTimeMinutes" binding:"omitempty,min=0"`
}

type lineItemRequest struct {
	SKU      string  `json:"sku" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Price    float64 `json:"price" binding:"omitempty,min=0"`
}

type listOrdersQuery struct {
	Status string `form:"status" binding:"required,orderstatus"`
	Limit  int64  `form:"limit" binding:"omitempty,min=1"`
}

type markShippedRequest struct {
	Carrier        string `json:"carrier" binding:"required"`
	TrackingNumber string `json:"trackingNumber" binding:"required"`
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create order request", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := orderapp.CreateOrderCommand{
		OrderID:             req.OrderID,
		ScheduledPickupTime: req.ScheduledPickupTime,
		FulfillmentLeadTime: time.Duration(req.FulfillmentLeadTimeMinutes) * time.Minute,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, orderapp.LineItemInput{
			SKU:      item.SKU,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create order", "order_id", req.OrderID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Order created", "order_id", order.OrderID, "status", order.Status)
	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.orders.GetOrder(c.Request.Context(), orderapp.GetOrderQuery{OrderID: orderID})
	if err != nil {
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var query listOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), orderapp.ListOrdersQuery{Status: query.Status, Limit: query.Limit})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders", "status", query.Status)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// InitiateFulfillment handles POST /orders/:id/fulfillment
func (h *OrderHandler) InitiateFulfillment(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.orders.InitiateFulfillment(c.Request.Context(), orderapp.InitiateFulfillmentCommand{OrderID: orderID})
	if err != nil {
		h.logger.WithError(err).Error("Failed to initiate fulfillment", "order_id", orderID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Fulfillment initiated", "order_id", orderID)
	c.JSON(http.StatusOK, order)
}

// MarkShipped handles POST /orders/:id/shipment
func (h *OrderHandler) MarkShipped(c *gin.Context) {
	orderID := c.Param("id")

	var req markShippedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid shipment request", "order_id", orderID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.MarkShipped(c.Request.Context(), orderapp.MarkShippedCommand{
		OrderID:        orderID,
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to mark order shipped", "order_id", orderID)
		c.JSON(apperrors.HTTPStatusOf(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Order marked as shipped", "order_id", orderID, "carrier", req.Carrier)
	c.JSON(http.StatusOK, order)
}
