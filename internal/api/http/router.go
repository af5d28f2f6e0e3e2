package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
)

// RouterConfig carries everything the HTTP surface needs
type RouterConfig struct {
	ServiceName string
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
	Orders      *OrderHandler
	Tasks       *TaskHandler
	Inventory   *InventoryHandler
	Audit       *AuditHandler

	// ReadyCheck reports whether downstream dependencies are reachable
	ReadyCheck func() error
}

// NewRouter assembles the gin engine with middleware, health endpoints and all API routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestObserver(cfg.Logger, cfg.Metrics))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": cfg.ServiceName})
	})
	r.GET("/ready", func(c *gin.Context) {
		if cfg.ReadyCheck != nil {
			if err := cfg.ReadyCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": cfg.ServiceName})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.Orders != nil {
		cfg.Orders.RegisterRoutes(api)
	}
	if cfg.Tasks != nil {
		cfg.Tasks.RegisterRoutes(api)
	}
	if cfg.Inventory != nil {
		cfg.Inventory.RegisterRoutes(api)
	}
	if cfg.Audit != nil {
		cfg.Audit.RegisterRoutes(api)
	}

	return r
}

func requestObserver(logger *logging.Logger, m *metrics.Metrics) gin.HandlerFunc {
	requestLogger := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		if m != nil {
			m.ObserveHTTPRequest(c.Request.Method, path, status, duration)
		}
		if status >= http.StatusInternalServerError {
			requestLogger.Error("Request failed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
			)
		} else {
			requestLogger.Debug("Request handled",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}
}
