package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/levijcl/Wei-sub000/internal/wes/domain"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
	"github.com/levijcl/Wei-sub000/pkg/resilience"
)

var wesTracer = otel.Tracer("fulfillment/adapters/wes")

// WesHTTPAdapter implements domain.WesPort against the warehouse
// execution system's REST API.
type WesHTTPAdapter struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
}

// NewWesHTTPAdapter creates a new WES adapter
func NewWesHTTPAdapter(baseURL string, logger *logging.Logger, m *metrics.Metrics) *WesHTTPAdapter {
	return &WesHTTPAdapter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(
			resilience.DefaultCircuitBreakerConfig("wes"), logger, m),
		metrics: m,
	}
}

type submitTaskRequest struct {
	ReferenceID string            `json:"referenceId"`
	Priority    int               `json:"priority"`
	Items       []domain.TaskItem `json:"items"`
}

type submitTaskResponse struct {
	TaskID string `json:"taskId"`
}

func (a *WesHTTPAdapter) SubmitPickingTask(ctx context.Context, task *domain.PickingTask) (string, error) {
	ctx, span := wesTracer.Start(ctx, "wes.SubmitPickingTask",
		trace.WithAttributes(
			attribute.String("task.id", task.TaskID),
			attribute.String("order.id", task.OrderID),
			attribute.Int("task.priority", task.Priority),
		),
	)
	defer span.End()

	body, err := json.Marshal(submitTaskRequest{
		ReferenceID: task.TaskID,
		Priority:    task.Priority,
		Items:       task.Items,
	})
	if err != nil {
		return "", err
	}

	var out submitTaskResponse
	if err := a.call(ctx, "SubmitPickingTask", http.MethodPost, "/api/v1/picking-tasks", body, &out); err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("wes.task.id", out.TaskID))
	return out.TaskID, nil
}

func (a *WesHTTPAdapter) CancelTask(ctx context.Context, wesTaskID string) error {
	ctx, span := wesTracer.Start(ctx, "wes.CancelTask",
		trace.WithAttributes(attribute.String("wes.task.id", wesTaskID)))
	defer span.End()

	path := fmt.Sprintf("/api/v1/picking-tasks/%s/cancel", wesTaskID)
	if err := a.call(ctx, "CancelTask", http.MethodPost, path, nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *WesHTTPAdapter) AdjustTaskPriority(ctx context.Context, wesTaskID string, priority int) error {
	ctx, span := wesTracer.Start(ctx, "wes.AdjustTaskPriority",
		trace.WithAttributes(
			attribute.String("wes.task.id", wesTaskID),
			attribute.Int("task.priority", priority),
		),
	)
	defer span.End()

	body, err := json.Marshal(map[string]int{"priority": priority})
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/api/v1/picking-tasks/%s/priority", wesTaskID)
	if err := a.call(ctx, "AdjustTaskPriority", http.MethodPut, path, body, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *WesHTTPAdapter) PollAllTasks(ctx context.Context) ([]domain.WesTaskDto, error) {
	ctx, span := wesTracer.Start(ctx, "wes.PollAllTasks")
	defer span.End()

	var out struct {
		Tasks []domain.WesTaskDto `json:"tasks"`
	}
	if err := a.call(ctx, "PollAllTasks", http.MethodGet, "/api/v1/picking-tasks", nil, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("task.count", len(out.Tasks)))
	return out.Tasks, nil
}

func (a *WesHTTPAdapter) GetStockSnapshot(ctx context.Context) ([]domain.StockLevel, error) {
	ctx, span := wesTracer.Start(ctx, "wes.GetStockSnapshot")
	defer span.End()

	var out struct {
		StockLevels []domain.StockLevel `json:"stockLevels"`
	}
	if err := a.call(ctx, "GetStockSnapshot", http.MethodGet, "/api/v1/stock-levels", nil, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("stock.count", len(out.StockLevels)))
	return out.StockLevels, nil
}

func (a *WesHTTPAdapter) call(ctx context.Context, operation, method, path string, body []byte, out interface{}) error {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.ExternalCallDuration.WithLabelValues("wes", operation).
				Observe(time.Since(start).Seconds())
		}
	}()

	_, err := a.breaker.Execute(ctx, func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("wes returned status %d: %s", resp.StatusCode, string(respBody))
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decoding wes response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}
