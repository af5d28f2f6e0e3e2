package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/levijcl/Wei-sub000/internal/observation/domain"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
	"github.com/levijcl/Wei-sub000/pkg/resilience"
)

var orderSourceTracer = otel.Tracer("fulfillment/adapters/order-source")

// OrderSourceHTTPAdapter implements domain.OrderSourcePort against an
// upstream order management system. Each observer carries its own
// endpoint and credentials; the adapter itself is stateless.
type OrderSourceHTTPAdapter struct {
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
}

// NewOrderSourceHTTPAdapter creates a new order source adapter
func NewOrderSourceHTTPAdapter(logger *logging.Logger, m *metrics.Metrics) *OrderSourceHTTPAdapter {
	return &OrderSourceHTTPAdapter{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(
			resilience.DefaultCircuitBreakerConfig("order-source"), logger, m),
		metrics: m,
	}
}

func (a *OrderSourceHTTPAdapter) FetchNewOrders(ctx context.Context, endpoint domain.SourceEndpoint, since *time.Time) ([]domain.ObservationResult, error) {
	ctx, span := orderSourceTracer.Start(ctx, "order-source.FetchNewOrders",
		trace.WithAttributes(attribute.String("endpoint.url", endpoint.URL)))
	defer span.End()

	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.ExternalCallDuration.WithLabelValues("order-source", "FetchNewOrders").
				Observe(time.Since(start).Seconds())
		}
	}()

	requestURL := endpoint.URL + "/api/v1/orders"
	if since != nil {
		requestURL += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	result, err := a.breaker.Execute(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(endpoint.Username, endpoint.Password)
		req.Header.Set("Accept", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching orders: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("order source returned status %d: %s", resp.StatusCode, string(respBody))
		}

		var out struct {
			Orders []domain.ObservationResult `json:"orders"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decoding order source response: %w", err)
		}
		return out.Orders, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	orders := result.([]domain.ObservationResult)
	span.SetAttributes(attribute.Int("order.count", len(orders)))
	return orders, nil
}
