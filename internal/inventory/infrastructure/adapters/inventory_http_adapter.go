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

	"github.com/levijcl/Wei-sub000/internal/inventory/domain"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
	"github.com/levijcl/Wei-sub000/pkg/resilience"
)

var inventoryTracer = otel.Tracer("fulfillment/adapters/inventory")

// InventoryHTTPAdapter implements domain.InventoryPort against the
// inventory system's REST API. All calls go through a circuit breaker.
type InventoryHTTPAdapter struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
}

// NewInventoryHTTPAdapter creates a new inventory adapter
func NewInventoryHTTPAdapter(baseURL string, logger *logging.Logger, m *metrics.Metrics) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(
			resilience.DefaultCircuitBreakerConfig("inventory-system"), logger, m),
		metrics: m,
	}
}

type reservationRequest struct {
	SKU         string `json:"sku"`
	WarehouseID string `json:"warehouseId"`
	OrderID     string `json:"orderId"`
	Quantity    int    `json:"quantity"`
}

type reservationResponse struct {
	ReservationID string `json:"reservationId"`
}

func (a *InventoryHTTPAdapter) CreateReservation(ctx context.Context, sku, warehouseID, orderID string, quantity int) (string, error) {
	ctx, span := inventoryTracer.Start(ctx, "inventory.CreateReservation",
		trace.WithAttributes(
			attribute.String("sku", sku),
			attribute.String("warehouse.id", warehouseID),
			attribute.String("order.id", orderID),
			attribute.Int("quantity", quantity),
		),
	)
	defer span.End()

	body, err := json.Marshal(reservationRequest{
		SKU:         sku,
		WarehouseID: warehouseID,
		OrderID:     orderID,
		Quantity:    quantity,
	})
	if err != nil {
		return "", err
	}

	var out reservationResponse
	err = a.call(ctx, "CreateReservation", http.MethodPost, "/api/v1/reservations", body, &out)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return out.ReservationID, nil
}

func (a *InventoryHTTPAdapter) ConsumeReservation(ctx context.Context, externalReservationID string) error {
	ctx, span := inventoryTracer.Start(ctx, "inventory.ConsumeReservation",
		trace.WithAttributes(attribute.String("reservation.id", externalReservationID)))
	defer span.End()

	path := fmt.Sprintf("/api/v1/reservations/%s/consume", externalReservationID)
	if err := a.call(ctx, "ConsumeReservation", http.MethodPost, path, nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *InventoryHTTPAdapter) ReleaseReservation(ctx context.Context, externalReservationID string) error {
	ctx, span := inventoryTracer.Start(ctx, "inventory.ReleaseReservation",
		trace.WithAttributes(attribute.String("reservation.id", externalReservationID)))
	defer span.End()

	path := fmt.Sprintf("/api/v1/reservations/%s/release", externalReservationID)
	if err := a.call(ctx, "ReleaseReservation", http.MethodPost, path, nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

type stockChangeRequest struct {
	SKU         string `json:"sku"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int    `json:"quantity"`
}

func (a *InventoryHTTPAdapter) IncreaseInventory(ctx context.Context, sku, warehouseID string, quantity int) error {
	ctx, span := inventoryTracer.Start(ctx, "inventory.IncreaseInventory",
		trace.WithAttributes(attribute.String("sku", sku), attribute.Int("quantity", quantity)))
	defer span.End()

	body, err := json.Marshal(stockChangeRequest{SKU: sku, WarehouseID: warehouseID, Quantity: quantity})
	if err != nil {
		return err
	}
	if err := a.call(ctx, "IncreaseInventory", http.MethodPost, "/api/v1/stock/increase", body, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *InventoryHTTPAdapter) AdjustInventory(ctx context.Context, sku, warehouseID string, quantity int) error {
	ctx, span := inventoryTracer.Start(ctx, "inventory.AdjustInventory",
		trace.WithAttributes(attribute.String("sku", sku), attribute.Int("quantity", quantity)))
	defer span.End()

	body, err := json.Marshal(stockChangeRequest{SKU: sku, WarehouseID: warehouseID, Quantity: quantity})
	if err != nil {
		return err
	}
	if err := a.call(ctx, "AdjustInventory", http.MethodPost, "/api/v1/stock/adjust", body, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *InventoryHTTPAdapter) GetInventorySnapshot(ctx context.Context) ([]domain.StockSnapshot, error) {
	ctx, span := inventoryTracer.Start(ctx, "inventory.GetInventorySnapshot")
	defer span.End()

	var out struct {
		Snapshots []domain.StockSnapshot `json:"snapshots"`
	}
	if err := a.call(ctx, "GetInventorySnapshot", http.MethodGet, "/api/v1/stock", nil, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("snapshot.count", len(out.Snapshots)))
	return out.Snapshots, nil
}

// call performs one HTTP request through the circuit breaker and decodes
// the response into out when out is non-nil. A 409 from the reservation
// endpoint maps to ErrInsufficientInventory.
func (a *InventoryHTTPAdapter) call(ctx context.Context, operation, method, path string, body []byte, out interface{}) error {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.ExternalCallDuration.WithLabelValues("inventory-system", operation).
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

		if resp.StatusCode == http.StatusConflict {
			return nil, domain.ErrInsufficientInventory
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("inventory system returned status %d: %s", resp.StatusCode, string(respBody))
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decoding inventory response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}
