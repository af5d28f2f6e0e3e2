package domain

import (
	"errors"
	"fmt"
	"time"
)

// Errors for observation value objects
var (
	ErrBlankObserverID     = errors.New("observer id cannot be blank")
	ErrBlankEndpointURL    = errors.New("endpoint url cannot be blank")
	ErrBlankEndpointUser   = errors.New("endpoint username cannot be blank")
	ErrBlankAuthToken      = errors.New("auth token cannot be blank")
	ErrIntervalTooShort    = errors.New("polling interval must be at least 10 seconds")
	ErrInvalidThreshold    = errors.New("threshold percent must be between 0 and 100")
	ErrBlankOrderID        = errors.New("observed order id cannot be blank")
	ErrNoObservedItems     = errors.New("observed order must have at least one item")
	ErrInvalidObservedItem = errors.New("observed order item is invalid")
)

// MinPollingInterval is the shortest interval an observer may poll at
const MinPollingInterval = 10 * time.Second

// PollingInterval is how often an observer contacts its source
type PollingInterval struct {
	Seconds int `bson:"seconds" json:"seconds"`
}

// NewPollingInterval validates and builds a PollingInterval
func NewPollingInterval(d time.Duration) (PollingInterval, error) {
	if d < MinPollingInterval {
		return PollingInterval{}, fmt.Errorf("%w, got %s", ErrIntervalTooShort, d)
	}
	return PollingInterval{Seconds: int(d / time.Second)}, nil
}

// Duration returns the interval as a time.Duration
func (p PollingInterval) Duration() time.Duration {
	return time.Duration(p.Seconds) * time.Second
}

// SourceEndpoint locates the external order source
type SourceEndpoint struct {
	URL      string `bson:"url" json:"url"`
	Username string `bson:"username" json:"username"`
	Password string `bson:"password" json:"-"`
}

// NewSourceEndpoint validates and builds a SourceEndpoint
func NewSourceEndpoint(url, username, password string) (SourceEndpoint, error) {
	if url == "" {
		return SourceEndpoint{}, ErrBlankEndpointURL
	}
	if username == "" {
		return SourceEndpoint{}, ErrBlankEndpointUser
	}
	return SourceEndpoint{URL: url, Username: username, Password: password}, nil
}

// TaskEndpoint locates the external WES task API
type TaskEndpoint struct {
	URL       string `bson:"url" json:"url"`
	AuthToken string `bson:"authToken" json:"-"`
}

// NewTaskEndpoint validates and builds a TaskEndpoint
func NewTaskEndpoint(url, authToken string) (TaskEndpoint, error) {
	if url == "" {
		return TaskEndpoint{}, ErrBlankEndpointURL
	}
	if authToken == "" {
		return TaskEndpoint{}, ErrBlankAuthToken
	}
	return TaskEndpoint{URL: url, AuthToken: authToken}, nil
}

// ObservationRule tunes how inventory snapshots are evaluated
type ObservationRule struct {
	ThresholdPercent float64 `bson:"thresholdPercent" json:"thresholdPercent"`
	CheckFrequency   int     `bson:"checkFrequency" json:"checkFrequency"`
}

// NewObservationRule validates and builds an ObservationRule
func NewObservationRule(thresholdPercent float64, checkFrequency int) (ObservationRule, error) {
	if thresholdPercent < 0 || thresholdPercent > 100 {
		return ObservationRule{}, fmt.Errorf("%w, got %.2f", ErrInvalidThreshold, thresholdPercent)
	}
	if checkFrequency <= 0 {
		return ObservationRule{}, fmt.Errorf("check frequency must be positive, got %d", checkFrequency)
	}
	return ObservationRule{ThresholdPercent: thresholdPercent, CheckFrequency: checkFrequency}, nil
}

// ObservedOrderItem is one line of an externally observed order
type ObservedOrderItem struct {
	SKU         string  `json:"sku"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// ObservationResult is an order as seen at the external source
type ObservationResult struct {
	OrderID             string              `json:"orderId"`
	CustomerName        string              `json:"customerName"`
	ShippingAddress     string              `json:"shippingAddress"`
	WarehouseID         string              `json:"warehouseId"`
	Status              string              `json:"status"`
	ScheduledPickupTime *time.Time          `json:"scheduledPickupTime,omitempty"`
	Items               []ObservedOrderItem `json:"items"`
	ObservedAt          time.Time           `json:"observedAt"`
}

// Validate checks the observation carries enough to build an Order
func (r ObservationResult) Validate() error {
	if r.OrderID == "" {
		return ErrBlankOrderID
	}
	if len(r.Items) == 0 {
		return ErrNoObservedItems
	}
	for _, item := range r.Items {
		if item.SKU == "" || item.Quantity <= 0 || item.Price < 0 {
			return fmt.Errorf("%w: sku=%q quantity=%d price=%.2f",
				ErrInvalidObservedItem, item.SKU, item.Quantity, item.Price)
		}
	}
	return nil
}
