package scheduler

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/levijcl/Wei-sub000/internal/observation/domain"
)

// ObserversConfig declares the observers the orchestrator registers at
// startup. It is loaded from a YAML file so deployments can point the
// observers at their own upstream systems without a rebuild.
type ObserversConfig struct {
	OrderObservers     []OrderObserverConfig     `yaml:"orderObservers"`
	WesObservers       []WesObserverConfig       `yaml:"wesObservers"`
	InventoryObservers []InventoryObserverConfig `yaml:"inventoryObservers"`
}

type OrderObserverConfig struct {
	ObserverID             string `yaml:"observerId"`
	URL                    string `yaml:"url"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	PollingIntervalSeconds int    `yaml:"pollingIntervalSeconds"`
}

type WesObserverConfig struct {
	ObserverID             string `yaml:"observerId"`
	URL                    string `yaml:"url"`
	AuthToken              string `yaml:"authToken"`
	PollingIntervalSeconds int    `yaml:"pollingIntervalSeconds"`
}

type InventoryObserverConfig struct {
	ObserverID             string  `yaml:"observerId"`
	ThresholdPercent       float64 `yaml:"thresholdPercent"`
	CheckFrequency         int     `yaml:"checkFrequency"`
	PollingIntervalSeconds int     `yaml:"pollingIntervalSeconds"`
}

// LoadObserversConfig reads and parses the observers YAML file.
func LoadObserversConfig(path string) (*ObserversConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading observers config: %w", err)
	}
	var config ObserversConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing observers config: %w", err)
	}
	return &config, nil
}

// BuildOrderObservers converts the config entries into domain observers.
func (c *ObserversConfig) BuildOrderObservers() ([]*domain.OrderObserver, error) {
	observers := make([]*domain.OrderObserver, 0, len(c.OrderObservers))
	for _, entry := range c.OrderObservers {
		endpoint, err := domain.NewSourceEndpoint(entry.URL, entry.Username, entry.Password)
		if err != nil {
			return nil, fmt.Errorf("order observer %s: %w", entry.ObserverID, err)
		}
		interval, err := domain.NewPollingInterval(time.Duration(entry.PollingIntervalSeconds) * time.Second)
		if err != nil {
			return nil, fmt.Errorf("order observer %s: %w", entry.ObserverID, err)
		}
		observer, err := domain.NewOrderObserver(entry.ObserverID, endpoint, interval)
		if err != nil {
			return nil, err
		}
		observers = append(observers, observer)
	}
	return observers, nil
}

// BuildWesObservers converts the config entries into domain observers.
func (c *ObserversConfig) BuildWesObservers() ([]*domain.WesObserver, error) {
	observers := make([]*domain.WesObserver, 0, len(c.WesObservers))
	for _, entry := range c.WesObservers {
		endpoint, err := domain.NewTaskEndpoint(entry.URL, entry.AuthToken)
		if err != nil {
			return nil, fmt.Errorf("wes observer %s: %w", entry.ObserverID, err)
		}
		interval, err := domain.NewPollingInterval(time.Duration(entry.PollingIntervalSeconds) * time.Second)
		if err != nil {
			return nil, fmt.Errorf("wes observer %s: %w", entry.ObserverID, err)
		}
		observer, err := domain.NewWesObserver(entry.ObserverID, endpoint, interval)
		if err != nil {
			return nil, err
		}
		observers = append(observers, observer)
	}
	return observers, nil
}

// BuildInventoryObservers converts the config entries into domain observers.
func (c *ObserversConfig) BuildInventoryObservers() ([]*domain.InventoryObserver, error) {
	observers := make([]*domain.InventoryObserver, 0, len(c.InventoryObservers))
	for _, entry := range c.InventoryObservers {
		rule, err := domain.NewObservationRule(entry.ThresholdPercent, entry.CheckFrequency)
		if err != nil {
			return nil, fmt.Errorf("inventory observer %s: %w", entry.ObserverID, err)
		}
		interval, err := domain.NewPollingInterval(time.Duration(entry.PollingIntervalSeconds) * time.Second)
		if err != nil {
			return nil, fmt.Errorf("inventory observer %s: %w", entry.ObserverID, err)
		}
		observer, err := domain.NewInventoryObserver(entry.ObserverID, rule, interval)
		if err != nil {
			return nil, err
		}
		observers = append(observers, observer)
	}
	return observers, nil
}
