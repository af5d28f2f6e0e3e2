package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/levijcl/Wei-sub000/internal/audit"
	"github.com/levijcl/Wei-sub000/internal/saga"
	"github.com/levijcl/Wei-sub000/internal/scheduler"

	httpapi "github.com/levijcl/Wei-sub000/internal/api/http"

	invapp "github.com/levijcl/Wei-sub000/internal/inventory/application"
	invdomain "github.com/levijcl/Wei-sub000/internal/inventory/domain"
	invadapters "github.com/levijcl/Wei-sub000/internal/inventory/infrastructure/adapters"
	invmongo "github.com/levijcl/Wei-sub000/internal/inventory/infrastructure/mongodb"

	orderapp "github.com/levijcl/Wei-sub000/internal/order/application"
	orderdomain "github.com/levijcl/Wei-sub000/internal/order/domain"
	ordermongo "github.com/levijcl/Wei-sub000/internal/order/infrastructure/mongodb"

	obsapp "github.com/levijcl/Wei-sub000/internal/observation/application"
	obsdomain "github.com/levijcl/Wei-sub000/internal/observation/domain"
	obsadapters "github.com/levijcl/Wei-sub000/internal/observation/infrastructure/adapters"
	obsmongo "github.com/levijcl/Wei-sub000/internal/observation/infrastructure/mongodb"

	wesapp "github.com/levijcl/Wei-sub000/internal/wes/application"
	wesdomain "github.com/levijcl/Wei-sub000/internal/wes/domain"
	wesadapters "github.com/levijcl/Wei-sub000/internal/wes/infrastructure/adapters"
	wesmongo "github.com/levijcl/Wei-sub000/internal/wes/infrastructure/mongodb"

	"github.com/levijcl/Wei-sub000/pkg/eventbus"
	"github.com/levijcl/Wei-sub000/pkg/events"
	"github.com/levijcl/Wei-sub000/pkg/kafka"
	"github.com/levijcl/Wei-sub000/pkg/logging"
	"github.com/levijcl/Wei-sub000/pkg/metrics"
	"github.com/levijcl/Wei-sub000/pkg/mongodb"
	"github.com/levijcl/Wei-sub000/pkg/tracing"
)

const serviceName = "fulfillment-orchestrator"

type appConfig struct {
	ServerAddr          string
	MongoDB             *mongodb.Config
	Kafka               *kafka.Config
	KafkaEnabled        bool
	InventoryAPIURL     string
	WesAPIURL           string
	ObserversConfigPath string
	PromotionInterval   time.Duration
	ObserverTick        time.Duration
}

func loadConfig() *appConfig {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.Username = getEnv("MONGODB_USERNAME", "")
	mongoConfig.Password = getEnv("MONGODB_PASSWORD", "")
	mongoConfig.ReplicaSet = getEnv("MONGODB_REPLICA_SET", "")

	kafkaConfig := kafka.DefaultConfig()
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		kafkaConfig.Brokers = []string{brokers}
	}

	return &appConfig{
		ServerAddr:          getEnv("SERVER_ADDR", ":8080"),
		MongoDB:             mongoConfig,
		Kafka:               kafkaConfig,
		KafkaEnabled:        getEnv("KAFKA_ENABLED", "true") == "true",
		InventoryAPIURL:     getEnv("INVENTORY_API_URL", "http://localhost:8091"),
		WesAPIURL:           getEnv("WES_API_URL", "http://localhost:8092"),
		ObserversConfigPath: getEnv("OBSERVERS_CONFIG_PATH", "configs/observers.yaml"),
		PromotionInterval:   getDurationEnv("FULFILLMENT_PROMOTION_INTERVAL", 30*time.Second),
		ObserverTick:        getDurationEnv("OBSERVER_TICK", 5*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := run(context.Background(), quit); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, quit <-chan os.Signal) error {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment orchestrator")

	config := loadConfig()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", tracingConfig.OTLPEndpoint)
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New("fulfillment")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	var producer *kafka.Producer
	if config.KafkaEnabled {
		producer = kafka.NewProducer(config.Kafka)
		defer producer.Close()
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	} else {
		logger.Info("Kafka disabled, events stay in-process only")
	}

	bus := eventbus.New(eventbus.DefaultConfig(), logger, m)
	defer bus.Close()

	db := mongoClient.Database()
	orderRepo := ordermongo.NewOrderRepository(db)
	txRepo := invmongo.NewTransactionRepository(db)
	adjustmentRepo := invmongo.NewAdjustmentRepository(db)
	taskRepo := wesmongo.NewPickingTaskRepository(db)
	orderObserverRepo := obsmongo.NewOrderObserverRepository(db)
	wesObserverRepo := obsmongo.NewWesObserverRepository(db)
	inventoryObserverRepo := obsmongo.NewInventoryObserverRepository(db)

	inventoryPort := invadapters.NewInventoryHTTPAdapter(config.InventoryAPIURL, logger, m)
	wesPort := wesadapters.NewWesHTTPAdapter(config.WesAPIURL, logger, m)
	orderSource := obsadapters.NewOrderSourceHTTPAdapter(logger, m)

	orders := orderapp.NewOrderApplicationService(orderRepo, bus, logger, m)
	transactions := invapp.NewInventoryTransactionApplicationService(txRepo, inventoryPort, bus, logger, m)
	adjustments := invapp.NewInventoryAdjustmentApplicationService(adjustmentRepo, txRepo, inventoryPort, wesPort, bus, logger, m)
	tasks := wesapp.NewPickingTaskApplicationService(taskRepo, wesPort, bus, logger, m)
	orderObservers := obsapp.NewOrderObserverApplicationService(orderObserverRepo, orderSource, bus, logger, m)
	wesObservers := obsapp.NewWesObserverApplicationService(wesObserverRepo, taskRepo, wesPort, bus, logger, m)
	inventoryObservers := obsapp.NewInventoryObserverApplicationService(inventoryObserverRepo, inventoryPort, bus, logger, m)

	auditStore := audit.NewStore(db)
	audit.NewRecorder(auditStore, producer, logger).Register(bus, allEventTypes()...)
	deadLetters := audit.NewDeadLetterSink(auditStore, producer, logger)
	bus.SetDeadLetter(deadLetters.Handle)

	coordinator := saga.NewCoordinator(orders, transactions, adjustments, tasks, txRepo, logger, m)
	coordinator.Register(bus)
	logger.Info("Saga coordinator registered")

	if err := registerObservers(ctx, config.ObserversConfigPath, orderObservers, wesObservers, inventoryObservers, logger); err != nil {
		return err
	}

	jobs := scheduler.New(logger)
	jobs.Every("fulfillment-promotion", config.PromotionInterval, func(ctx context.Context) {
		promoted, err := orders.PromoteDueOrders(ctx, time.Now(), events.Scheduled("fulfillment-promotion"))
		if err != nil {
			logger.WithError(err).Error("Fulfillment promotion run failed")
			return
		}
		if promoted > 0 {
			logger.Info("Orders promoted to fulfillment", "count", promoted)
		}
	})
	jobs.Every("order-observers", config.ObserverTick, orderObservers.PollAll)
	jobs.Every("wes-observers", config.ObserverTick, wesObservers.PollAll)
	jobs.Every("inventory-observers", config.ObserverTick, inventoryObservers.PollAll)
	defer jobs.Stop()

	router := httpapi.NewRouter(httpapi.RouterConfig{
		ServiceName: serviceName,
		Logger:      logger,
		Metrics:     m,
		Orders:      httpapi.NewOrderHandler(orders, logger, m),
		Tasks:       httpapi.NewTaskHandler(tasks, logger, m),
		Inventory:   httpapi.NewInventoryHandler(transactions, adjustments, logger, m),
		Audit:       httpapi.NewAuditHandler(auditStore, logger),
		ReadyCheck: func() error {
			return mongoClient.HealthCheck(ctx)
		},
	})

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", "addr", config.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()

	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Orchestrator stopped")
	return nil
}

// registerObservers loads the observer definitions from YAML and
// upserts them, keeping each observer's polling history
func registerObservers(
	ctx context.Context,
	path string,
	orderObservers *obsapp.OrderObserverApplicationService,
	wesObservers *obsapp.WesObserverApplicationService,
	inventoryObservers *obsapp.InventoryObserverApplicationService,
	logger *logging.Logger,
) error {
	observersConfig, err := scheduler.LoadObserversConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Observer config not found, no observers registered", "path", path)
			return nil
		}
		logger.WithError(err).Error("Failed to load observer config", "path", path)
		return err
	}

	orderDefs, err := observersConfig.BuildOrderObservers()
	if err != nil {
		return err
	}
	for _, observer := range orderDefs {
		if err := orderObservers.RegisterObserver(ctx, observer); err != nil {
			return err
		}
	}

	wesDefs, err := observersConfig.BuildWesObservers()
	if err != nil {
		return err
	}
	for _, observer := range wesDefs {
		if err := wesObservers.RegisterObserver(ctx, observer); err != nil {
			return err
		}
	}

	inventoryDefs, err := observersConfig.BuildInventoryObservers()
	if err != nil {
		return err
	}
	for _, observer := range inventoryDefs {
		if err := inventoryObservers.RegisterObserver(ctx, observer); err != nil {
			return err
		}
	}

	logger.Info("Observers registered",
		"orderObservers", len(orderDefs),
		"wesObservers", len(wesDefs),
		"inventoryObservers", len(inventoryDefs),
	)
	return nil
}

// allEventTypes lists every domain event recorded to the audit trail
func allEventTypes() []string {
	return []string{
		orderdomain.EventTypeOrderScheduled,
		orderdomain.EventTypeOrderReadyForFulfillment,
		orderdomain.EventTypeOrderReserved,
		orderdomain.EventTypeOrderReservationFailed,

		invdomain.EventTypeReservationRequested,
		invdomain.EventTypeInventoryReserved,
		invdomain.EventTypeReservationFailed,
		invdomain.EventTypeReservationConsumed,
		invdomain.EventTypeReservationReleased,
		invdomain.EventTypeInventoryIncreased,
		invdomain.EventTypeInventoryDecreased,
		invdomain.EventTypeInventoryAdjusted,
		invdomain.EventTypeTransactionCreated,
		invdomain.EventTypeTransactionCompleted,
		invdomain.EventTypeTransactionFailed,
		invdomain.EventTypeDiscrepancyDetected,
		invdomain.EventTypeAdjustmentApplied,

		wesdomain.EventTypePickingTaskCreated,
		wesdomain.EventTypePickingTaskSubmitted,
		wesdomain.EventTypePickingTaskCompleted,
		wesdomain.EventTypePickingTaskFailed,
		wesdomain.EventTypePickingTaskCanceled,
		wesdomain.EventTypePickingTaskPriorityAdjusted,
		wesdomain.EventTypeWesTaskDiscovered,
		wesdomain.EventTypeWesTaskStatusUpdated,

		obsdomain.EventTypeNewOrderObserved,
		obsdomain.EventTypeInventorySnapshotObserved,
	}
}
