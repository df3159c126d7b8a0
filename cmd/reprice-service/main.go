package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jewelcraft/reprice-service/internal/api/handler"
	"github.com/jewelcraft/reprice-service/internal/api/router"
	"github.com/jewelcraft/reprice-service/internal/catalog"
	"github.com/jewelcraft/reprice-service/internal/config"
	"github.com/jewelcraft/reprice-service/internal/events"
	"github.com/jewelcraft/reprice-service/internal/reprice"
	"github.com/jewelcraft/reprice-service/internal/reprice/runlog"
	"github.com/jewelcraft/reprice-service/shared/logger"
	"github.com/jewelcraft/reprice-service/shared/postgresql"
	"github.com/jewelcraft/reprice-service/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("REPRICE_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/reprice-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The admin token never lives in the config file
	if token := os.Getenv("CATALOG_ADMIN_TOKEN"); token != "" {
		cfg.Catalog.AdminToken = token
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting reprice service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize catalog API client
	catalogClient := catalog.NewClient(&catalog.Config{
		ShopName:       cfg.Catalog.ShopName,
		AdminToken:     cfg.Catalog.AdminToken,
		APIVersion:     cfg.Catalog.APIVersion,
		RequestTimeout: cfg.Catalog.RequestTimeout,
	}, appLogger.Logger)

	appLogger.Info("Catalog client initialized",
		slog.String("shop", cfg.Catalog.ShopName),
		slog.Int("page_size", cfg.Catalog.PageSize),
	)

	// Initialize optional PostgreSQL-backed run log
	var (
		dbClient *postgresql.Client
		runLog   reprice.RunRecorder
	)
	if cfg.Database.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		runLog = runlog.NewStore(dbClient, appLogger.Logger)
		appLogger.Info("Database connection established")
	}

	// Initialize optional RabbitMQ event publisher
	var (
		rabbitClient *rabbitmq.Client
		sink         reprice.EventSink
	)
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		sink = events.NewPublisher(rabbitClient, appLogger.Logger)
		appLogger.Info("RabbitMQ connection established")
	}

	// Initialize the repricing job runner
	runner := reprice.NewRunner(&reprice.Config{
		Logger:    appLogger.Logger,
		Catalog:   catalogClient,
		Tracker:   reprice.NewTracker(),
		PageSize:  cfg.Catalog.PageSize,
		PageDelay: cfg.Catalog.PageDelay,
		Throttle:  cfg.Job.ThrottleInterval,
		RunLog:    runLog,
		Events:    sink,
	})

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, runner, catalogClient, cfg.Catalog.PageSize)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Reprice service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, runner handler.JobRunner, catalogClient handler.CatalogReader, pageSize int) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:   logger,
		Runner:   runner,
		Catalog:  catalogClient,
		PageSize: pageSize,
	}

	return router.SetupRouter(handlerDeps)
}
