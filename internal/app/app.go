package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Misaka450/baoandkai-sub000/internal/config"
	"github.com/Misaka450/baoandkai-sub000/internal/event"
	handler "github.com/Misaka450/baoandkai-sub000/internal/handler/http"
	"github.com/Misaka450/baoandkai-sub000/internal/media/blob"
	"github.com/Misaka450/baoandkai-sub000/internal/media/blob/memory"
	minioblob "github.com/Misaka450/baoandkai-sub000/internal/media/blob/minio"
	"github.com/Misaka450/baoandkai-sub000/internal/media/key"
	"github.com/Misaka450/baoandkai-sub000/internal/media/reconcile"
	"github.com/Misaka450/baoandkai-sub000/internal/media/upload"
	"github.com/Misaka450/baoandkai-sub000/internal/repository/postgres"
	"github.com/Misaka450/baoandkai-sub000/internal/service"
	"github.com/Misaka450/baoandkai-sub000/migrations"
	"github.com/Misaka450/baoandkai-sub000/pkg/database"
	"github.com/Misaka450/baoandkai-sub000/pkg/health"
	pkgkafka "github.com/Misaka450/baoandkai-sub000/pkg/kafka"
	"github.com/Misaka450/baoandkai-sub000/pkg/middleware"
)

// App wires together all dependencies and runs the server.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Select the blob storage backend.
	publicBase := cfg.PublicBase()

	var (
		store    blob.Store
		devStore *memory.Store
	)
	switch cfg.StorageDriver {
	case config.StorageMinio:
		s, err := minioblob.New(ctx, minioblob.Config{
			Endpoint:   cfg.MinioEndpoint,
			AccessKey:  cfg.MinioAccessKey,
			SecretKey:  cfg.MinioSecretKey,
			Bucket:     cfg.MinioBucket,
			PublicBase: publicBase,
			UseSSL:     cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to minio: %w", err)
		}
		store = s
	case config.StorageMemory:
		devStore = memory.New(publicBase)
		store = devStore
	default:
		pool.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	logger.Info("blob storage initialized",
		slog.String("driver", cfg.StorageDriver),
		slog.String("public_base", publicBase),
	)

	// Build the media pipeline.
	keys := key.NewDeriver(publicBase)
	client := blob.NewClient(store, cfg.ThumbnailMaxDim, logger)
	uploader := upload.NewUploader(client, keys, upload.Config{
		MaxFileSize: cfg.MaxFileSize,
		Concurrency: cfg.UploadConcurrency,
		Timeout:     cfg.UploadTimeout,
	}, logger)
	reconciler := reconcile.New(client, keys, cfg.ReconcileConcurrency, logger)

	// Build the dependency graph.
	repo := postgres.NewTimelineRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	timelineService := service.NewTimelineService(repo, reconciler, eventProducer, logger)
	timelineHandler := handler.NewTimelineHandler(timelineService, logger)
	uploadHandler := handler.NewUploadHandler(uploader, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", producer.Ping)
	if s, ok := store.(*minioblob.Store); ok {
		healthHandler.Register("blob_store", s.Ping)
	}

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	router := handler.NewRouter(timelineHandler, uploadHandler, healthHandler, devStore, handler.RouterConfig{
		AdminToken: cfg.AdminToken,
		CORS:       corsCfg,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	// Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
