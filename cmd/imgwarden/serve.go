package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/wardenworks/imgwarden/internal/audit"
	"github.com/wardenworks/imgwarden/internal/blobstore"
	"github.com/wardenworks/imgwarden/internal/config"
	"github.com/wardenworks/imgwarden/internal/consumer"
	"github.com/wardenworks/imgwarden/internal/guard"
	"github.com/wardenworks/imgwarden/internal/handlers"
	"github.com/wardenworks/imgwarden/internal/logging"
	natsclient "github.com/wardenworks/imgwarden/internal/messaging/nats"
	"github.com/wardenworks/imgwarden/internal/pipeline"
	"github.com/wardenworks/imgwarden/internal/ratelimit"
	"github.com/wardenworks/imgwarden/internal/repository"
	"github.com/wardenworks/imgwarden/internal/server"
	"github.com/wardenworks/imgwarden/internal/service"
	"github.com/wardenworks/imgwarden/internal/tokens"
	"github.com/wardenworks/imgwarden/internal/transform"
	"github.com/wardenworks/imgwarden/internal/vision"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the moderation service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("imgwarden"))
	logging.SetDefault(logger)

	slog.Info("Starting imgwarden",
		slog.Int("port", cfg.Server.Port),
		slog.String("quarantine_bucket", cfg.Moderation.QuarantineBucket),
		slog.Duration("max_event_age", cfg.Moderation.MaxEventAge),
	)

	ctx := context.Background()

	// Audit repository: Postgres when configured, in-memory otherwise.
	var repo repository.Repository
	if cfg.Database.URL != "" {
		if err := runMigrations(cfg.Database.MigrationsPath, cfg.Database.URL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		pgRepo, err := repository.NewPostgresRepository(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		repo = pgRepo
		log.Println("Audit repository: postgres")
	} else {
		repo = repository.NewMemoryRepository()
		log.Println("Database not configured - audit records held in memory only")
	}
	defer repo.Close()

	// Audit sink for search and dashboards.
	var sink audit.Sink = audit.NoopSink{}
	if cfg.OpenSearch.URL != "" {
		osSink, err := audit.NewOpenSearchSink(audit.Config{
			URL:           cfg.OpenSearch.URL,
			Username:      cfg.OpenSearch.Username,
			Password:      cfg.OpenSearch.Password,
			TLSSkipVerify: cfg.OpenSearch.TLSSkipVerify,
			Index:         cfg.OpenSearch.Index,
		})
		if err != nil {
			log.Printf("WARNING: Failed to initialize OpenSearch sink: %v", err)
			log.Println("Continuing without the audit search index")
		} else {
			sink = osSink
			log.Printf("Audit sink: opensearch (%s)", cfg.OpenSearch.Index)
		}
	}

	// Rate limiter for push deliveries.
	var limiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if cfg.Redis.RateLimitEnabled && cfg.Redis.URL != "" {
		rl, err := ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis rate limiter: %v", err)
			log.Println("Continuing without rate limiting")
		} else {
			limiter = rl
			log.Printf("Rate limiting enabled: %d requests per %s", cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow)
		}
	}
	defer limiter.Close()

	scratchDir := cfg.Moderation.ScratchDir
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}

	annotator := vision.New(cfg.Vision.URL, cfg.Vision.Timeout)
	store := blobstore.NewHTTPStore(cfg.Storage.URL, cfg.Storage.Timeout)
	blur := &transform.Blur{
		ConvertPath: cfg.Moderation.ConvertPath,
		Radius:      cfg.Moderation.BlurRadius,
	}
	remediator := pipeline.New(store, blur, cfg.Moderation.QuarantineBucket, scratchDir, logger.Logger)
	g := guard.New(cfg.Moderation.MaxEventAge, logger.Logger)

	svc := service.New(g, annotator, remediator, repo, sink, logger)

	// Durable broker delivery.
	var brokerCheck handlers.ConnChecker
	if cfg.NATS.Enabled {
		jsClient, err := natsclient.NewJetStreamClient(natsclient.Config{
			URL:  cfg.NATS.URL,
			Name: "imgwarden",
		})
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer jsClient.Close()

		svc.SetPublisher(jsClient)
		brokerCheck = jsClient

		cons := consumer.New(jsClient, svc, logger)
		if err := cons.Start(ctx); err != nil {
			return fmt.Errorf("start consumer: %w", err)
		}
		defer cons.Stop()
	} else {
		log.Println("NATS disabled - events accepted over HTTP push only")
	}

	// Push-delivery authentication.
	var verifier *tokens.Verifier
	if cfg.Push.Secret != "" {
		verifier = tokens.NewVerifier(cfg.Push.Secret, cfg.Push.Audience)
	} else {
		log.Println("WARNING: push.secret not set - push deliveries are unauthenticated")
	}

	handler := handlers.NewEventsHandler(svc, verifier, limiter, repo, logger)
	if brokerCheck != nil {
		handler.SetBrokerCheck(brokerCheck)
	}
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("imgwarden listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

func runMigrations(migrationsPath, databaseURL string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
