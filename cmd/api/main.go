package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/urovital/clinic-api/internal/config"
	"github.com/urovital/clinic-api/internal/email"
	accessHandler "github.com/urovital/clinic-api/internal/handler/access"
	actorHandler "github.com/urovital/clinic-api/internal/handler/actor"
	authHandler "github.com/urovital/clinic-api/internal/handler/auth"
	"github.com/urovital/clinic-api/internal/handler/health"
	notificationHandler "github.com/urovital/clinic-api/internal/handler/notification"
	"github.com/urovital/clinic-api/internal/handler/prometheus"
	"github.com/urovital/clinic-api/internal/middleware"
	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
	"github.com/urovital/clinic-api/internal/repository/memory"
	"github.com/urovital/clinic-api/internal/repository/postgres"
	"github.com/urovital/clinic-api/internal/router"
	accessService "github.com/urovital/clinic-api/internal/service/access"
	actorService "github.com/urovital/clinic-api/internal/service/actor"
	"github.com/urovital/clinic-api/internal/service/audit"
	authService "github.com/urovital/clinic-api/internal/service/auth"
	notificationService "github.com/urovital/clinic-api/internal/service/notification"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/auth"
	"github.com/urovital/clinic-api/pkg/cache"
	"github.com/urovital/clinic-api/pkg/logger"
	"github.com/urovital/clinic-api/pkg/messaging"
	"github.com/urovital/clinic-api/pkg/messaging/kafka"
	"github.com/urovital/clinic-api/pkg/messaging/redis"
	"github.com/urovital/clinic-api/pkg/metrics"
	"github.com/urovital/clinic-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level: logger.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	actors, notifications, closeStore, err := newRepositories(cfg)
	if err != nil {
		log.Fatal(err, "failed to initialize storage", "driver", cfg.Storage.Driver)
	}
	defer closeStore()

	// Initialize notification delivery
	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "failed to initialize broker", "driver", cfg.Broker.Driver)
	}
	defer publisher.Close()

	mailer := email.NewNopService()
	if cfg.Mail.Enabled {
		mailer = email.NewSMTPService(cfg.Mail)
	}

	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal(err, "failed to register validators")
	}

	// Initialize services
	m := metrics.NewMetrics(cfg.Server.MetricsPrefix)
	evaluator := rbac.NewEvaluator(nil)
	auditor := audit.NewService(*log.Zerolog())
	directory := cache.NewTTLCache[[]*model.Actor](cfg.Directory.CacheTTL, cfg.Directory.CleanupInterval)

	authSvc := authService.NewService(
		actors,
		security.NewBcryptHasher(bcrypt.DefaultCost),
		auth.NewJWTService(auth.Config{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			Expiry: cfg.JWT.Expiry,
		}),
		evaluator,
		auditor,
		log,
	)
	actorSvc := actorService.NewService(actors, evaluator, directory, auditor)
	accessSvc := accessService.NewService(evaluator, m)
	notificationSvc := notificationService.NewService(notifications, actors, evaluator, publisher, mailer, m, log)

	if cfg.Bootstrap.Enabled() {
		created, err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
		if err != nil {
			log.Fatal(err, "failed to bootstrap administrator")
		}
		if created {
			log.Warn("bootstrap administrator created; unset the bootstrap variables")
		}
	}

	// Initialize middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(authSvc, evaluator)

	r := router.NewRouter(
		authMiddleware,
		router.Handlers{
			Health:       health.NewHandler(actors),
			Auth:         authHandler.NewHandler(authSvc, authMiddleware),
			Access:       accessHandler.NewHandler(accessSvc),
			Notification: notificationHandler.NewHandler(notificationSvc, authMiddleware),
			Actor:        actorHandler.NewHandler(actorSvc, authSvc),
			Metrics:      prometheus.New(m),
		},
		*log.Zerolog(),
		router.RouterConfig{
			RequestTimeout:   cfg.Server.RequestTimeout,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			Security:         middleware.DefaultSecurityConfig(),
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver, "broker", cfg.Broker.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error(err, "server failed")
	case <-ctx.Done():
		log.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}

func newRepositories(cfg *config.Config) (repository.ActorRepository, repository.NotificationRepository, func(), error) {
	if cfg.Storage.Driver == "memory" {
		return memory.NewActorRepository(), memory.NewNotificationRepository(), func() {}, nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() { _ = db.Close() }

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			closeDB()
			return nil, nil, nil, err
		}
	}
	return postgres.NewActorRepository(db), postgres.NewNotificationRepository(db), closeDB, nil
}

func newPublisher(ctx context.Context, cfg *config.Config, log *logger.Logger) (messaging.Publisher, error) {
	switch cfg.Broker.Driver {
	case "redis":
		broker, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, *log.Zerolog())
		if err != nil {
			return nil, err
		}
		return broker, nil
	case "kafka":
		return kafka.NewProducer(*log.Zerolog(), cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	default:
		return messaging.NewNopPublisher(), nil
	}
}
