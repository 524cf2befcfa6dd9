// Package bootstrap wires configuration, storage, providers, and the HTTP
// server into a runnable application.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/postloop/content-pipeline/internal/api"
	"github.com/postloop/content-pipeline/internal/config"
	"github.com/postloop/content-pipeline/internal/database"
	"github.com/postloop/content-pipeline/internal/dedup"
	"github.com/postloop/content-pipeline/internal/httpserver"
	"github.com/postloop/content-pipeline/internal/ledger"
	"github.com/postloop/content-pipeline/internal/logger"
	"github.com/postloop/content-pipeline/internal/metrics"
	"github.com/postloop/content-pipeline/internal/pipeline"
)

// App holds the wired application and its owned resources.
type App struct {
	cfg    *config.Config
	log    logger.Logger
	db     *sqlx.DB
	rdb    *redis.Client
	server *httpserver.Server
}

// NewApp loads configuration and wires the full application.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	log.Info("starting service",
		logger.String("service", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.String("provider_mode", cfg.Providers.Mode),
	)

	db, err := database.Connect(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConnections:  cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// The run guard is optional. A configured-but-unreachable Redis only
	// degrades the service, it does not block startup.
	var rdb *redis.Client
	var guard pipeline.Guard
	if cfg.Redis.Addr != "" {
		client, redisErr := dedup.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password)
		if redisErr != nil {
			log.Warn("redis unavailable, running without the in-flight guard",
				logger.Error(redisErr))
		} else {
			rdb = client
			guard = dedup.NewGuard(client, cfg.Redis.GuardTTL)
		}
	}

	postRepo := database.NewPostRepository(db)
	quotaRepo := database.NewQuotaRepository(db)
	usageRepo := database.NewUsageRepository(db)

	m := metrics.New()
	providers := buildProviders(&cfg.Providers)
	orchestrator := pipeline.New(
		providers,
		quotaRepo,
		postRepo,
		ledger.New(quotaRepo, usageRepo, log),
		guard,
		m,
		log,
	)

	handlers := api.Handlers{
		Process:   api.NewProcessHandler(orchestrator, log),
		Posts:     api.NewPostsHandler(postRepo, log),
		Account:   api.NewAccountHandler(quotaRepo, usageRepo, log),
		Metrics:   m.Handler(),
		JWTSecret: cfg.Auth.JWTSecret,
	}

	checks := map[string]httpserver.HealthChecker{
		"database": httpserver.DatabaseHealthChecker(db.Ping),
	}
	if rdb != nil {
		checks["redis"] = httpserver.RedisHealthChecker(func() error {
			return rdb.Ping(context.Background()).Err()
		})
	}

	server := httpserver.NewWithHealthChecks(
		&httpserver.Config{
			Port:           cfg.Service.Port,
			Debug:          cfg.Service.Debug,
			ServiceName:    cfg.Service.Name,
			ServiceVersion: cfg.Service.Version,
		},
		log,
		checks,
		func(router *gin.Engine) {
			api.RegisterRoutes(router, handlers)
		},
	)

	return &App{
		cfg:    cfg,
		log:    log,
		db:     db,
		rdb:    rdb,
		server: server,
	}, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	return a.server.Run()
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("close database", logger.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("close redis", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}
