package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/db"
	httpapi "github.com/yungbote/coursehub-backend/internal/http"
	"github.com/yungbote/coursehub-backend/internal/jobs"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Router    *gin.Engine
	Cfg       Config
	Repos     Repos
	Services  Services
	Clients   Clients
	Scheduler *jobs.Scheduler

	shutdownOtel func(context.Context) error
	started      bool
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(log, cfg)
}

// NewWithConfig wires the application from an already loaded config.
func NewWithConfig(log *logger.Logger, cfg Config) (*App, error) {
	shutdownOtel := observability.InitOTel(context.Background(), log, cfg.Otel)

	theDB, err := openDB(log, cfg)
	if err != nil {
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(theDB, log, serviceset)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Scheduler:    jobs.NewScheduler(log),
		shutdownOtel: shutdownOtel,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case DBDriverSQLite:
		svc, err := db.NewSQLiteService(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return svc.DB(), nil
	default:
		svc, err := db.NewPostgresService(cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return svc.DB(), nil
	}
}

// Start registers background jobs and starts the scheduler.
func (a *App) Start() error {
	if a == nil || a.started {
		return nil
	}
	purger := jobs.NewTokenPurger(a.Log, a.Repos.UserToken, a.Repos.PasswordReset)
	if err := jobs.RegisterTokenPurge(a.Scheduler, purger, a.Cfg.TokenPurgeSchedule); err != nil {
		return fmt.Errorf("register token purge: %w", err)
	}
	a.Scheduler.Start()
	a.started = true
	return nil
}

func (a *App) Server() *httpapi.Server {
	return httpapi.NewServer(":"+a.Cfg.Port, a.Router)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.started {
		a.Scheduler.Stop(ctx)
		a.started = false
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
