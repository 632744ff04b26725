package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/config"
	"github.com/iliyamo/university-events/internal/database"
	"github.com/iliyamo/university-events/internal/queue"
	"github.com/iliyamo/university-events/internal/repository"
	"github.com/iliyamo/university-events/internal/router"
	"github.com/iliyamo/university-events/internal/service"
	"github.com/iliyamo/university-events/internal/session"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		logrus.WithError(err).Fatal("migration failed")
	}
	cancel()

	rdb := config.NewRedisClient()
	var store session.Store
	if rdb != nil {
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
	} else {
		logrus.Warn("redis unavailable: sessions kept in memory, rate limiting and caching disabled")
		store = session.NewMemoryStore()
	}

	identity, err := service.NewIdentityService(repository.NewUserRepo(db), store, service.IdentityConfig{
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    time.Duration(cfg.SessionTTLMin) * time.Minute,
		BcryptCost:    cfg.BcryptCost,
	})
	if err != nil {
		logrus.WithError(err).Fatal("identity service")
	}
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := identity.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logrus.WithError(err).Fatal("bootstrap admin")
	}
	cancel()

	var publisher service.ActivityPublisher
	if cfg.AuditEnabled {
		publisher = service.NewAMQPPublisher(cfg.RabbitURL)
		go queue.StartActivityConsumer(cfg.RabbitURL)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Identity:     identity,
		Catalog:      service.NewCatalogService(repository.NewEventRepo(db)),
		Tickets:      service.NewTicketingService(repository.NewTicketRepo(db), publisher),
		Redis:        rdb,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
		CookieSecure: cfg.CookieSecure,
	})

	addr := ":" + cfg.Port
	go func() {
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}

// setupLogging picks the logrus formatter and level from the config.
func setupLogging(cfg config.Config) {
	if cfg.Env == "prod" || cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
