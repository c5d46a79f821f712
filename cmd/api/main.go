package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"trackify/internal/config"
	"trackify/internal/database"
	"trackify/internal/database/migration"
	handlers "trackify/internal/http/handler"
	"trackify/internal/http/server"
	"trackify/internal/logging"
	"trackify/internal/otel"
	"trackify/internal/repository"
	"trackify/internal/repository/postgres"
	"trackify/internal/service"
	"trackify/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Trackify API
// @version 1.0
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logging.New(cfg.Log, cfg.Location())
	mainLog := logging.WithComponent(log, logging.MainComponent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, tracing, err := otel.Init(ctx, cfg.Tracing, logging.WithComponent(log, logging.TracingComponent))
	if err != nil {
		mainLog.WithError(err).Fatal("failed to initialize tracing")
	}

	store, err := newStorage(cfg.Storage)
	if err != nil {
		mainLog.WithError(err).Fatal("failed to initialize storage")
	}
	logging.WithComponent(log, logging.StorageComponent).WithFields(logrus.Fields{
		"backend":    cfg.Storage.Backend,
		"upload_dir": cfg.Storage.UploadDir,
	}).Info("storage ready")

	var (
		db   *sql.DB
		repo repository.UploadRepository
	)
	if cfg.Database.Enabled() {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			mainLog.WithError(err).Fatal("failed to connect to database")
		}
		if err := migration.EnsureMigrated(ctx, db, logging.WithComponent(log, logging.DatabaseComponent)); err != nil {
			mainLog.WithError(err).Fatal("failed to migrate database")
		}
		repo = postgres.NewUploadPostgres(db)
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	app, err := server.New(server.Options{
		AppRoot:   cfg.AppRoot,
		BodyLimit: cfg.MaxUploadBytes,
		Registry:  reg,
		Tracing:   tracing,
		Ledger:    repo != nil,
	}, service.NewUploadService(store, repo), logging.WithComponent(log, logging.HTTPComponent))
	if err != nil {
		mainLog.WithError(err).Fatal("failed to build http server")
	}

	handlers.RegisterDocs(app, cfg.Swagger.Host, cfg.Swagger.Schemes())

	listenErr := make(chan error, 1)
	go func() {
		mainLog.WithField("addr", cfg.Addr()).Info("server listening")
		listenErr <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			mainLog.WithError(err).Error("server stopped")
		}
	case <-ctx.Done():
		mainLog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mainLog.WithError(err).Error("http shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		mainLog.WithError(err).Error("tracer shutdown failed")
	}
	if db != nil {
		if err := db.Close(); err != nil {
			mainLog.WithError(err).Error("database close failed")
		}
	}
	mainLog.Info("server stopped")
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Backend == config.StorageMinIO {
		return storage.NewMinIO(cfg.MinIO)
	}
	return storage.NewLocal(cfg.UploadDir)
}
