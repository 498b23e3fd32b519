package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mgiordano/cotejo/config"
	"github.com/mgiordano/cotejo/internal/database"
	"github.com/mgiordano/cotejo/internal/handlers"
	appmw "github.com/mgiordano/cotejo/internal/middleware"
	reconciliationrepo "github.com/mgiordano/cotejo/internal/repositories/reconciliation"
	recordrepo "github.com/mgiordano/cotejo/internal/repositories/record"
	"github.com/mgiordano/cotejo/internal/startup"
	"github.com/mgiordano/cotejo/internal/tracing"
	"github.com/mgiordano/cotejo/internal/tracing/exporters"
	"github.com/mgiordano/cotejo/pkg/reconcile"
	"github.com/mgiordano/cotejo/pkg/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&exporters.ConsoleExporter{}))
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	dbDep := &databaseDependency{cfg: cfg, logger: logger}
	boot := startup.NewStartup(logger, 5)
	boot.AddDependency(dbDep)

	ctx := context.Background()
	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	engine := reconcile.NewEngine(logger, reconcile.Config{
		ExactEpsilon:    cfg.ReconcileExactEpsilon,
		ManualTolerance: cfg.ReconcileManualTolerance,
	})

	sessionHandler := handlers.NewSessionHandler(
		session.NewManager(),
		engine,
		reconciliationrepo.NewRepository(dbDep.db, logger),
		recordrepo.NewRepository(dbDep.db, logger),
		cfg.DiscrepancyMinDifference,
		int64(cfg.MaxUploadSizeMB)*1024*1024,
		logger,
	)
	healthHandler := handlers.NewHealthHandler(dbDep.db, logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appmw.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(appmw.Context())
	e.Use(appmw.Logger(logger))

	healthHandler.RegisterRoutes(e)
	sessionHandler.RegisterRoutes(e.Group("/api/v1"))

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		if err := e.StartServer(srv); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server stopped")
		}
	}()
	logger.WithField("port", cfg.Port).Infof("%s listening on :%d", cfg.AppName, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown failed")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("dependency shutdown failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("tracer shutdown failed")
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	if cfg.PrettyLogs {
		return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
			fmt.Printf("%+v\n", msg)
		})
	}
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		b, err := json.Marshal(msg)
		if err != nil {
			fmt.Printf("%+v\n", msg)
			return
		}
		fmt.Println(string(b))
	})
}

type databaseDependency struct {
	cfg    *config.Config
	logger ectologger.Logger
	db     database.DB
}

func (d *databaseDependency) GetName() string {
	return "postgres"
}

func (d *databaseDependency) DependsOn() []string {
	return nil
}

func (d *databaseDependency) Start(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.cfg.DatabaseHost, d.cfg.DatabasePort, d.cfg.DatabaseUserName,
		d.cfg.DatabasePassword, d.cfg.DatabaseName, d.cfg.DatabaseSSLMode,
	)

	sqlxDB, err := sqlx.ConnectContext(ctx, d.cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}
	sqlxDB.SetMaxOpenConns(d.cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(d.cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(d.cfg.DatabaseConnMaxLifetime)

	driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
	})
	if err := migrations.Migrate(d.cfg.DatabaseName, driver); err != nil {
		return err
	}

	d.db = database.NewDatabaseInstance(sqlxDB, d.logger)
	return nil
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
