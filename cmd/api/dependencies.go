package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
	importservice "github.com/cyberhive54/EZfinance-sub001/internal/domain/import/service"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/recurring"
	"github.com/cyberhive54/EZfinance-sub001/pkg/config"
	"github.com/cyberhive54/EZfinance-sub001/pkg/cron"
	"github.com/cyberhive54/EZfinance-sub001/pkg/db"
	"github.com/cyberhive54/EZfinance-sub001/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	FinanceRepo repository.FinanceRepository

	// Services
	ImportMetrics    *metrics.ImportMetrics
	ImportService    *importservice.ImportService
	RecurringService *recurring.Service
	Scheduler        *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.FinanceRepo = repository.NewPostgresFinanceRepository(d.DB.Pool)
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() error {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.ImportMetrics = metrics.NewImportMetrics(d.Registry)

	d.ImportService = importservice.NewImportService(d.Logger, d.FinanceRepo, d.Config.Import, d.ImportMetrics)
	d.RecurringService = recurring.NewService(d.Logger, d.FinanceRepo)

	d.Scheduler = cron.NewScheduler(d.Logger)
	if err := d.Scheduler.Add("@daily", cron.Job{
		Name: "materialize-recurring",
		Run: func(ctx context.Context) error {
			_, err := d.RecurringService.MaterializeDue(ctx, time.Now().UTC())
			return err
		},
	}); err != nil {
		return err
	}

	d.Logger.Info("services initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
