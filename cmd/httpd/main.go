package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/serpinsight/analyzer/internal/api"
	"github.com/serpinsight/analyzer/internal/config"
	"github.com/serpinsight/analyzer/internal/database"
	"github.com/serpinsight/analyzer/internal/engine"
	"github.com/serpinsight/analyzer/internal/logger"
	"github.com/serpinsight/analyzer/internal/processor"
	"github.com/serpinsight/analyzer/internal/telemetry"
)

const (
	defaultConfigPath      = "config.yml"
	gracefulShutdownPeriod = 30 * time.Second
)

// kvLogger adapts the structured logger to the keysAndValues interfaces used
// by the api and processor packages.
type kvLogger struct {
	log logger.Logger
}

func (l *kvLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, toFields(keysAndValues)...)
}

func (l *kvLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, toFields(keysAndValues)...)
}

func (l *kvLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn(msg, toFields(keysAndValues)...)
}

func (l *kvLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, toFields(keysAndValues)...)
}

func toFields(keysAndValues []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, logger.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		// A missing config file is fine; defaults plus env cover it.
		if errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logCfg := logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Service.Debug,
	}
	if cfg.Logging.Output != "" {
		logCfg.OutputPaths = []string{cfg.Logging.Output}
	}
	log, err := logger.New(logCfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting analyzer service",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     strconv.Itoa(cfg.Database.Port),
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", logger.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err = database.Migrate(db); err != nil {
		log.Fatal("Failed to run database migrations", logger.Error(err))
	}

	provider := telemetry.NewProvider()

	recordsRepo := database.NewRecordsRepository(db, provider)
	resultsRepo := database.NewResultsRepository(db, provider)

	eng := engine.New(log, provider, engine.Config{
		Version: cfg.Service.Version,
		Cannibalization: engine.CannibalizationConfig{
			MinImpressions: cfg.Engine.Cannibalization.MinImpressions,
		},
		Clusterer: engine.ClustererConfig{
			SimilarityThreshold: cfg.Engine.Clusterer.SimilarityThreshold,
			MaxClusters:         cfg.Engine.Clusterer.MaxClusters,
			MaxIterations:       cfg.Engine.Clusterer.MaxIterations,
			TopQueryCap:         cfg.Engine.Clusterer.TopQueryCap,
			SearchWindow:        cfg.Engine.Clusterer.SearchWindow,
			SamplePairs:         cfg.Engine.Clusterer.SamplePairs,
			MinClusterSize:      cfg.Engine.Clusterer.MinClusterSize,
		},
	})

	kv := &kvLogger{log: log}

	if cfg.Scheduler.Enabled {
		scheduler := processor.NewScheduler(recordsRepo, resultsRepo, eng, provider, kv, processor.SchedulerConfig{
			PollInterval:  cfg.Scheduler.PollInterval,
			RunsPerSecond: cfg.Scheduler.RunsPerSec,
			Burst:         cfg.Scheduler.Burst,
		})

		schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
		defer cancelScheduler()

		if err = scheduler.Start(schedulerCtx); err != nil {
			log.Fatal("Failed to start scheduler", logger.Error(err))
		}
		defer scheduler.Stop()
	} else {
		log.Info("Background re-analysis disabled")
	}

	handler := api.NewHandler(eng, recordsRepo, resultsRepo, api.ReportingThresholds{
		QuickWinMinImpressions: cfg.Engine.Reporting.QuickWinMinImpressions,
		QuickWinMaxPosition:    cfg.Engine.Reporting.QuickWinMaxPosition,
		MaxCannibalReports:     cfg.Engine.Reporting.MaxCannibalReports,
	}, provider, kv)
	if cfg.Auth.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET is empty, API routes are unprotected")
	}

	server := api.NewServer(api.ServerConfig{
		Port:  cfg.Service.Port,
		Debug: cfg.Service.Debug,
	}, log, func(router *gin.Engine) {
		api.SetupRoutes(router, handler, cfg.Auth.JWTSecret, provider.Handler())
	})

	serverErrors := server.StartAsync()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-serverErrors:
		log.Error("Server error", logger.Error(err))
		os.Exit(1)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", logger.Error(err))
			os.Exit(1)
		}

		log.Info("Server stopped gracefully")
	}
}
