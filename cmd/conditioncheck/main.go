// Command conditioncheck runs a file of condition scenarios and reports which
// of them hold.
//
// Each scenario parses one condition and checks it against inline entities,
// inline records or, when DATABASE_URL is set, the rows of a query.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	conditionsql "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/infrastructure"
)

func main() {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting conditioncheck", zap.String("config", cfg.String()))

	if err := run(cfg, logger); err != nil {
		logger.Error("conditioncheck failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *Config, logger *zap.Logger) error {
	file, err := LoadScenarios(cfg.ScenariosPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	opts := []RunnerOption{
		WithFailFast(cfg.FailFast),
		WithObserver(conditionsql.NewEvaluationMetrics(registry)),
	}
	if cfg.DatabaseURL != "" {
		conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer conn.Close(context.Background())
		opts = append(opts, WithDatabase(conn, cfg.QueryTimeout))
	}

	results, runErr := NewRunner(logger, opts...).Run(ctx, file.Scenarios)

	counts := map[Outcome]int{}
	for _, result := range results {
		counts[result.Outcome]++
	}
	logger.Info("Scenarios finished",
		zap.Int("passed", counts[OutcomePass]),
		zap.Int("failed", counts[OutcomeFail]),
		zap.Int("skipped", counts[OutcomeSkip]),
	)

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, registry); err != nil {
			logger.Warn("Failed to write metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	return runErr
}

func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
