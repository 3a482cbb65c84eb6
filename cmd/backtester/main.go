package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"

	"robotbacktester/internal/config"
	"robotbacktester/internal/engine"
	"robotbacktester/internal/repository"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var configPath string
	var robotID string
	var automatic bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to the run configuration")
	flag.StringVar(&robotID, "robot", "", "robot id, overrides robot.id")
	flag.BoolVar(&automatic, "automatic", false, "run the whole range instead of stopping at the first pending signal")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if robotID != "" {
		cfg.Robot.ID = robotID
	}
	if automatic {
		cfg.Robot.Automatic = true
	}

	logger := newLogger(cfg.App.LogLevel).With(zap.String("app", cfg.App.Name))
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, stopping after the current day")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("backtest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := repository.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.NewEngine(&db, &db, cfg.EngineConfig(), cfg.ReportingConfig(), logger)
	if cfg.Output.Progress {
		eng.SetProgressWriter(os.Stderr)
	}

	res, runErr := eng.Run(ctx, cfg.RunRequest(), nil)
	if res != nil && len(res.Days) > 0 {
		if err := writeOutputs(cfg.Output, res); err != nil {
			logger.Error("write outputs", zap.Error(err))
		}
		engine.PrintSummary(os.Stdout, res.Summary)
	}
	return runErr
}

func writeOutputs(out config.OutputConfig, res *engine.Result) error {
	if !out.CSV && !out.JSON {
		return nil
	}
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if out.CSV {
		if err := engine.WriteDaysCSVFile(filepath.Join(out.Dir, res.RunID+"_days.csv"), res.Days); err != nil {
			return err
		}
		if err := engine.WriteFillsCSVFile(filepath.Join(out.Dir, res.RunID+"_fills.csv"), res.Days); err != nil {
			return err
		}
	}
	if out.JSON {
		f, err := os.Create(filepath.Join(out.Dir, res.RunID+".json"))
		if err != nil {
			return fmt.Errorf("create result file: %w", err)
		}
		defer f.Close()
		if err := engine.WriteResultJSON(f, res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
