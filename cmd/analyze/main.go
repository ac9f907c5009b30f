package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"spese-insights/internal/analysis"
	"spese-insights/internal/anomaly"
	"spese-insights/internal/cli"
	"spese-insights/internal/log"
	"spese-insights/internal/services"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout, os.Stderr))
}

func run(stdin io.Reader, stdout, stderr io.Writer) int {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := cli.SetupLogger(cfg, stderr).With(log.FieldRunID, uuid.NewString())
	cli.LogConfig(logger, cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx = log.NewContext(ctx, logger)

	sinks := cli.InitSinks(ctx, logger, cfg)
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("Failed to close sinks",
				log.FieldOperation, log.OpShutdown,
				log.FieldError, err.Error())
		}
	}()

	analyzer := analysis.NewAnalyzer(anomaly.NewDetector(cfg.AnomalySeed))
	opts := append(sinks.Options(), services.WithSinkTimeout(cfg.SinkTimeout))
	svc := services.NewInsightService(analyzer, opts...)

	if _, err := svc.Run(ctx, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
