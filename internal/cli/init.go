// Package cli provides the bootstrap steps of the analyze command:
// environment, logging, configuration and optional sinks.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spese-insights/internal/amqp"
	"spese-insights/internal/config"
	"spese-insights/internal/log"
	"spese-insights/internal/metrics"
	"spese-insights/internal/services"
	"spese-insights/internal/storage"
)

// LoadEnvFile loads a .env file for local development.
// A missing file is not an error.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// SetupLogger builds the application logger on w (stderr in production)
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogConfig records which optional sinks the validated configuration enables.
func LogConfig(logger *log.Logger, cfg *config.Config) {
	logger.WithComponent(log.ComponentConfig).Debug("Configuration validated",
		log.FieldOperation, log.OpValidate,
		"storage", cfg.StorageEnabled(),
		"amqp", cfg.PublishEnabled(),
		"metrics", cfg.MetricsEnabled(),
		"sink_timeout", cfg.SinkTimeout.String())
}

// Sinks holds whichever post-report sinks could be initialized.
type Sinks struct {
	Store     *storage.SQLiteRepository
	Publisher *amqp.Publisher
	Recorder  *metrics.Recorder
	Pusher    *metrics.Pusher
}

// InitSinks connects the sinks enabled in cfg. A sink that fails to
// initialize is logged and left out; the analysis itself never depends on it.
func InitSinks(ctx context.Context, logger *log.Logger, cfg *config.Config) *Sinks {
	sinks := &Sinks{}

	if cfg.StorageEnabled() {
		repo, err := storage.NewSQLiteRepository(cfg.InsightsDBPath)
		if err != nil {
			logger.WithComponent(log.ComponentStorage).Warn("Insight history disabled",
				log.FieldOperation, log.OpStartup,
				log.FieldError, err.Error(),
				log.FieldPath, cfg.InsightsDBPath)
		} else {
			sinks.Store = repo
		}
	}

	if cfg.PublishEnabled() {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.SinkTimeout)
		publisher, err := amqp.Dial(log.NewContext(dialCtx, logger), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		cancel()
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("Insight events disabled",
				log.FieldOperation, log.OpStartup,
				log.FieldError, err.Error(),
				log.FieldExchange, cfg.AMQPExchange,
				log.FieldQueue, cfg.AMQPQueue)
		} else {
			sinks.Publisher = publisher
		}
	}

	if cfg.MetricsEnabled() {
		sinks.Recorder = metrics.NewRecorder()
		sinks.Pusher = metrics.NewPusher(cfg.PushgatewayURL, cfg.MetricsJob)
	}

	return sinks
}

// Options turns the initialized sinks into service options.
func (s *Sinks) Options() []services.Option {
	var opts []services.Option
	if s.Store != nil {
		opts = append(opts, services.WithStore(s.Store))
	}
	if s.Publisher != nil {
		opts = append(opts, services.WithPublisher(s.Publisher))
	}
	if s.Recorder != nil {
		opts = append(opts, services.WithMetrics(s.Recorder, s.Pusher))
	}
	return opts
}

// Close closes whatever connections were opened.
func (s *Sinks) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
