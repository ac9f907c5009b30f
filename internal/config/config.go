package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=text json"`

	// Anomaly detection
	AnomalySeed int64 `env:"ANOMALY_SEED"`

	// Insight history
	InsightsDBPath string `env:"INSIGHTS_DB_PATH"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL" validate:"omitempty,url"`
	AMQPExchange string `env:"AMQP_EXCHANGE" validate:"required_with=AMQPURL,max=255"`
	AMQPQueue    string `env:"AMQP_QUEUE" validate:"required_with=AMQPURL,max=255"`

	// Metrics
	PushgatewayURL string `env:"PUSHGATEWAY_URL" validate:"omitempty,http_url"`
	MetricsJob     string `env:"METRICS_JOB" validate:"required_with=PushgatewayURL,excludes=/"`

	SinkTimeout time.Duration `env:"SINK_TIMEOUT" validate:"min=100ms,max=5m"`
}

func Load() *Config {
	return &Config{
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "warn")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		AnomalySeed: getEnvInt64("ANOMALY_SEED", 42),

		InsightsDBPath: getEnv("INSIGHTS_DB_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "insights"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "insights_generated"),

		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		MetricsJob:     getEnv("METRICS_JOB", "spending_insights"),

		SinkTimeout: getEnvDuration("SINK_TIMEOUT", 10*time.Second),
	}
}

// StorageEnabled reports whether insights are persisted.
func (c *Config) StorageEnabled() bool { return c.InsightsDBPath != "" }

// PublishEnabled reports whether insight events are published.
func (c *Config) PublishEnabled() bool { return c.AMQPURL != "" }

// MetricsEnabled reports whether run metrics are pushed.
func (c *Config) MetricsEnabled() bool { return c.PushgatewayURL != "" }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report problems by environment key rather than Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate configuration: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	// The url rule accepts any scheme.
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err == nil && parsedURL.Scheme != "" && parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	key := fe.Field()
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("invalid %s '%v': must be one of [%s]", key, fe.Value(), fe.Param())
	case "url", "http_url":
		return fmt.Sprintf("invalid %s '%v': must be a valid URL", key, fe.Value())
	case "required_with":
		return fmt.Sprintf("%s cannot be empty when %s is set", key, envKey(fe.Param()))
	case "excludes":
		return fmt.Sprintf("invalid %s '%v': must not contain '%s'", key, fe.Value(), fe.Param())
	case "min":
		return fmt.Sprintf("invalid %s %v: must be at least %s", key, fe.Value(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("invalid %s: must be at most %s characters", key, fe.Param())
		}
		return fmt.Sprintf("invalid %s %v: must be at most %s", key, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("invalid %s '%v': failed '%s' check", key, fe.Value(), fe.Tag())
	}
}

// envKey maps a Go field name used in a cross-field rule back to its env key.
func envKey(field string) string {
	if f, ok := reflect.TypeOf(Config{}).FieldByName(field); ok {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
	}
	return field
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
