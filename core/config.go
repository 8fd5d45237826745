package core

import (
	"encoding/json"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds orchestrator-wide settings assembled in three layers:
// defaults, environment variables, then functional options (highest
// priority), mirroring the teacher framework's configuration layering.
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("council-orchestrator"),
//	    WithLogLevel("debug"),
//	    WithCircuitBreaker(5, 30*time.Second),
//	)
type Config struct {
	Name string `json:"name" yaml:"name" env:"COUNCIL_NAME" default:"council-orchestrator"`

	HTTP        HTTPClientConfig  `json:"http" yaml:"http"`
	Resilience  ResilienceConfig  `json:"resilience" yaml:"resilience"`
	Telemetry   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Session     SessionConfig     `json:"session" yaml:"session"`
	Development DevelopmentConfig `json:"development" yaml:"development"`

	logger Logger `json:"-" yaml:"-"`
}

// HTTPClientConfig bounds the default provider HTTP client (§6).
type HTTPClientConfig struct {
	RequestTimeout  time.Duration `json:"request_timeout" yaml:"request_timeout" env:"COUNCIL_HTTP_TIMEOUT" default:"30s"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"COUNCIL_HTTP_MAX_IDLE_CONNS" default:"100"`
	IdleConnTimeout time.Duration `json:"idle_conn_timeout" yaml:"idle_conn_timeout" env:"COUNCIL_HTTP_IDLE_CONN_TIMEOUT" default:"90s"`
}

// TelemetryConfig configures the optional OpenTelemetry integration.
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled" env:"COUNCIL_TELEMETRY_ENABLED" default:"false"`
	Endpoint       string  `json:"endpoint" yaml:"endpoint" env:"COUNCIL_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string  `json:"service_name" yaml:"service_name" env:"COUNCIL_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	MetricsEnabled bool    `json:"metrics_enabled" yaml:"metrics_enabled" env:"COUNCIL_TELEMETRY_METRICS" default:"true"`
	TracingEnabled bool    `json:"tracing_enabled" yaml:"tracing_enabled" env:"COUNCIL_TELEMETRY_TRACING" default:"true"`
	SamplingRate   float64 `json:"sampling_rate" yaml:"sampling_rate" env:"COUNCIL_TELEMETRY_SAMPLING_RATE" default:"1.0"`
	Insecure       bool    `json:"insecure" yaml:"insecure" env:"COUNCIL_TELEMETRY_INSECURE" default:"true"`
}

// ResilienceConfig groups the fault-tolerance patterns used by the Agent
// Executor and provider adapters.
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry" yaml:"retry"`
	Timeout        TimeoutConfig        `json:"timeout" yaml:"timeout"`
}

// CircuitBreakerConfig defines per-provider circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled" env:"COUNCIL_CB_ENABLED" default:"true"`
	Threshold        int           `json:"threshold" yaml:"threshold" env:"COUNCIL_CB_THRESHOLD" default:"5"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" env:"COUNCIL_CB_TIMEOUT" default:"30s"`
	HalfOpenRequests int           `json:"half_open_requests" yaml:"half_open_requests" env:"COUNCIL_CB_HALF_OPEN" default:"3"`
}

// RetryConfig defines the exponential backoff settings for the Agent
// Executor's candidate retry policy (§4.3). Defaults match the spec's
// 250ms..1s window.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts" env:"COUNCIL_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" env:"COUNCIL_RETRY_INITIAL_INTERVAL" default:"250ms"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval" env:"COUNCIL_RETRY_MAX_INTERVAL" default:"1s"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier" env:"COUNCIL_RETRY_MULTIPLIER" default:"2.0"`
}

// TimeoutConfig defines fallback operation timeouts.
type TimeoutConfig struct {
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout" env:"COUNCIL_TIMEOUT_DEFAULT" default:"30s"`
	MaxTimeout     time.Duration `json:"max_timeout" yaml:"max_timeout" env:"COUNCIL_TIMEOUT_MAX" default:"5m"`
}

// LoggingConfig controls the production logger's verbosity and encoding.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" env:"COUNCIL_LOG_LEVEL" default:"info"`
	Format     string `json:"format" yaml:"format" env:"COUNCIL_LOG_FORMAT" default:"json"`
	Output     string `json:"output" yaml:"output" env:"COUNCIL_LOG_OUTPUT" default:"stdout"`
	TimeFormat string `json:"time_format" yaml:"time_format" env:"COUNCIL_LOG_TIME_FORMAT" default:"2006-01-02T15:04:05.000Z07:00"`
}

// SessionConfig controls Session Manager GC sweep behavior (§4.9).
type SessionConfig struct {
	TTL           time.Duration `json:"ttl" yaml:"ttl" env:"COUNCIL_SESSION_TTL" default:"30m"`
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" env:"COUNCIL_SESSION_SWEEP_INTERVAL" default:"5m"`
}

// DevelopmentConfig enables local-dev conveniences. Never set Enabled=true in
// production: it switches logging to pretty text and allows mock providers.
type DevelopmentConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled" env:"COUNCIL_DEV_MODE" default:"false"`
	MockProviders bool `json:"mock_providers" yaml:"mock_providers" env:"COUNCIL_MOCK_PROVIDERS" default:"false"`
	DebugLogging  bool `json:"debug_logging" yaml:"debug_logging" env:"COUNCIL_DEBUG" default:"false"`
	PrettyLogs   bool `json:"pretty_logs" env:"COUNCIL_PRETTY_LOGS" default:"false"`
}

// Option is a functional option for configuring the orchestrator.
type Option func(*Config) error

// DefaultConfig returns sensible built-in defaults, before env/options apply.
func DefaultConfig() *Config {
	return &Config{
		Name: "council-orchestrator",
		HTTP: HTTPClientConfig{
			RequestTimeout:  30 * time.Second,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				Threshold:        5,
				Timeout:          30 * time.Second,
				HalfOpenRequests: 3,
			},
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: ExecutorRetryInitialDelay,
				MaxInterval:     ExecutorRetryMaxDelay,
				Multiplier:      2.0,
			},
			Timeout: TimeoutConfig{
				DefaultTimeout: 30 * time.Second,
				MaxTimeout:     5 * time.Minute,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			MetricsEnabled: true,
			TracingEnabled: true,
			SamplingRate:   1.0,
			Insecure:       true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			TimeFormat: time.RFC3339,
		},
		Session: SessionConfig{
			TTL:           DefaultSessionTTL,
			SweepInterval: 5 * time.Minute,
		},
	}
}

// LoadFromFile overlays cfg with the contents of a JSON or YAML file, chosen
// by extension (.json, .yaml, .yml). Call before LoadFromEnv/options so the
// usual defaults < file < env < options precedence holds.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse JSON config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse YAML config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q (want .json, .yaml, or .yml)", ext)
	}
	return nil
}

// LoadFromEnv overlays environment variables on top of the current values.
// Only variables explicitly set in the environment override the receiver.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("COUNCIL_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("COUNCIL_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COUNCIL_HTTP_TIMEOUT: %w", err)
		}
		c.HTTP.RequestTimeout = d
	}
	if v := os.Getenv("COUNCIL_CB_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COUNCIL_CB_THRESHOLD: %w", err)
		}
		c.Resilience.CircuitBreaker.Threshold = n
	}
	if v := os.Getenv("COUNCIL_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COUNCIL_RETRY_MAX_ATTEMPTS: %w", err)
		}
		c.Resilience.Retry.MaxAttempts = n
	}
	if v := os.Getenv("COUNCIL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COUNCIL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("COUNCIL_TELEMETRY_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COUNCIL_TELEMETRY_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = b
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	} else if v := os.Getenv("COUNCIL_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("COUNCIL_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COUNCIL_SESSION_TTL: %w", err)
		}
		c.Session.TTL = d
	}
	if v := os.Getenv("COUNCIL_DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COUNCIL_DEV_MODE: %w", err)
		}
		c.Development.Enabled = b
	}
	return nil
}

// Validate rejects configurations that would make the orchestrator
// misbehave rather than fail fast.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive")
	}
	if c.Resilience.Retry.MaxAttempts < 1 {
		return fmt.Errorf("resilience.retry.max_attempts must be >= 1")
	}
	if c.Resilience.CircuitBreaker.Threshold < 1 {
		return fmt.Errorf("resilience.circuit_breaker.threshold must be >= 1")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// NewConfig assembles a Config from defaults, environment, then options, in
// that priority order, and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.logger == nil {
		logger := NewProductionLogger(cfg.Logging, cfg.Development, cfg.Name)
		if prodLogger, ok := logger.(*ProductionLogger); ok {
			trackLogger(prodLogger)
		}
		cfg.logger = logger
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Logger returns the configured logger, constructing a production logger
// from Logging/Development settings if none was supplied via WithLogger.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		c.logger = NewProductionLogger(c.Logging, c.Development, c.Name)
	}
	return c.logger
}

// Functional options.

// WithConfigFile overlays cfg with a JSON or YAML file at its position in
// the option list. NewConfig applies options after the environment, so
// file values override env values, and options listed after it still win.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

func WithName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}
		c.Name = name
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = strings.ToLower(level)
		return nil
	}
}

func WithLogFormat(format string) Option {
	return func(c *Config) error {
		if format != "json" && format != "text" {
			return fmt.Errorf("log format must be json or text, got %q", format)
		}
		c.Logging.Format = format
		return nil
	}
}

func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) error {
		if threshold < 1 {
			return fmt.Errorf("threshold must be >= 1")
		}
		c.Resilience.CircuitBreaker.Enabled = true
		c.Resilience.CircuitBreaker.Threshold = threshold
		c.Resilience.CircuitBreaker.Timeout = timeout
		return nil
	}
}

func WithRetry(maxAttempts int, initialInterval time.Duration) Option {
	return func(c *Config) error {
		if maxAttempts < 1 {
			return fmt.Errorf("max attempts must be >= 1")
		}
		c.Resilience.Retry.MaxAttempts = maxAttempts
		c.Resilience.Retry.InitialInterval = initialInterval
		return nil
	}
}

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		c.HTTP.RequestTimeout = timeout
		return nil
	}
}

func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return fmt.Errorf("session ttl must be positive")
		}
		c.Session.TTL = ttl
		return nil
	}
}

func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Logging.Format = "text"
			c.Development.PrettyLogs = true
		}
		return nil
	}
}

func WithMockProviders(enabled bool) Option {
	return func(c *Config) error {
		c.Development.MockProviders = enabled
		return nil
	}
}

// ============================================================================
// ProductionLogger — layered observability, identical in shape to the
// teacher's framework logger, adapted to this module's naming.
// ============================================================================

// ProductionLogger provides structured, optionally metrics-emitting logging.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	format      string
	output      io.Writer

	metricsEnabled bool
}

// NewProductionLogger creates a logger from LoggingConfig/DevelopmentConfig.
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if logging.Output == "stderr" {
		output = os.Stderr
	}

	return &ProductionLogger{
		level:          strings.ToLower(logging.Level),
		debug:          dev.DebugLogging || logging.Level == "debug",
		serviceName:    serviceName,
		format:         logging.Format,
		output:         output,
		metricsEnabled: false,
	}
}

// EnableMetrics is called by the telemetry package once it registers a
// MetricsRegistry via SetMetricsRegistry.
func (p *ProductionLogger) EnableMetrics() {
	p.metricsEnabled = true
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, nil)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields, ctx)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, nil)
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields, ctx)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, nil)
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields, ctx)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, nil)
	}
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields, ctx)
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}, ctx context.Context) {
	timestamp := time.Now().Format(time.RFC3339)

	if p.format == "json" {
		logEntry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"component": "orchestrator",
			"message":   msg,
		}

		if ctx != nil && p.metricsEnabled {
			if baggage := getContextBaggage(ctx); len(baggage) > 0 {
				for k, v := range baggage {
					logEntry["trace."+k] = v
				}
			}
		}

		for k, v := range fields {
			logEntry[k] = v
		}

		if data, err := json.Marshal(logEntry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
	} else {
		traceInfo := ""
		if ctx != nil && p.metricsEnabled {
			if baggage := getContextBaggage(ctx); baggage["request_id"] != "" {
				traceInfo = fmt.Sprintf("[req=%s] ", baggage["request_id"])
			}
		}

		var fieldStr strings.Builder
		if len(fields) > 0 {
			fieldStr.WriteString(" ")
			for k, v := range fields {
				fieldStr.WriteString(fmt.Sprintf("%s=%v ", k, v))
			}
		}

		fmt.Fprintf(p.output, "%s [%s] [%s] %s%s%s\n",
			timestamp, level, p.serviceName, traceInfo, msg, fieldStr.String())
	}

	if p.metricsEnabled {
		p.emitFrameworkMetric(level, msg, fields, ctx)
	}
}

func (p *ProductionLogger) emitFrameworkMetric(level, msg string, fields map[string]interface{}, ctx context.Context) {
	labels := []string{
		"level", level,
		"service", p.serviceName,
		"component", "orchestrator",
	}

	for k, v := range fields {
		switch k {
		case "operation", "status", "error_kind", "provider", "role", "phase":
			labels = append(labels, k, fmt.Sprintf("%v", v))
		}
	}

	if ctx != nil {
		emitMetricWithContext(ctx, "council.orchestrator.operations", 1.0, labels...)
	} else {
		emitMetric("council.orchestrator.operations", 1.0, labels...)
	}
}

func emitMetric(name string, value float64, labels ...string) {
	if globalMetricsRegistry != nil {
		globalMetricsRegistry.Counter(name, labels...)
	}
}

func emitMetricWithContext(ctx context.Context, name string, value float64, labels ...string) {
	if globalMetricsRegistry != nil {
		globalMetricsRegistry.EmitWithContext(ctx, name, value, labels...)
	}
}

func getContextBaggage(ctx context.Context) map[string]string {
	if globalMetricsRegistry != nil {
		return globalMetricsRegistry.GetBaggage(ctx)
	}
	return make(map[string]string)
}
