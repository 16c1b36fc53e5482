package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pior/homeworks"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "homeworks.yaml"

// Config is the layout of the CLI configuration file.
//
//	address: tcp://192.168.1.50:4003
//	credentials: lutron,integration
//	log_level: info
//	retry_interval: 2s
//	circuit_breaker:
//	  failures: 5
//	  timeout: 30s
//	http:
//	  listen: ":9100"
type Config struct {
	Address     string `yaml:"address"`
	Credentials string `yaml:"credentials"`
	LogLevel    string `yaml:"log_level"`

	ReadinessDelay time.Duration `yaml:"readiness_delay"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	WarnWindow     int           `yaml:"warn_window"`

	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker"`
	HTTP           HTTP           `yaml:"http"`
}

// CircuitBreaker configures dial throttling. Zero failures disables it.
type CircuitBreaker struct {
	Failures uint32        `yaml:"failures"`
	Timeout  time.Duration `yaml:"timeout"`
}

type HTTP struct {
	Listen string `yaml:"listen"`
}

const defaultBreakerTimeout = 30 * time.Second

// Load reads the configuration file at path.
// A missing file yields an empty configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for name, d := range map[string]time.Duration{
		"readiness_delay":         c.ReadinessDelay,
		"settle_delay":            c.SettleDelay,
		"retry_interval":          c.RetryInterval,
		"dial_timeout":            c.DialTimeout,
		"circuit_breaker.timeout": c.CircuitBreaker.Timeout,
	} {
		if d < 0 {
			return fmt.Errorf("invalid config: %s must not be negative", name)
		}
	}
	return nil
}

// ClientConfig converts the file settings to a client configuration.
func (c *Config) ClientConfig(logger *slog.Logger) homeworks.Config {
	cfg := homeworks.Config{
		Address:        c.Address,
		Credentials:    c.Credentials,
		ReadinessDelay: c.ReadinessDelay,
		SettleDelay:    c.SettleDelay,
		RetryInterval:  c.RetryInterval,
		DialTimeout:    c.DialTimeout,
		WarnWindow:     c.WarnWindow,
		Logger:         logger,
	}

	if c.CircuitBreaker.Failures > 0 {
		timeout := c.CircuitBreaker.Timeout
		if timeout == 0 {
			timeout = defaultBreakerTimeout
		}
		settings := homeworks.NewCircuitBreakerSettings(c.Address, c.CircuitBreaker.Failures, timeout)
		cfg.CircuitBreakerSettings = &settings
	}

	return cfg
}
