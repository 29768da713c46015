// Package config loads runtime configuration for cmd/splitterd.
//
// File- and environment-backed settings (network addresses, buffer sizes,
// timeouts) are layered through Viper, matching the configuration style the
// rest of this codebase's server family already uses. Secret-shaped values
// (the JWT signing key, an optional NATS auth token) are kept out of that
// file-backed surface and loaded separately via caarlos0/env, after an
// optional .env file is loaded with godotenv — so a developer can drop a
// .env next to the binary without it ever being read back out of a
// checked-in config file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for splitterd.
type Config struct {
	Server   ServerConfig
	Splitter SplitterConfig
	Ingest   IngestConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
	Secrets  Secrets
}

// ServerConfig contains network-level settings for the WebSocket listener
// and the HTTP admin surface.
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	AdminAddr     string        `mapstructure:"admin_addr"`
	WebSocketPath string        `mapstructure:"websocket_path"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// SplitterConfig controls the core splitter's fixed capacities and the
// default timeouts used by the demo service around it.
type SplitterConfig struct {
	MaxBuffers   int `mapstructure:"max_buffers"`
	MaxClients   int `mapstructure:"max_clients"`
	PutTimeoutMs int `mapstructure:"put_timeout_ms"`
	GetTimeoutMs int `mapstructure:"get_timeout_ms"`
}

// IngestConfig controls the single NATS producer that feeds the splitter.
type IngestConfig struct {
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// MetricsConfig controls Prometheus/diagnostics endpoints.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level              string   `mapstructure:"level"`
	Development        bool     `mapstructure:"development"`
	SamplingInitial    int      `mapstructure:"sampling_initial"`
	SamplingThereafter int      `mapstructure:"sampling_thereafter"`
	OutputPaths        []string `mapstructure:"output_paths"`
}

// Secrets holds values deliberately kept out of Viper's file-backed config.
type Secrets struct {
	JWTSigningKey string `env:"ISPLITTER_JWT_SECRET" envDefault:"dev-secret-change-me"`
	NATSToken     string `env:"ISPLITTER_NATS_TOKEN"`
}

// Load reads configuration from environment variables, an optional .env
// file, and an optional config file.
func Load() (Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.admin_addr", ":9095")
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("splitter.max_buffers", 64)
	v.SetDefault("splitter.max_clients", 1024)
	v.SetDefault("splitter.put_timeout_ms", 50)
	v.SetDefault("splitter.get_timeout_ms", 50)

	v.SetDefault("ingest.url", "nats://127.0.0.1:4222")
	v.SetDefault("ingest.subject", "isplitter.frames")
	v.SetDefault("ingest.rate_limit", 1000.0)
	v.SetDefault("ingest.rate_burst", 100)
	v.SetDefault("ingest.reconnect_wait", 2*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.sampling_initial", 100)
	v.SetDefault("logging.sampling_thereafter", 100)
	v.SetDefault("logging.output_paths", []string{"stdout"})

	v.SetConfigName("isplitter")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("ISPLITTER")
	v.AutomaticEnv()

	_ = v.ReadInConfig() // config file is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Splitter.MaxBuffers <= 0 {
		cfg.Splitter.MaxBuffers = 64
	}
	if cfg.Splitter.MaxClients <= 0 {
		cfg.Splitter.MaxClients = 1024
	}

	if err := env.Parse(&cfg.Secrets); err != nil {
		return Config{}, fmt.Errorf("secrets parse: %w", err)
	}

	return cfg, nil
}
