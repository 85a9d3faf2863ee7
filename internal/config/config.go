// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Solana  SolanaConfig  `mapstructure:"solana"`
	Storage StorageConfig `mapstructure:"storage"`
	Content ContentConfig `mapstructure:"content"`
	Launch  LaunchConfig  `mapstructure:"launch"`
	Social  SocialConfig  `mapstructure:"social"`
	Market  MarketConfig  `mapstructure:"market"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicURL       string        `mapstructure:"public_url"`
	Debug           bool          `mapstructure:"debug"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SolanaConfig struct {
	RPCURL     string        `mapstructure:"rpc_url"`
	Commitment string        `mapstructure:"commitment"`
	RPCTimeout time.Duration `mapstructure:"rpc_timeout"`
}

type StorageConfig struct {
	PostgresURL    string        `mapstructure:"postgres_url"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type ContentConfig struct {
	UploadsDir    string `mapstructure:"uploads_dir"`
	MetadataDir   string `mapstructure:"metadata_dir"`
	MaxImageBytes int64  `mapstructure:"max_image_bytes"`
}

type LaunchConfig struct {
	InitialBuySOL    string `mapstructure:"initial_buy_sol"`
	SlippageBps      uint64 `mapstructure:"slippage_bps"`
	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
}

type SocialConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MarketConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Workers      int           `mapstructure:"workers"`
	BatchSize    int           `mapstructure:"batch_size"`
	SolUSD       float64       `mapstructure:"sol_usd"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
	SentryDSN   string `mapstructure:"sentry_dsn"`
}

const (
	DefaultPort          = 3000
	DefaultRPCURL        = "https://api.mainnet-beta.solana.com"
	DefaultRPCTimeout    = 30 * time.Second
	DefaultMaxImageBytes = 1 << 20
	DefaultInitialBuySOL = "0.001"
	DefaultSlippageBps   = 500
	DefaultSocialBaseURL = "https://www.moltbook.com"
	DefaultNATSSubject   = "pumpbot.launches"
	DefaultMarketWorkers = 4

	envPrefix = "PUMPBOT"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":             "0.0.0.0",
		"server.port":             DefaultPort,
		"server.public_url":       "",
		"server.debug":            false,
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    60 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,
		"server.cors_origins":     []string{},
		"solana.rpc_url":          DefaultRPCURL,
		"solana.commitment":       "confirmed",
		"solana.rpc_timeout":      DefaultRPCTimeout,
		"storage.postgres_url":    "",
		"storage.max_open_conns":  25,
		"storage.max_idle_conns":  5,
		"storage.connect_timeout": 30 * time.Second,
		"content.uploads_dir":     "./uploads",
		"content.metadata_dir":    "./metadata",
		"content.max_image_bytes": DefaultMaxImageBytes,
		"launch.initial_buy_sol":  DefaultInitialBuySOL,
		"launch.slippage_bps":     DefaultSlippageBps,

		"launch.compute_unit_limit": 0,
		"launch.compute_unit_price": 0,

		"social.base_url":         DefaultSocialBaseURL,
		"social.timeout":          15 * time.Second,
		"market.poll_interval":    time.Duration(0),
		"market.workers":          DefaultMarketWorkers,
		"market.batch_size":       200,
		"market.sol_usd":          0.0,
		"nats.url":                "",
		"nats.subject":            DefaultNATSSubject,
		"log.file":                "pumpbot.log",
		"log.max_size":            100,
		"log.max_backups":         3,
		"log.max_age":             7,
		"log.compress":            true,
		"log.development":         false,
		"log.sentry_dsn":          "",
	}
}

// Load reads configuration from an optional file, the process environment and
// an optional .env file in the working directory. An empty path skips the file.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is the common case
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	loadListOverrides(v, &cfg)

	return &cfg, Validate(&cfg)
}

// Validate checks the loaded values.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("invalid server.port")
	}
	if err := validateURLWithCache(cfg.Solana.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid solana.rpc_url: %w", err)
	}
	if cfg.Server.PublicURL != "" {
		if err := validateURLWithCache(cfg.Server.PublicURL, "http"); err != nil {
			return fmt.Errorf("invalid server.public_url: %w", err)
		}
	}
	if cfg.NATS.URL != "" {
		if err := validateURLWithCache(cfg.NATS.URL, "nats", "tls"); err != nil {
			return fmt.Errorf("invalid nats.url: %w", err)
		}
	}
	if cfg.Content.MaxImageBytes <= 0 {
		return errors.New("invalid content.max_image_bytes")
	}
	if cfg.Market.PollInterval < 0 {
		return errors.New("invalid market.poll_interval")
	}
	if cfg.Market.PollInterval > 0 && cfg.Market.Workers < 1 {
		return errors.New("invalid market.workers")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, schemes ...string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	for _, scheme := range schemes {
		if strings.HasPrefix(parsed.Scheme, scheme) {
			urlCache.Store(rawURL, parsed)
			return nil
		}
	}
	return errors.New("invalid URL protocol")
}

// loadListOverrides handles comma separated env values viper does not split.
func loadListOverrides(v *viper.Viper, cfg *Config) {
	raw := v.GetString("SERVER_CORS_ORIGINS")
	if raw == "" {
		return
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(origin); clean != "" {
			origins = append(origins, clean)
		}
	}
	if len(origins) > 0 {
		cfg.Server.CORSOrigins = origins
	}
}
