// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validConfigJSON = `{
    "server": {"port": 8080, "public_url": "https://pumpbot.example", "debug": true},
    "solana": {"rpc_url": "https://rpc.example"},
    "content": {"uploads_dir": "/srv/uploads"},
    "market": {"poll_interval": "30s", "workers": 2},
    "nats": {"url": "nats://localhost:4222"}
}`

var invalidConfigJSON = `{
    "server": {"port": 70000},
    "solana": {"rpc_url": "ftp://rpc.example"}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "valid config",
			content: validConfigJSON,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "https://pumpbot.example", cfg.Server.PublicURL)
				assert.True(t, cfg.Server.Debug)
				assert.Equal(t, "https://rpc.example", cfg.Solana.RPCURL)
				assert.Equal(t, "/srv/uploads", cfg.Content.UploadsDir)
				assert.Equal(t, "./metadata", cfg.Content.MetadataDir)
				assert.Equal(t, 30*time.Second, cfg.Market.PollInterval)
				assert.Equal(t, 2, cfg.Market.Workers)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
			},
		},
		{
			name:    "invalid config",
			content: invalidConfigJSON,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultRPCURL, cfg.Solana.RPCURL)
	assert.Equal(t, int64(DefaultMaxImageBytes), cfg.Content.MaxImageBytes)
	assert.Equal(t, DefaultInitialBuySOL, cfg.Launch.InitialBuySOL)
	assert.Equal(t, time.Duration(0), cfg.Market.PollInterval)
	assert.Empty(t, cfg.Storage.PostgresURL)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PUMPBOT_SERVER_PORT", "9090")
	t.Setenv("PUMPBOT_STORAGE_POSTGRES_URL", "postgres://u:p@db:5432/pumpbot")
	t.Setenv("PUMPBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db:5432/pumpbot", cfg.Storage.PostgresURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 3000},
			Solana:  SolanaConfig{RPCURL: DefaultRPCURL},
			Content: ContentConfig{MaxImageBytes: DefaultMaxImageBytes},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "bad nats scheme", mutate: func(c *Config) { c.NATS.URL = "http://nats" }, wantErr: true},
		{name: "zero image limit", mutate: func(c *Config) { c.Content.MaxImageBytes = 0 }, wantErr: true},
		{name: "poller without workers", mutate: func(c *Config) {
			c.Market.PollInterval = time.Second
			c.Market.Workers = 0
		}, wantErr: true},
		{name: "relative public url", mutate: func(c *Config) { c.Server.PublicURL = "/base" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
