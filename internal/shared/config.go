package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const placeholderPrefix = "your_"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Migration   MigrationConfig   `toml:"migration"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
}

// YouTubeConfig points at the YouTube Music proxy and the auth file it should use.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
	AuthFile string `toml:"auth_file"`
}

// DatabaseConfig contains settings for the run history database.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MigrationConfig tunes the reconciliation engine and names its output files.
type MigrationConfig struct {
	StateFile        string `toml:"state_file"`
	ReportFile       string `toml:"report_file"`
	ChunkSize        int    `toml:"chunk_size"`
	BatchSize        int    `toml:"batch_size"`
	SearchIntervalMS int    `toml:"search_interval_ms"`
	RetryBackoffMS   int    `toml:"retry_backoff_ms"`
	CreateSettleMS   int    `toml:"create_settle_ms"`
	LikedName        string `toml:"liked_name"`
	PlaylistPrefix   string `toml:"playlist_prefix"`
}

func (m MigrationConfig) SearchInterval() time.Duration {
	return time.Duration(m.SearchIntervalMS) * time.Millisecond
}

func (m MigrationConfig) RetryBackoff() time.Duration {
	return time.Duration(m.RetryBackoffMS) * time.Millisecond
}

func (m MigrationConfig) CreateSettle() time.Duration {
	return time.Duration(m.CreateSettleMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults of the embedded example config, and
// environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides credentials with values from the environment.
//
// lookup has the signature of [os.LookupEnv] so tests can supply their own.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for key, field := range map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT_URI":  &c.Credentials.Spotify.RedirectURI,
		"YTMIGRATE_PROXY_URL":   &c.Credentials.YouTube.ProxyURL,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks that a migration can be attempted with this configuration.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	if isPlaceholder(sp.ClientID) || isPlaceholder(sp.ClientSecret) {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if sp.TokenPath == "" {
		return fmt.Errorf("%w: spotify token_path is empty", ErrInvalidConfig)
	}
	if c.Credentials.YouTube.ProxyURL == "" {
		return fmt.Errorf("%w: youtube proxy_url is empty", ErrInvalidConfig)
	}

	m := c.Migration
	if m.StateFile == "" {
		return fmt.Errorf("%w: migration state_file is empty", ErrInvalidConfig)
	}
	if m.ChunkSize <= 0 || m.BatchSize <= 0 {
		return fmt.Errorf("%w: chunk_size and batch_size must be positive", ErrInvalidConfig)
	}
	if m.SearchIntervalMS < 0 || m.RetryBackoffMS < 0 || m.CreateSettleMS < 0 {
		return fmt.Errorf("%w: delays cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(v, placeholderPrefix)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
