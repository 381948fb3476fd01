package config

import (
	"fmt"
	"time"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds runtime settings for the finkeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the credential service.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - DatabasePath: SQLite file holding the profile and session records.
//   - StoreBackend / RedisURL / ClientID: where records live; with "redis"
//     they are kept under a key prefix derived from ClientID.
//   - SessionDuration / RevalidateInterval / RemoteTimeout: auth manager timing.
//   - LogLevel / LogFormat / LogFile: logging; an empty LogFile means stderr.
type Config struct {
	ServerEndpointAddr  string        `env:"FINKEEPER_SERVER_ADDR"`
	OnlineCheckInterval time.Duration `env:"FINKEEPER_ONLINE_CHECK_INTERVAL"`
	DatabasePath        string        `env:"FINKEEPER_DB_PATH"`
	StoreBackend        string        `env:"FINKEEPER_STORE"`
	RedisURL            string        `env:"FINKEEPER_REDIS_URL"`
	ClientID            string        `env:"FINKEEPER_CLIENT_ID"`
	SessionDuration     time.Duration `env:"FINKEEPER_SESSION_DURATION"`
	RevalidateInterval  time.Duration `env:"FINKEEPER_REVALIDATE_INTERVAL"`
	RemoteTimeout       time.Duration `env:"FINKEEPER_REMOTE_TIMEOUT"`
	LogLevel            string        `env:"FINKEEPER_LOG_LEVEL"`
	LogFormat           string        `env:"FINKEEPER_LOG_FORMAT"`
	LogFile             string        `env:"FINKEEPER_LOG_FILE"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "finkeeper.db"
	c.StoreBackend = StoreSQLite
	c.RedisURL = "redis://localhost:6379/0"
	c.ClientID = "default"
	c.SessionDuration = 48 * time.Hour
	c.RevalidateInterval = 5 * time.Minute
	c.RemoteTimeout = 5 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LogFile = "finkeeper.log"
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.SessionDuration <= 0 || c.RevalidateInterval <= 0 || c.RemoteTimeout <= 0 || c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("durations must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given), the environment and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
