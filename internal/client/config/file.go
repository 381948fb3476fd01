package config

import (
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/configx"
	"github.com/dmitrijs2005/finkeeper/internal/flagx"
	"github.com/dmitrijs2005/finkeeper/internal/timex"
)

// FileConfig is a DTO used exclusively for decoding the config file.
// It relies on timex.Duration so intervals can be strings like "3s" or
// integer nanoseconds. Keys missing from the file leave Config untouched.
type FileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	DatabasePath        string         `json:"database_path" yaml:"database_path"`
	StoreBackend        string         `json:"store_backend" yaml:"store_backend"`
	RedisURL            string         `json:"redis_url" yaml:"redis_url"`
	ClientID            string         `json:"client_id" yaml:"client_id"`
	SessionDuration     timex.Duration `json:"session_duration" yaml:"session_duration"`
	RevalidateInterval  timex.Duration `json:"revalidate_interval" yaml:"revalidate_interval"`
	RemoteTimeout       timex.Duration `json:"remote_timeout" yaml:"remote_timeout"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	LogFile             *string        `json:"log_file" yaml:"log_file"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
func parseFile(cfg *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	var fc FileConfig
	if err := configx.ReadFile(path, &fc); err != nil {
		return err
	}
	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.StoreBackend, fc.StoreBackend)
	setString(&cfg.RedisURL, fc.RedisURL)
	setString(&cfg.ClientID, fc.ClientID)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}

	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setDuration(&cfg.SessionDuration, fc.SessionDuration)
	setDuration(&cfg.RevalidateInterval, fc.RevalidateInterval)
	setDuration(&cfg.RemoteTimeout, fc.RemoteTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
