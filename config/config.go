// Package config loads per-role TOML configuration via spf13/viper, one
// struct-of-structs per role rather than a single global config.
package config

import (
	"github.com/spf13/viper"

	"github.com/hashpool/hashpool/internal/envutil"
	"github.com/hashpool/hashpool/internal/xerrors"
)

// Pool is the root configuration for cmd/poold.
type Pool struct {
	Listen struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"listen"`

	Mint struct {
		Addr             string `mapstructure:"addr"`
		RequestBuffer    int    `mapstructure:"request_buffer"`
		ResponseBuffer   int    `mapstructure:"response_buffer"`
		DialTimeoutMS    int    `mapstructure:"dial_timeout_ms"`
	} `mapstructure:"mint"`

	Share struct {
		MinimumDifficulty uint64 `mapstructure:"minimum_difficulty"`
		StaleTimeoutMS    int    `mapstructure:"stale_timeout_ms"`
		SweepIntervalMS   int    `mapstructure:"sweep_interval_ms"`
	} `mapstructure:"share"`

	Stats struct {
		ReceiverAddr    string `mapstructure:"receiver_addr"`
		IntervalSeconds int    `mapstructure:"interval_seconds"`
	} `mapstructure:"stats"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Mint is the root configuration for cmd/mintd. HTTPAddr serves the
// keyset endpoint proxies fetch at startup.
type Mint struct {
	Listen struct {
		Addr     string `mapstructure:"addr"`
		HTTPAddr string `mapstructure:"http_addr"`
	} `mapstructure:"listen"`

	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	Quote struct {
		TTLSeconds int `mapstructure:"ttl_seconds"`
	} `mapstructure:"quote"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Translator is the root configuration for cmd/translatord. Mint.URL
// points at the mint's keyset endpoint; no quote is stored until it has
// been fetched.
type Translator struct {
	Upstream struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"upstream"`

	Mint struct {
		URL             string `mapstructure:"url"`
		ClientTimeoutMS int    `mapstructure:"client_timeout_ms"`
	} `mapstructure:"mint"`

	LockingKey struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"locking_key"`

	Wallet struct {
		DBPath string `mapstructure:"db_path"`
	} `mapstructure:"wallet"`

	Stats struct {
		ReceiverAddr    string `mapstructure:"receiver_addr"`
		IntervalSeconds int    `mapstructure:"interval_seconds"`
	} `mapstructure:"stats"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Stats is the root configuration shared by cmd/statsd's pool and proxy
// roles.
type Stats struct {
	Listen struct {
		TCPAddr  string `mapstructure:"tcp_addr"`
		HTTPAddr string `mapstructure:"http_addr"`
	} `mapstructure:"listen"`

	StalenessSeconds int `mapstructure:"staleness_seconds"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Dashboard is the root configuration shared by cmd/dashboardd's pool and
// proxy roles.
type Dashboard struct {
	Listen struct {
		HTTPAddr string `mapstructure:"http_addr"`
	} `mapstructure:"listen"`

	Upstream struct {
		StatsURL        string `mapstructure:"stats_url"`
		PollSeconds     int    `mapstructure:"poll_seconds"`
		ClientTimeoutMS int    `mapstructure:"client_timeout_ms"`
	} `mapstructure:"upstream"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Load reads a TOML file at path into dst, which must be a pointer to one
// of this package's config structs. Environment variables override file
// values via viper's automatic env binding.
func Load(path string, dst any) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return xerrors.Wrap(err, "load config file")
	}
	v.AutomaticEnv()
	if err := v.Unmarshal(dst); err != nil {
		return xerrors.Wrap(err, "unmarshal config")
	}
	return nil
}

// ConfigPathOrDefault resolves a --config flag value, falling back to the
// HASHPOOL_CONFIG environment variable and finally to def.
func ConfigPathOrDefault(flagValue, def string) string {
	if flagValue != "" {
		return flagValue
	}
	return envutil.EnvOrDefault("HASHPOOL_CONFIG", def)
}
