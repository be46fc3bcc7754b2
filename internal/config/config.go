// Package config loads the command-line configuration from flags, SEMP_*
// environment variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/semp-client/pkg/bus"
	"github.com/Sternrassler/semp-client/pkg/client"
	"github.com/Sternrassler/semp-client/pkg/logging"
	"github.com/Sternrassler/semp-client/pkg/semp"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SEMP_HOST.
const EnvPrefix = "SEMP"

// Keys shared by flags, environment and config file.
const (
	KeyConfig      = "config"
	KeyHost        = "host"
	KeyVPN         = "vpn"
	KeyUsername    = "username"
	KeyPassword    = "password"
	KeySEMPVersion = "semp-version"
	KeySecure      = "secure"
	KeyTimeout     = "timeout"
	KeyLogLevel    = "log-level"
	KeyLogPretty   = "log-pretty"
	KeyRedis       = "redis"
	KeyCacheTTL    = "cache-ttl"
	KeyRetries     = "retries"
	KeyMetricsAddr = "metrics-addr"
)

// Config is the resolved configuration.
type Config struct {
	Host        string
	VPN         string
	Username    string
	Password    string
	SEMPVersion string
	Secure      bool

	// Timeout bounds each SEMP request and receive.
	Timeout time.Duration

	LogLevel  string
	LogPretty bool

	// Redis enables the reply cache when set (host:port).
	Redis    string
	CacheTTL time.Duration

	// Retries is the number of extra attempts after a timeout or transport
	// failure.
	Retries int

	// MetricsAddr serves /metrics and /health when set.
	MetricsAddr string
}

// FlagSet returns the flags common to every command.
func FlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("semp flagset", flag.ContinueOnError)
	fs.String(KeyConfig, "", "Config file (yaml, json or toml)")
	fs.String(KeyHost, "", "Router address as host:port")
	fs.String(KeyVPN, "default", "Message VPN")
	fs.StringP(KeyUsername, "u", "admin", "Username")
	fs.StringP(KeyPassword, "w", "admin", "Password")
	fs.String(KeySEMPVersion, semp.DefaultVersion, "SEMP version in the SEMP request")
	fs.BoolP(KeySecure, "s", false, "Use TLS (HTTPS for SEMP over HTTP)")
	fs.Duration(KeyTimeout, 5*time.Second, "Timeout per SEMP request")
	fs.String(KeyLogLevel, string(logging.LevelWarn), "Log level (debug, info, warn, error, disabled)")
	fs.Bool(KeyLogPretty, false, "Human-readable log output")
	fs.String(KeyRedis, "", "Redis address for the SEMP reply cache (disabled when empty)")
	fs.Duration(KeyCacheTTL, 30*time.Second, "Lifetime of cached SEMP replies")
	fs.Int(KeyRetries, 0, "Retries after a timeout or transport failure")
	fs.String(KeyMetricsAddr, "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return fs
}

// Load binds flags and environment to v and resolves the configuration.
// Explicit flags win over environment variables, which win over the config
// file and flag defaults.
func Load(v *viper.Viper, flags *flag.FlagSet) (Config, error) {
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Host:        v.GetString(KeyHost),
		VPN:         v.GetString(KeyVPN),
		Username:    v.GetString(KeyUsername),
		Password:    v.GetString(KeyPassword),
		SEMPVersion: v.GetString(KeySEMPVersion),
		Secure:      v.GetBool(KeySecure),
		Timeout:     v.GetDuration(KeyTimeout),
		LogLevel:    v.GetString(KeyLogLevel),
		LogPretty:   v.GetBool(KeyLogPretty),
		Redis:       v.GetString(KeyRedis),
		CacheTTL:    v.GetDuration(KeyCacheTTL),
		Retries:     v.GetInt(KeyRetries),
		MetricsAddr: v.GetString(KeyMetricsAddr),
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required (--%s or %s_HOST)", KeyHost, EnvPrefix)
	}
	if c.SEMPVersion == "" {
		return fmt.Errorf("semp-version must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache-ttl must not be negative, got %v", c.CacheTTL)
	}
	if err := logging.ValidateLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// HTTPClient returns the SEMP over HTTP configuration.
func (c Config) HTTPClient() client.Config {
	cfg := client.DefaultConfig(c.Host)
	cfg.Username = c.Username
	cfg.Password = c.Password
	cfg.Secure = c.Secure
	cfg.Timeout = c.Timeout
	return cfg
}

// Bus returns the message bus session configuration.
func (c Config) Bus() bus.Config {
	cfg := bus.DefaultConfig(c.Host)
	cfg.VPN = c.VPN
	cfg.Username = c.Username
	cfg.Password = c.Password
	cfg.Secure = c.Secure
	cfg.RequestTimeout = c.Timeout
	return cfg
}

// Retry returns the caller-level retry policy.
func (c Config) Retry() client.RetryConfig {
	cfg := client.DefaultRetryConfig()
	cfg.MaxAttempts = c.Retries + 1
	return cfg
}
