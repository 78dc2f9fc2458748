package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment variables and flags.
type Config struct {
	AppName   string `mapstructure:"app_name"`
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	ListenAddr string `mapstructure:"listen_addr"`
	StaticDir  string `mapstructure:"static_dir"`

	APIOrigin    string        `mapstructure:"api_origin"`
	APIBasePath  string        `mapstructure:"api_base_path"`
	APITimeoutMs int64         `mapstructure:"api_timeout_ms"`
	APITimeout   time.Duration `mapstructure:"-"`

	// TargetOrigin is the raw VITE_API_URL override; empty means the default backend.
	TargetOrigin     string `mapstructure:"vite_api_url"`
	DebugFlag        string `mapstructure:"debug"`
	Debug            bool   `mapstructure:"-"`
	BackendStartHint string `mapstructure:"backend_start_hint"`
	ProxyRulesFile   string `mapstructure:"proxy_rules_file"`
	AlertsFile       string `mapstructure:"alerts_file"`
	EventQueueSize   int    `mapstructure:"event_queue_size"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with command line flags taking precedence over the environment.
// Flag names use dashes; they are bound to the matching underscore keys.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-devgate")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("listen_addr", ":5173")
	v.SetDefault("static_dir", "")
	v.SetDefault("api_origin", "http://localhost:5173")
	v.SetDefault("api_base_path", "/api")
	v.SetDefault("api_timeout_ms", 30000)
	v.SetDefault("vite_api_url", "")
	v.SetDefault("debug", "")
	v.SetDefault("backend_start_hint", "python start_web.py")
	v.SetDefault("proxy_rules_file", "")
	v.SetDefault("alerts_file", "")
	v.SetDefault("event_queue_size", 256)
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/devgate.db")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64(time.Hour/time.Second))

	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = fmt.Errorf("bind flag %q: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.APIBasePath = strings.TrimSpace(cfg.APIBasePath)
	if cfg.APIBasePath == "" {
		return fmt.Errorf("invalid api_base_path (must not be empty)")
	}
	if !strings.HasPrefix(cfg.APIBasePath, "/") {
		cfg.APIBasePath = "/" + cfg.APIBasePath
	}
	if cfg.APITimeoutMs <= 0 {
		return fmt.Errorf("invalid api_timeout_ms (must be positive milliseconds)")
	}
	cfg.APITimeout = time.Duration(cfg.APITimeoutMs) * time.Millisecond

	cfg.TargetOrigin = strings.TrimSpace(cfg.TargetOrigin)
	cfg.Debug = strings.TrimSpace(cfg.DebugFlag) != ""
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if cfg.EventQueueSize <= 0 {
		return fmt.Errorf("invalid event_queue_size (must be positive)")
	}

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
