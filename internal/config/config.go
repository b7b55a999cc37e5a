// Package config layers defaults, an optional YAML file, a .env file,
// WDADASH_* environment variables and command flags into one Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WDADASH_WDA_URL.
const EnvPrefix = "WDADASH"

// Config holds the resolved settings.
type Config struct {
	WDAURL          string        `mapstructure:"wda_url"`
	BackendURL      string        `mapstructure:"backend_url"`
	UDID            string        `mapstructure:"udid"`
	Session         string        `mapstructure:"session"`
	Listen          string        `mapstructure:"listen"`
	LogLevel        string        `mapstructure:"log_level"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	PrefsPath       string        `mapstructure:"prefs_path"`
	PasteboardDelay time.Duration `mapstructure:"pasteboard_delay"`
	LongPressDelay  time.Duration `mapstructure:"long_press_delay"`
	MoveThreshold   float64       `mapstructure:"move_threshold"`
	ScreenshotRPS   float64       `mapstructure:"screenshot_rps"`
	SnapshotDir     string        `mapstructure:"snapshot_dir"`
}

// flagKeys maps command flag names to config keys.
var flagKeys = map[string]string{
	"wda":       "wda_url",
	"backend":   "backend_url",
	"udid":      "udid",
	"session":   "session",
	"listen":    "listen",
	"log-level": "log_level",
	"cache-ttl": "cache_ttl",
	"prefs":     "prefs_path",
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("wda_url", "http://127.0.0.1:8100")
	v.SetDefault("backend_url", "http://127.0.0.1:15037/api")
	v.SetDefault("udid", "")
	v.SetDefault("session", "")
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl", 2*time.Second)
	v.SetDefault("prefs_path", DefaultPrefsPath())
	v.SetDefault("pasteboard_delay", 3*time.Second)
	v.SetDefault("long_press_delay", time.Second)
	v.SetDefault("move_threshold", 5.0)
	v.SetDefault("screenshot_rps", 4.0)
	v.SetDefault("snapshot_dir", os.TempDir())
}

// DefaultPrefsPath is ~/.config/wdadash/prefs.yaml, or a relative
// prefs.yaml when the home directory is unknown.
func DefaultPrefsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wdadash", "prefs.yaml")
	}
	return "prefs.yaml"
}

// Options control where Load looks.
type Options struct {
	ConfigFile string         // explicit config file; empty searches the defaults
	EnvFile    string         // dotenv file; empty means ".env"
	Flags      *pflag.FlagSet // command flags that override everything else
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	SetDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("wdadash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "wdadash"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot use.
func (c *Config) Validate() error {
	if c.WDAURL == "" {
		return errors.New("wda_url must not be empty")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.LongPressDelay <= 0 {
		return fmt.Errorf("long_press_delay must be positive, got %s", c.LongPressDelay)
	}
	if c.MoveThreshold < 0 {
		return fmt.Errorf("move_threshold must not be negative, got %v", c.MoveThreshold)
	}
	if c.ScreenshotRPS <= 0 {
		return fmt.Errorf("screenshot_rps must be positive, got %v", c.ScreenshotRPS)
	}
	return nil
}
