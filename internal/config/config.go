// Package config loads and validates railguard's configuration. Missing or
// malformed required settings are startup errors; nothing here is recovered
// per run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "railguard"
	configType = "toml"
	envPrefix  = "RAILGUARD"
)

type Config struct {
	Accounts []Account     `mapstructure:"accounts"`
	Portal   Portal        `mapstructure:"portal"`
	Relay    Relay         `mapstructure:"relay"`
	Browser  Browser       `mapstructure:"browser"`
	Storage  Storage       `mapstructure:"storage"`
	LogLevel string        `mapstructure:"log_level"`
	Pause    PauseInterval `mapstructure:"pause"`
}

type Account struct {
	Name      string `mapstructure:"name"`
	Username  string `mapstructure:"username"`
	SecretRef string `mapstructure:"secret_ref"`
}

type Portal struct {
	LoginURL        string `mapstructure:"login_url"`
	ReservationsURL string `mapstructure:"reservations_url"`
}

type Relay struct {
	URL          string        `mapstructure:"url"`
	Secret       string        `mapstructure:"secret"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Browser struct {
	Headless          bool   `mapstructure:"headless"`
	ScreenshotOnError bool   `mapstructure:"screenshot_on_error"`
	ScreenshotDir     string `mapstructure:"screenshot_dir"`
	UserAgent         string `mapstructure:"user_agent"`
}

type Storage struct {
	SessionDir string `mapstructure:"session_dir"`
	SecretDir  string `mapstructure:"secret_dir"`
}

// PauseInterval bounds the randomized pause between reservation
// confirmations.
type PauseInterval struct {
	Min time.Duration `mapstructure:"min"`
	Max time.Duration `mapstructure:"max"`
}

// Load reads railguard.toml (explicit path, else cwd then ~/.railguard),
// applies RAILGUARD_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(configType)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir, "."+configName))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("relay.poll_interval", 5*time.Second)
	v.SetDefault("relay.timeout", 120*time.Second)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.screenshot_on_error", false)
	v.SetDefault("browser.screenshot_dir", "screenshots")
	v.SetDefault("storage.session_dir", defaultDataPath("sessions"))
	v.SetDefault("storage.secret_dir", defaultDataPath("secrets"))
	v.SetDefault("log_level", "info")
	v.SetDefault("pause.min", 2*time.Second)
	v.SetDefault("pause.max", 5*time.Second)
}

func defaultDataPath(dir string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(homeDir, ".railguard", dir)
}

func (c *Config) validate() error {
	if len(c.Accounts) == 0 {
		return errors.New("config: at least one account is required")
	}
	seen := map[string]struct{}{}
	for i, account := range c.Accounts {
		if account.Name == "" {
			return fmt.Errorf("config: accounts[%d] is missing a name", i)
		}
		if _, dup := seen[account.Name]; dup {
			return fmt.Errorf("config: duplicate account name %q", account.Name)
		}
		seen[account.Name] = struct{}{}
		if account.Username == "" {
			return fmt.Errorf("config: account %q is missing a username", account.Name)
		}
		if account.SecretRef == "" {
			return fmt.Errorf("config: account %q is missing a secret_ref", account.Name)
		}
	}

	if c.Portal.LoginURL == "" {
		return errors.New("config: portal.login_url is required")
	}
	if c.Portal.ReservationsURL == "" {
		return errors.New("config: portal.reservations_url is required")
	}

	if c.Relay.URL == "" {
		return errors.New("config: relay.url is required")
	}
	if c.Relay.Secret == "" {
		return errors.New("config: relay.secret is required")
	}
	if c.Relay.PollInterval <= 0 {
		return errors.New("config: relay.poll_interval must be positive")
	}
	if c.Relay.Timeout < c.Relay.PollInterval {
		return errors.New("config: relay.timeout must not be shorter than the poll interval")
	}

	if c.Pause.Min < 0 || c.Pause.Max < c.Pause.Min {
		return errors.New("config: pause interval must satisfy 0 <= min <= max")
	}

	return nil
}
