package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level bip configuration.
type Config struct {
	StorageDir string  `mapstructure:"storage_dir"`
	DBName     string  `mapstructure:"db_name"`
	LogLevel   string  `mapstructure:"log_level"`
	Output     Output  `mapstructure:"output"`
	Twitter    Twitter `mapstructure:"twitter"`
	Auth       Auth    `mapstructure:"auth"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Twitter defines the X API client settings.
type Twitter struct {
	APIBaseURL  string        `mapstructure:"api_base_url"`
	AppKey      string        `mapstructure:"app_key"`
	AppSecret   string        `mapstructure:"app_secret"`
	ThreadPause time.Duration `mapstructure:"thread_pause"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// Auth defines the OAuth flow and credential storage settings.
type Auth struct {
	HandshakeTTL time.Duration `mapstructure:"handshake_ttl"`
	UseKeyring   bool          `mapstructure:"use_keyring"`
}

// AppConfigured reports whether the app key and secret are set.
func (c *Config) AppConfigured() bool {
	return c.Twitter.AppKey != "" && c.Twitter.AppSecret != ""
}

// DBPath returns the full path to the SQLite database.
func (c *Config) DBPath() string {
	return filepath.Join(c.StorageDir, c.DBName)
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// storageDirFromEnv resolves the storage directory before viper runs, so
// the .env and config file inside it can be found.
func storageDirFromEnv() string {
	if dir := os.Getenv(EnvPrefix + "_STORAGE_DIR"); dir != "" {
		return expandPath(dir)
	}
	return expandPath(DefaultStorageDir)
}

// Load reads configuration from the given path (or config.yaml in the
// storage directory), applies environment overrides, and returns a Config
// with all defaults applied. A .env file in the storage directory is loaded
// first; variables already set in the environment win.
func Load(cfgFile string) (*Config, error) {
	storageDir := storageDirFromEnv()

	envFile := filepath.Join(storageDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "loading %s", envFile)
	}

	v := viper.New()

	// Set defaults.
	v.SetDefault("storage_dir", storageDir)
	v.SetDefault("db_name", DefaultDBName)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("twitter.api_base_url", DefaultTwitter.APIBaseURL)
	v.SetDefault("twitter.app_key", "")
	v.SetDefault("twitter.app_secret", "")
	v.SetDefault("twitter.thread_pause", DefaultTwitter.ThreadPause)
	v.SetDefault("twitter.timeout", DefaultTwitter.Timeout)
	v.SetDefault("twitter.max_retries", DefaultTwitter.MaxRetries)
	v.SetDefault("auth.handshake_ttl", DefaultAuth.HandshakeTTL)
	v.SetDefault("auth.use_keyring", DefaultAuth.UseKeyring)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The app credentials also answer to their conventional names.
	_ = v.BindEnv("twitter.app_key", EnvPrefix+"_TWITTER_APP_KEY", "TWITTER_APP_KEY")
	_ = v.BindEnv("twitter.app_secret", EnvPrefix+"_TWITTER_APP_SECRET", "TWITTER_APP_SECRET")

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(storageDir)
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Only return error for problems other than file not found.
			if !os.IsNotExist(err) {
				return nil, errors.Wrap(err, "reading config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	cfg.File = v.ConfigFileUsed()

	cfg.StorageDir = expandPath(cfg.StorageDir)
	if cfg.DBName == "" {
		cfg.DBName = DefaultDBName
	}
	if cfg.Twitter.APIBaseURL == "" {
		cfg.Twitter.APIBaseURL = DefaultTwitter.APIBaseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the X client and OAuth flow cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Twitter.MaxRetries < 0:
		return errors.Newf("twitter.max_retries must not be negative, got %d", c.Twitter.MaxRetries)
	case c.Twitter.Timeout <= 0:
		return errors.Newf("twitter.timeout must be positive, got %s", c.Twitter.Timeout)
	case c.Twitter.ThreadPause < 0:
		return errors.Newf("twitter.thread_pause must not be negative, got %s", c.Twitter.ThreadPause)
	case c.Auth.HandshakeTTL <= 0:
		return errors.Newf("auth.handshake_ttl must be positive, got %s", c.Auth.HandshakeTTL)
	}
	return nil
}
