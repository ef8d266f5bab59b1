// Package config provides configuration loading and defaults for bip.
package config

import "time"

// DefaultStorageDir holds the database, credentials, config, and .env.
const DefaultStorageDir = "~/.build-in-public"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "bip.db"

// DefaultConfigName is the YAML config file name (without extension)
// looked up in the storage directory.
const DefaultConfigName = "config"

// EnvPrefix prefixes environment overrides, e.g. BIP_LOG_LEVEL.
const EnvPrefix = "BIP"

// DefaultLogLevel is the slog level used when none is configured.
const DefaultLogLevel = "info"

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultTwitter holds the default X API settings. App credentials have no
// default and must come from the environment or the config file.
var DefaultTwitter = Twitter{
	APIBaseURL:  "https://api.twitter.com",
	ThreadPause: time.Second,
	Timeout:     30 * time.Second,
	MaxRetries:  3,
}

// DefaultAuth holds the default authorization settings.
var DefaultAuth = Auth{
	HandshakeTTL: 15 * time.Minute,
	UseKeyring:   true,
}
