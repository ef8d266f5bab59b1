package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the storage directory at a temp dir and clears variables
// that would leak in from the developer's environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BIP_STORAGE_DIR", dir)
	for _, k := range []string{"TWITTER_APP_KEY", "TWITTER_APP_SECRET", "BIP_TWITTER_APP_KEY", "BIP_TWITTER_APP_SECRET", "BIP_LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.StorageDir)
	assert.Equal(t, filepath.Join(dir, DefaultDBName), cfg.DBPath())
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultTwitter.APIBaseURL, cfg.Twitter.APIBaseURL)
	assert.Equal(t, time.Second, cfg.Twitter.ThreadPause)
	assert.Equal(t, 15*time.Minute, cfg.Auth.HandshakeTTL)
	assert.True(t, cfg.Auth.UseKeyring)
	assert.False(t, cfg.AppConfigured())
	assert.Empty(t, cfg.File)
}

func TestLoad_ConfigFileInStorageDir(t *testing.T) {
	dir := isolate(t)
	yaml := "log_level: debug\ntwitter:\n  thread_pause: 250ms\n  max_retries: 5\nauth:\n  use_keyring: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Twitter.ThreadPause)
	assert.Equal(t, 5, cfg.Twitter.MaxRetries)
	assert.False(t, cfg.Auth.UseKeyring)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.File)
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_name: other.db\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.db", cfg.DBName)
}

func TestLoad_BadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [unterminated\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_AppCredentialsFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TWITTER_APP_KEY", "key")
	t.Setenv("TWITTER_APP_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.Twitter.AppKey)
	assert.Equal(t, "secret", cfg.Twitter.AppSecret)
	assert.True(t, cfg.AppConfigured())
}

func TestLoad_PrefixedEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("BIP_LOG_LEVEL", "warn")
	t.Setenv("BIP_TWITTER_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Twitter.Timeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TWITTER_APP_KEY=from-dotenv\nTWITTER_APP_SECRET=shh\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("TWITTER_APP_KEY")
		_ = os.Unsetenv("TWITTER_APP_SECRET")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Twitter.AppKey)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, "/abs", expandPath("/abs"))
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want string
	}{
		{"negative retries", "BIP_TWITTER_MAX_RETRIES", "-1", "max_retries"},
		{"zero timeout", "BIP_TWITTER_TIMEOUT", "0s", "timeout"},
		{"negative pause", "BIP_TWITTER_THREAD_PAUSE", "-1s", "thread_pause"},
		{"zero handshake ttl", "BIP_AUTH_HANDSHAKE_TTL", "0s", "handshake_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.val)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{Twitter: DefaultTwitter, Auth: DefaultAuth}
	assert.NoError(t, cfg.Validate())

	cfg.Twitter.MaxRetries = 0
	assert.NoError(t, cfg.Validate(), "zero retries means a single attempt")
}
