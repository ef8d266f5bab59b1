// Package auth runs the OAuth 1.0a PIN flow for X and stores the
// resulting user credentials.
package auth

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"

	"github.com/blackwell-systems/bip/internal/twitter"
)

const (
	// KeyringService is the keychain service name for bip.
	KeyringService = "bip-twitter"
	// KeyringAccount is the keychain account holding the credentials.
	KeyringAccount = "oauth1-credentials"
	// FileName is the fallback credentials file inside the storage directory.
	FileName = "auth.json"
)

// Credentials identify both the app and the authorized user.
type Credentials struct {
	AppKey       string `json:"api_key"`
	AppSecret    string `json:"api_secret"`
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_token_secret"`
	Username     string `json:"username,omitempty"`
}

// Complete reports whether every token needed to sign requests is present.
func (c *Credentials) Complete() bool {
	return c != nil && c.AppKey != "" && c.AppSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Twitter converts the credentials for the posting client.
func (c *Credentials) Twitter() twitter.Credentials {
	return twitter.Credentials{
		AppKey:       c.AppKey,
		AppSecret:    c.AppSecret,
		AccessToken:  c.AccessToken,
		AccessSecret: c.AccessSecret,
	}
}

// Store persists credentials. Get returns nil, nil when nothing is stored.
type Store interface {
	Get() (*Credentials, error)
	Set(creds *Credentials) error
	Clear() error
	// Location describes where credentials live, for status output.
	Location() string
}

// NewStore prefers the system keychain and falls back to a 0600 file in
// dir when the keychain is unavailable or useKeyring is false.
func NewStore(dir string, useKeyring bool, logger *slog.Logger) Store {
	file := &FileStore{path: filepath.Join(dir, FileName)}
	if !useKeyring {
		return file
	}

	probe := KeyringService + "-probe"
	if err := keyring.Set(probe, "probe", "probe"); err != nil {
		if logger != nil {
			logger.Debug("keychain unavailable, using file store", "path", file.path, "error", err)
		}
		return file
	}
	_ = keyring.Delete(probe, "probe")
	return &KeychainStore{service: KeyringService, account: KeyringAccount, legacy: file}
}

// KeychainStore uses the macOS keychain, Linux secret service, or Windows
// credential manager.
type KeychainStore struct {
	service string
	account string
	// legacy is read when the keychain is empty, so credentials written
	// by a file-only setup keep working.
	legacy *FileStore
}

// Get retrieves credentials from the keychain.
func (k *KeychainStore) Get() (*Credentials, error) {
	data, err := keyring.Get(k.service, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		if k.legacy != nil {
			return k.legacy.Get()
		}
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading credentials from keychain")
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, errors.Wrap(err, "parsing keychain credentials")
	}
	return &creds, nil
}

// Set stores credentials in the keychain.
func (k *KeychainStore) Set(creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "serializing credentials")
	}
	if err := keyring.Set(k.service, k.account, string(data)); err != nil {
		return errors.Wrap(err, "saving credentials to keychain")
	}
	return nil
}

// Clear removes credentials from the keychain and any legacy file.
func (k *KeychainStore) Clear() error {
	err := keyring.Delete(k.service, k.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "clearing keychain credentials")
	}
	if k.legacy != nil {
		return k.legacy.Clear()
	}
	return nil
}

// Location implements Store.
func (k *KeychainStore) Location() string {
	return "system keychain (" + k.service + ")"
}

// FileStore keeps credentials in a JSON file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get reads the credentials file.
func (f *FileStore) Get() (*Credentials, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading credentials file")
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", f.path)
	}
	return &creds, nil
}

// Set writes the credentials file with owner-only permissions.
func (f *FileStore) Set(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "creating storage directory")
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serializing credentials")
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.Wrap(err, "writing credentials file")
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(f.path, 0o600)
}

// Clear removes the credentials file.
func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing credentials file")
	}
	return nil
}

// Location implements Store.
func (f *FileStore) Location() string {
	return f.path
}
