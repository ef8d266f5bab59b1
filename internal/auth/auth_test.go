package auth

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// fakeProvider issues numbered request tokens and accepts PIN "1234".
type fakeProvider struct {
	mu       sync.Mutex
	issued   int
	exchange []string
}

func (p *fakeProvider) RequestToken() (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return "rt" + string(rune('0'+p.issued)), "rs", nil
}

func (p *fakeProvider) AuthorizationURL(token string) (*url.URL, error) {
	return url.Parse("https://api.twitter.com/oauth/authorize?oauth_token=" + token)
}

func (p *fakeProvider) AccessToken(rt, rs, verifier string) (string, string, error) {
	p.mu.Lock()
	p.exchange = append(p.exchange, rt)
	p.mu.Unlock()
	if verifier != "1234" {
		return "", "", errors.New("invalid PIN")
	}
	return "at-" + rt, "as-" + rt, nil
}

type memStore struct {
	creds *Credentials
}

func (m *memStore) Get() (*Credentials, error) { return m.creds, nil }
func (m *memStore) Set(c *Credentials) error   { m.creds = c; return nil }
func (m *memStore) Clear() error               { m.creds = nil; return nil }
func (m *memStore) Location() string           { return "memory" }

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestFlow(store Store, clock *fakeClock) (*Flow, *fakeProvider) {
	p := &fakeProvider{}
	return NewFlow(FlowConfig{
		AppKey:      "key",
		AppSecret:   "secret",
		Store:       store,
		TTL:         10 * time.Minute,
		Provider:    p,
		OpenBrowser: func(string) error { return errors.New("no display") },
		Now:         clock.Now,
		Verify: func(ctx context.Context, c *Credentials) (string, error) {
			return "dev", nil
		},
	}), p
}

// --- Flow ---

func TestFlow_StartComplete(t *testing.T) {
	store := &memStore{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	flow, _ := newTestFlow(store, clock)

	h, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Contains(t, h.AuthURL, "oauth_token=rt1")
	assert.False(t, h.BrowserOpened)
	assert.Equal(t, clock.t.Add(10*time.Minute), h.ExpiresAt)

	creds, err := flow.Complete(context.Background(), h.ID, " 1234 ")
	require.NoError(t, err)
	assert.Equal(t, "at-rt1", creds.AccessToken)
	assert.Equal(t, "key", creds.AppKey)
	assert.Equal(t, "dev", creds.Username)
	assert.Same(t, creds, store.creds)
	assert.Zero(t, flow.Pending())
}

func TestFlow_DisableBrowser(t *testing.T) {
	opened := 0
	flow := NewFlow(FlowConfig{
		AppKey:      "key",
		AppSecret:   "secret",
		Provider:    &fakeProvider{},
		OpenBrowser: func(string) error { opened++; return nil },
	})

	h, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, h.BrowserOpened)

	flow.DisableBrowser()
	h, err = flow.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, h.BrowserOpened)
	assert.Equal(t, 1, opened)
	assert.Equal(t, 2, flow.Pending())
}

func TestFlow_RequiresAppCredentials(t *testing.T) {
	flow := NewFlow(FlowConfig{Provider: &fakeProvider{}})
	_, err := flow.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoAppCredentials)
}

func TestFlow_EmptyIDUsesSolePending(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	flow, _ := newTestFlow(&memStore{}, clock)

	_, err := flow.Complete(context.Background(), "", "1234")
	assert.ErrorIs(t, err, ErrNoHandshake)

	_, err = flow.Start(context.Background())
	require.NoError(t, err)
	creds, err := flow.Complete(context.Background(), "", "1234")
	require.NoError(t, err)
	assert.Equal(t, "at-rt1", creds.AccessToken)
}

func TestFlow_ConcurrentHandshakesAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	flow, _ := newTestFlow(&memStore{}, clock)

	first, err := flow.Start(context.Background())
	require.NoError(t, err)
	second, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, flow.Pending())

	_, err = flow.Complete(context.Background(), "", "1234")
	assert.ErrorIs(t, err, ErrAmbiguousHandshake)

	creds, err := flow.Complete(context.Background(), second.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, "at-rt2", creds.AccessToken, "second start must not clobber the first")

	creds, err = flow.Complete(context.Background(), first.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, "at-rt1", creds.AccessToken)
}

func TestFlow_SingleUse(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	flow, p := newTestFlow(&memStore{}, clock)

	h, err := flow.Start(context.Background())
	require.NoError(t, err)

	_, err = flow.Complete(context.Background(), h.ID, "9999")
	require.Error(t, err)

	_, err = flow.Complete(context.Background(), h.ID, "1234")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
	assert.Len(t, p.exchange, 1)
}

func TestFlow_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	flow, p := newTestFlow(&memStore{}, clock)

	h, err := flow.Start(context.Background())
	require.NoError(t, err)

	clock.t = clock.t.Add(11 * time.Minute)
	_, err = flow.Complete(context.Background(), h.ID, "1234")
	assert.ErrorIs(t, err, ErrHandshakeExpired)
	assert.Empty(t, p.exchange)
	assert.Zero(t, flow.Pending())
}

func TestFlow_EmptyPIN(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	flow, _ := newTestFlow(&memStore{}, clock)
	h, err := flow.Start(context.Background())
	require.NoError(t, err)

	_, err = flow.Complete(context.Background(), h.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyPIN)
	assert.Equal(t, 1, flow.Pending(), "an empty PIN must not consume the handshake")
}

func TestFlow_VerifyFailureSavesNothing(t *testing.T) {
	store := &memStore{}
	flow := NewFlow(FlowConfig{
		AppKey:      "key",
		AppSecret:   "secret",
		Store:       store,
		Provider:    &fakeProvider{},
		OpenBrowser: func(string) error { return nil },
		Verify: func(context.Context, *Credentials) (string, error) {
			return "", errors.New("401")
		},
	})
	h, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, h.BrowserOpened)

	_, err = flow.Complete(context.Background(), h.ID, "1234")
	require.Error(t, err)
	assert.Nil(t, store.creds)
}

// --- Stores ---

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	fs := NewFileStore(path)

	got, err := fs.Get()
	require.NoError(t, err)
	assert.Nil(t, got)

	in := &Credentials{AppKey: "k", AppSecret: "s", AccessToken: "t", AccessSecret: "ts", Username: "dev"}
	require.NoError(t, fs.Set(in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = fs.Get()
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.True(t, got.Complete())

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear(), "clearing twice is fine")
	got, err = fs.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewFileStore(path).Get()
	assert.Error(t, err)
}

func TestKeychainStore(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()

	store := NewStore(dir, true, nil)
	require.IsType(t, &KeychainStore{}, store)

	got, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, got)

	in := &Credentials{AppKey: "k", AppSecret: "s", AccessToken: "t", AccessSecret: "ts"}
	require.NoError(t, store.Set(in))
	got, err = store.Get()
	require.NoError(t, err)
	assert.Equal(t, in, got)

	require.NoError(t, store.Clear())
	got, err = store.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKeychainStore_ReadsLegacyFile(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	legacy := &Credentials{AppKey: "k", AppSecret: "s", AccessToken: "old", AccessSecret: "ts"}
	require.NoError(t, NewFileStore(filepath.Join(dir, FileName)).Set(legacy))

	got, err := NewStore(dir, true, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, "old", got.AccessToken)
}

func TestNewStore_FileWhenKeyringDisabled(t *testing.T) {
	store := NewStore(t.TempDir(), false, nil)
	assert.IsType(t, &FileStore{}, store)
}

func TestCredentials_Complete(t *testing.T) {
	var nilCreds *Credentials
	assert.False(t, nilCreds.Complete())
	assert.False(t, (&Credentials{AppKey: "k"}).Complete())
}
