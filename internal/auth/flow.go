package auth

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cli/browser"
	"github.com/cockroachdb/errors"
	"github.com/dghubble/oauth1"
	twauth "github.com/dghubble/oauth1/twitter"
	"github.com/google/uuid"
)

// DefaultHandshakeTTL bounds how long a PIN can be redeemed after Start.
const DefaultHandshakeTTL = 15 * time.Minute

var (
	ErrNoAppCredentials   = errors.New("app key and secret are not configured (set TWITTER_APP_KEY and TWITTER_APP_SECRET)")
	ErrNoHandshake        = errors.New("no authorization in progress; start setup first")
	ErrAmbiguousHandshake = errors.New("several authorizations are in progress; pass the handshake id")
	ErrHandshakeExpired   = errors.New("authorization expired; start setup again")
	ErrUnknownHandshake   = errors.New("unknown handshake id")
	ErrEmptyPIN           = errors.New("PIN is required")
)

// Provider is the OAuth 1.0a side of the flow. *oauth1.Config satisfies it.
type Provider interface {
	RequestToken() (requestToken, requestSecret string, err error)
	AuthorizationURL(requestToken string) (*url.URL, error)
	AccessToken(requestToken, requestSecret, verifier string) (accessToken, accessSecret string, err error)
}

// Verifier checks fresh credentials and returns the account's username.
type Verifier func(ctx context.Context, creds *Credentials) (string, error)

// Handshake is one pending authorization, redeemable once with a PIN.
type Handshake struct {
	ID            string    `json:"id"`
	AuthURL       string    `json:"auth_url"`
	ExpiresAt     time.Time `json:"expires_at"`
	BrowserOpened bool      `json:"browser_opened"`

	requestToken  string
	requestSecret string
}

// FlowConfig configures a Flow.
type FlowConfig struct {
	AppKey    string
	AppSecret string
	Store     Store
	TTL       time.Duration
	Verify    Verifier
	Logger    *slog.Logger
	// OpenBrowser defaults to opening the system browser.
	OpenBrowser func(url string) error
	// Provider defaults to X's OAuth 1.0a PIN endpoints.
	Provider Provider
	Now      func() time.Time
}

// Flow runs PIN-based authorizations. Any number may be pending at once;
// each is addressed by its handshake ID. It is safe for concurrent use.
type Flow struct {
	appKey    string
	appSecret string
	store     Store
	provider  Provider
	verify    Verifier
	open      func(string) error
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu        sync.Mutex
	pending   map[string]*Handshake
	noBrowser bool
}

// NewFlow builds a Flow from cfg, filling defaults.
func NewFlow(cfg FlowConfig) *Flow {
	f := &Flow{
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		store:     cfg.Store,
		provider:  cfg.Provider,
		verify:    cfg.Verify,
		open:      cfg.OpenBrowser,
		ttl:       cfg.TTL,
		now:       cfg.Now,
		logger:    cfg.Logger,
		pending:   make(map[string]*Handshake),
	}
	if f.provider == nil {
		f.provider = &oauth1.Config{
			ConsumerKey:    cfg.AppKey,
			ConsumerSecret: cfg.AppSecret,
			CallbackURL:    "oob",
			Endpoint:       twauth.AuthorizeEndpoint,
		}
	}
	if f.open == nil {
		f.open = browser.OpenURL
	}
	if f.ttl <= 0 {
		f.ttl = DefaultHandshakeTTL
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f
}

// Start requests a token, registers a handshake, and tries to open the
// authorization page. A browser failure is reported, not returned.
func (f *Flow) Start(ctx context.Context) (Handshake, error) {
	if f.appKey == "" || f.appSecret == "" {
		return Handshake{}, ErrNoAppCredentials
	}
	if err := ctx.Err(); err != nil {
		return Handshake{}, err
	}

	token, secret, err := f.provider.RequestToken()
	if err != nil {
		return Handshake{}, errors.Wrap(err, "requesting OAuth token")
	}
	authURL, err := f.provider.AuthorizationURL(token)
	if err != nil {
		return Handshake{}, errors.Wrap(err, "building authorization URL")
	}

	h := &Handshake{
		ID:            uuid.NewString(),
		AuthURL:       authURL.String(),
		ExpiresAt:     f.now().Add(f.ttl),
		requestToken:  token,
		requestSecret: secret,
	}

	f.mu.Lock()
	skip := f.noBrowser
	f.mu.Unlock()
	if !skip {
		if err := f.open(h.AuthURL); err != nil {
			f.logger.Warn("could not open browser", "url", h.AuthURL, "error", err)
		} else {
			h.BrowserOpened = true
		}
	}

	f.mu.Lock()
	f.pruneLocked()
	f.pending[h.ID] = h
	f.mu.Unlock()

	f.logger.Info("authorization started", "handshake", h.ID, "expires_at", h.ExpiresAt)
	return *h, nil
}

// Complete redeems the handshake with the PIN shown by X, verifies the
// resulting credentials, and saves them. An empty id selects the only
// pending handshake. A handshake is consumed by the attempt whether or not
// it succeeds.
func (f *Flow) Complete(ctx context.Context, id, pin string) (*Credentials, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, ErrEmptyPIN
	}

	h, err := f.take(id)
	if err != nil {
		return nil, err
	}

	token, secret, err := f.provider.AccessToken(h.requestToken, h.requestSecret, pin)
	if err != nil {
		return nil, errors.Wrap(err, "exchanging PIN for access token")
	}

	creds := &Credentials{
		AppKey:       f.appKey,
		AppSecret:    f.appSecret,
		AccessToken:  token,
		AccessSecret: secret,
	}
	if f.verify != nil {
		username, err := f.verify(ctx, creds)
		if err != nil {
			return nil, errors.Wrap(err, "verifying credentials")
		}
		creds.Username = username
	}

	if f.store != nil {
		if err := f.store.Set(creds); err != nil {
			return nil, err
		}
	}
	f.logger.Info("authorization complete", "handshake", h.ID, "username", creds.Username)
	return creds, nil
}

// DisableBrowser makes Start only return the authorization URL.
func (f *Flow) DisableBrowser() {
	f.mu.Lock()
	f.noBrowser = true
	f.mu.Unlock()
}

// Pending returns the number of live handshakes.
func (f *Flow) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked()
	return len(f.pending)
}

func (f *Flow) take(id string) (*Handshake, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == "" {
		f.pruneLocked()
		switch len(f.pending) {
		case 0:
			return nil, ErrNoHandshake
		case 1:
			for k := range f.pending {
				id = k
			}
		default:
			return nil, ErrAmbiguousHandshake
		}
	}

	h, ok := f.pending[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandshake, "%s", id)
	}
	delete(f.pending, id)
	if !f.now().Before(h.ExpiresAt) {
		return nil, ErrHandshakeExpired
	}
	return h, nil
}

func (f *Flow) pruneLocked() {
	now := f.now()
	for id, h := range f.pending {
		if !now.Before(h.ExpiresAt) {
			delete(f.pending, id)
		}
	}
}
