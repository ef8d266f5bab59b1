package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/auth"
	"github.com/blackwell-systems/bip/internal/config"
	"github.com/blackwell-systems/bip/internal/output"
	"github.com/blackwell-systems/bip/internal/prefs"
	"github.com/blackwell-systems/bip/internal/publish"
	"github.com/blackwell-systems/bip/internal/status"
	"github.com/blackwell-systems/bip/internal/store"
	"github.com/blackwell-systems/bip/internal/suggest"
	"github.com/blackwell-systems/bip/internal/twitter"
)

// services is everything a command may need, built from the loaded config.
type services struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *store.DB
	prefs     *prefs.Service
	engine    *suggest.Engine
	creds     auth.Store
	publisher *publish.Service
	flow      *auth.Flow
}

// newLogger builds a text logger on w. verbose forces debug.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// applyColor turns color off for --no-color, output.color=false, or a
// non-terminal stdout.
func applyColor(cfg *config.Config) {
	if flagNoColor || !cfg.Output.Color || output.ColorDisabledFor(os.Stdout) {
		output.SetNoColor(true)
	}
}

// twitterOptions maps the config onto client options.
func twitterOptions(cfg *config.Config, logger *slog.Logger) twitter.Options {
	rc := twitter.DefaultRetryConfig()
	rc.MaxRetries = cfg.Twitter.MaxRetries
	return twitter.Options{
		BaseURL: cfg.Twitter.APIBaseURL,
		Pause:   cfg.Twitter.ThreadPause,
		Timeout: cfg.Twitter.Timeout,
		Retry:   &rc,
		Logger:  logger,
	}
}

// verifyWith confirms fresh credentials by asking the API who they belong to.
func verifyWith(opts twitter.Options) auth.Verifier {
	return func(ctx context.Context, c *auth.Credentials) (string, error) {
		me, err := twitter.NewOAuth1(ctx, c.Twitter(), opts).Me(ctx)
		if err != nil {
			return "", err
		}
		return me.Username, nil
	}
}

// openServices loads config and wires the storage, preference, posting
// and auth services. Callers must Close the result.
func openServices() (*services, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	applyColor(cfg)

	logger := newLogger(os.Stderr, cfg.LogLevel, flagVerbose)
	slog.SetDefault(logger)

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	prefSvc := prefs.NewService(db, logger)
	creds := auth.NewStore(cfg.StorageDir, cfg.Auth.UseKeyring, logger)
	opts := twitterOptions(cfg, logger)

	return &services{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		prefs:     prefSvc,
		engine:    suggest.NewEngine(prefSvc),
		creds:     creds,
		publisher: publish.NewService(creds, db, publish.OAuth1Factory(opts), logger),
		flow: auth.NewFlow(auth.FlowConfig{
			AppKey:    cfg.Twitter.AppKey,
			AppSecret: cfg.Twitter.AppSecret,
			Store:     creds,
			TTL:       cfg.Auth.HandshakeTTL,
			Verify:    verifyWith(opts),
			Logger:    logger,
		}),
	}, nil
}

// Close releases the database.
func (s *services) Close() error {
	return s.db.Close()
}

// status collects the health report.
func (s *services) status(ctx context.Context) (status.Report, error) {
	return status.Collect(ctx, status.Sources{
		Version:             appVersion,
		StorageDir:          s.cfg.StorageDir,
		Database:            s.cfg.DBPath(),
		AppConfigured:       s.cfg.AppConfigured(),
		CredentialsLocation: s.creds.Location(),
		Verifier:            s.publisher,
		Data:                s.db,
		Prefs:               s.prefs,
		Pending:             s.flow.Pending,
	})
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// firstLine returns s up to its first newline.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
