// Package status gathers a health report for the CLI and MCP server.
package status

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/bip/internal/prefs"
	"github.com/blackwell-systems/bip/internal/store"
	"github.com/blackwell-systems/bip/internal/twitter"
)

// Report is a snapshot of configuration, authentication, and stored data.
type Report struct {
	Version             string `json:"version"`
	StorageDir          string `json:"storage_dir"`
	Database            string `json:"database"`
	AppConfigured       bool   `json:"app_configured"`
	CredentialsLocation string `json:"credentials_location"`
	Authenticated       bool   `json:"authenticated"`
	Username            string `json:"username,omitempty"`
	Name                string `json:"name,omitempty"`
	AuthError           string `json:"auth_error,omitempty"`
	PendingAuth         int    `json:"pending_authorizations"`
	Language            string `json:"language"`
	HasContext          bool   `json:"has_context"`
	LastPostURL         string `json:"last_post_url,omitempty"`
}

// Verifier checks stored credentials against the API.
type Verifier interface {
	Authenticated() bool
	Verify(ctx context.Context) (twitter.User, error)
}

// Data is the stored state the report inspects. *store.DB satisfies it.
type Data interface {
	HasContext() (bool, error)
	RecentTweets(n int) ([]store.TweetRecord, error)
}

// Sources lists what Collect inspects. Nil fields are skipped.
type Sources struct {
	Version             string
	StorageDir          string
	Database            string
	AppConfigured       bool
	CredentialsLocation string
	Verifier            Verifier
	Data                Data
	Prefs               interface{ Get() prefs.Preferences }
	Pending             func() int
}

// Collect builds a Report, running the network check and the database
// reads concurrently. A credential check that fails is recorded in
// AuthError rather than returned; database errors are returned.
func Collect(ctx context.Context, src Sources) (Report, error) {
	r := Report{
		Version:             src.Version,
		StorageDir:          src.StorageDir,
		Database:            src.Database,
		AppConfigured:       src.AppConfigured,
		CredentialsLocation: src.CredentialsLocation,
		Language:            prefs.DefaultLanguage,
	}
	if src.Prefs != nil {
		r.Language = src.Prefs.Get().Language
	}
	if src.Pending != nil {
		r.PendingAuth = src.Pending()
	}

	g, gctx := errgroup.WithContext(ctx)

	if src.Verifier != nil && src.Verifier.Authenticated() {
		g.Go(func() error {
			me, err := src.Verifier.Verify(gctx)
			if err != nil {
				r.AuthError = err.Error()
				return nil
			}
			r.Authenticated = true
			r.Username = me.Username
			r.Name = me.Name
			return nil
		})
	}

	if src.Data != nil {
		g.Go(func() error {
			ok, err := src.Data.HasContext()
			if err != nil {
				return errors.Wrap(err, "checking session context")
			}
			r.HasContext = ok
			return nil
		})
		g.Go(func() error {
			recent, err := src.Data.RecentTweets(1)
			if err != nil {
				return errors.Wrap(err, "reading post history")
			}
			if len(recent) > 0 {
				r.LastPostURL = recent[0].URL
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return r, err
	}
	return r, nil
}
