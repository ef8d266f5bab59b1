// Package publish posts to X with the stored credentials and records what
// was published.
package publish

import (
	"context"
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/auth"
	"github.com/blackwell-systems/bip/internal/store"
	"github.com/blackwell-systems/bip/internal/twitter"
)

// ErrNotAuthenticated means no usable credentials are stored.
var ErrNotAuthenticated = errors.New("not authenticated with X; run setup_auth (or `bip auth`) first")

// Poster is the subset of *twitter.Client used here.
type Poster interface {
	PostTweet(ctx context.Context, text string) (twitter.Post, error)
	PostThread(ctx context.Context, texts []string, replyTo string) (twitter.Thread, error)
	Me(ctx context.Context) (twitter.User, error)
}

// History records published posts. *store.DB satisfies it.
type History interface {
	AddTweet(rec store.TweetRecord) error
	AddThread(rec store.ThreadRecord) error
}

// ClientFactory builds a Poster for the given credentials.
type ClientFactory func(ctx context.Context, creds *auth.Credentials) Poster

// OAuth1Factory returns a ClientFactory producing signed twitter clients.
func OAuth1Factory(opts twitter.Options) ClientFactory {
	return func(ctx context.Context, creds *auth.Credentials) Poster {
		return twitter.NewOAuth1(ctx, creds.Twitter(), opts)
	}
}

// Service publishes posts and threads.
type Service struct {
	creds     auth.Store
	history   History
	newClient ClientFactory
	logger    *slog.Logger
}

// NewService creates a Service. history may be nil.
func NewService(creds auth.Store, history History, newClient ClientFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{creds: creds, history: history, newClient: newClient, logger: logger}
}

// Authenticated reports whether complete credentials are stored.
func (s *Service) Authenticated() bool {
	creds, err := s.credentials()
	return err == nil && creds != nil
}

func (s *Service) credentials() (*auth.Credentials, error) {
	creds, err := s.creds.Get()
	if err != nil {
		return nil, errors.Wrap(err, "loading credentials")
	}
	if !creds.Complete() {
		return nil, ErrNotAuthenticated
	}
	return creds, nil
}

func (s *Service) client(ctx context.Context) (Poster, error) {
	creds, err := s.credentials()
	if err != nil {
		return nil, err
	}
	return s.newClient(ctx, creds), nil
}

// Tweet publishes one post and records it.
func (s *Service) Tweet(ctx context.Context, text string) (twitter.Post, error) {
	if err := twitter.Validate(text); err != nil {
		return twitter.Post{}, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return twitter.Post{}, err
	}

	post, err := c.PostTweet(ctx, text)
	if err != nil {
		return twitter.Post{}, err
	}

	if s.history != nil {
		if err := s.history.AddTweet(store.TweetRecord{ID: post.ID, URL: post.URL, Message: text}); err != nil {
			s.logger.Warn("failed to record tweet", "id", post.ID, "error", err)
		}
	}
	return post, nil
}

// Thread publishes a reply chain and records whatever part of it was
// published, even when a later post fails.
func (s *Service) Thread(ctx context.Context, texts []string, replyTo string) (twitter.Thread, error) {
	if len(texts) == 0 {
		return twitter.Thread{}, twitter.ErrEmptyThread
	}
	for i, text := range texts {
		if err := twitter.Validate(text); err != nil {
			return twitter.Thread{}, errors.Wrapf(err, "thread post %d", i+1)
		}
	}
	c, err := s.client(ctx)
	if err != nil {
		return twitter.Thread{}, err
	}

	thread, postErr := c.PostThread(ctx, texts, replyTo)
	if len(thread.Posts) > 0 && s.history != nil {
		rec := store.ThreadRecord{
			ID:       thread.Posts[0].ID,
			URLs:     thread.URLs(),
			Messages: texts[:len(thread.Posts)],
		}
		if err := s.history.AddThread(rec); err != nil {
			s.logger.Warn("failed to record thread", "id", rec.ID, "error", err)
		}
	}
	return thread, postErr
}

// Verify checks the stored credentials against the API.
func (s *Service) Verify(ctx context.Context) (twitter.User, error) {
	c, err := s.client(ctx)
	if err != nil {
		return twitter.User{}, err
	}
	return c.Me(ctx)
}
