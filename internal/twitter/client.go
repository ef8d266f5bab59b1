// Package twitter posts to X (Twitter) through the v2 API.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/dghubble/oauth1"
)

// MaxLength is the per-post character limit, counted in code points.
const MaxLength = 280

// DefaultBaseURL is the X API host.
const DefaultBaseURL = "https://api.twitter.com"

// PostURL returns the public link to a post.
func PostURL(username, id string) string {
	return fmt.Sprintf("https://twitter.com/%s/status/%s", username, id)
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL string
	// Pause is the delay between consecutive posts of a thread.
	Pause   time.Duration
	Timeout time.Duration
	Retry   *RetryConfig
	Logger  *slog.Logger
}

// Credentials are the app and user tokens needed to sign requests.
type Credentials struct {
	AppKey       string
	AppSecret    string
	AccessToken  string
	AccessSecret string
}

// Client talks to the X API. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	pause   time.Duration
	retry   RetryConfig
	logger  *slog.Logger

	mu sync.Mutex
	me *User
}

// New wraps an http.Client that already authorizes its requests.
func New(httpClient *http.Client, opts Options) *Client {
	c := &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		pause:   opts.Pause,
		retry:   DefaultRetryConfig(),
		logger:  opts.Logger,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// NewOAuth1 returns a Client whose requests are signed with OAuth 1.0a
// user context credentials.
func NewOAuth1(ctx context.Context, creds Credentials, opts Options) *Client {
	cfg := oauth1.NewConfig(creds.AppKey, creds.AppSecret)
	httpClient := cfg.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessSecret))
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}
	return New(httpClient, opts)
}

// User is the authenticated account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Post is a published post.
type Post struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Thread is a chain of published posts, first to last.
type Thread struct {
	Posts []Post `json:"posts"`
}

// IDs returns the post IDs in order.
func (t Thread) IDs() []string {
	ids := make([]string, len(t.Posts))
	for i, p := range t.Posts {
		ids[i] = p.ID
	}
	return ids
}

// URLs returns the post URLs in order.
func (t Thread) URLs() []string {
	urls := make([]string, len(t.Posts))
	for i, p := range t.Posts {
		urls[i] = p.URL
	}
	return urls
}

// Validate checks a single post's text against the API limits.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n > MaxLength {
		return errors.Wrapf(ErrTooLong, "%d characters", n)
	}
	return nil
}

// Me returns the authenticated user. The first successful result is cached.
func (c *Client) Me(ctx context.Context) (User, error) {
	c.mu.Lock()
	cached := c.me
	c.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	var resp struct {
		Data User `json:"data"`
	}
	_, err := retry(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, "Me", http.MethodGet, "/2/users/me", nil, &resp)
	})
	if err != nil {
		return User{}, err
	}

	c.mu.Lock()
	c.me = &resp.Data
	c.mu.Unlock()
	return resp.Data, nil
}

// PostTweet publishes text as a standalone post.
func (c *Client) PostTweet(ctx context.Context, text string) (Post, error) {
	if err := Validate(text); err != nil {
		return Post{}, err
	}
	me, err := c.Me(ctx)
	if err != nil {
		return Post{}, err
	}
	c.logger.Info("posting", "chars", utf8.RuneCountInString(text))
	post, err := c.create(ctx, text, "", me.Username)
	if err != nil {
		return Post{}, err
	}
	c.logger.Info("posted", "id", post.ID, "url", post.URL)
	return post, nil
}

// PostThread publishes texts as a reply chain. When replyTo is set the
// first post replies to it. Every text is validated before anything is
// sent. On failure the posts already published are returned with the error.
func (c *Client) PostThread(ctx context.Context, texts []string, replyTo string) (Thread, error) {
	if len(texts) == 0 {
		return Thread{}, ErrEmptyThread
	}
	for i, text := range texts {
		if err := Validate(text); err != nil {
			return Thread{}, errors.Wrapf(err, "thread post %d", i+1)
		}
	}

	me, err := c.Me(ctx)
	if err != nil {
		return Thread{}, err
	}

	var thread Thread
	parent := replyTo
	for i, text := range texts {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
				return thread, errors.Wrapf(ctx.Err(), "thread interrupted after %d of %d posts", i, len(texts))
			case <-time.After(c.pause):
			}
		}

		c.logger.Info("posting thread", "post", i+1, "of", len(texts))
		post, err := c.create(ctx, text, parent, me.Username)
		if err != nil {
			return thread, errors.Wrapf(err, "thread post %d of %d", i+1, len(texts))
		}
		thread.Posts = append(thread.Posts, post)
		parent = post.ID
	}
	c.logger.Info("thread posted", "posts", len(thread.Posts), "url", thread.Posts[0].URL)
	return thread, nil
}

type createRequest struct {
	Text  string       `json:"text"`
	Reply *replyParams `json:"reply,omitempty"`
}

type replyParams struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

func (c *Client) create(ctx context.Context, text, replyTo, username string) (Post, error) {
	req := createRequest{Text: text}
	if replyTo != "" {
		req.Reply = &replyParams{InReplyToTweetID: replyTo}
	}

	var resp struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	_, err := retry(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, "CreateTweet", http.MethodPost, "/2/tweets", req, &resp)
	})
	if err != nil {
		return Post{}, err
	}
	if resp.Data.ID == "" {
		return Post{}, &APIError{Operation: "CreateTweet", Message: "response has no post id"}
	}
	return Post{ID: resp.Data.ID, URL: PostURL(username, resp.Data.ID), Text: text}, nil
}

// apiErrorBody covers both the v2 problem format and the v1 error list.
type apiErrorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (b apiErrorBody) message() string {
	switch {
	case b.Detail != "":
		return b.Detail
	case b.Title != "":
		return b.Title
	case len(b.Errors) > 0:
		return b.Errors[0].Message
	}
	return ""
}

// do sends one request. Only GET is treated as idempotent: a create that
// may have reached the server is never marked retryable.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	idempotent := method == http.MethodGet

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s request", op)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "building %s request", op)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), op)
		}
		return newTransportError(op, err, idempotent)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		// The status line arrived, so the server has seen the request.
		return &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    "reading response: " + err.Error(),
			Retryable:  idempotent,
			Cause:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb apiErrorBody
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &eb) == nil && eb.message() != "" {
			msg = eb.message()
		}
		c.logger.Debug("api error", "op", op, "status", resp.StatusCode, "message", msg)
		return newStatusError(op, resp.StatusCode, msg, idempotent)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrapf(err, "decoding %s response", op)
		}
	}
	return nil
}
