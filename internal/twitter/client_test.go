package twitter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records created posts and hands out sequential IDs.
type fakeAPI struct {
	mu       sync.Mutex
	created  []createRequest
	nextID   int
	failWith int // status to return for the next create, once
	meCalls  int32
	attempts int32 // create requests received, including failed ones
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.meCalls, 1)
		_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Dev","username":"dev"}}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		atomic.AddInt32(&f.attempts, 1)
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failWith != 0 {
			status := f.failWith
			f.failWith = 0
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"title":"Too Many Requests","detail":"slow down"}`))
			return
		}
		f.nextID++
		f.created = append(f.created, req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"id": strconv.Itoa(1000 + f.nextID), "text": req.Text},
		})
	})
	return mux
}

func (f *fakeAPI) posts() []createRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createRequest(nil), f.created...)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return New(srv.Client(), Options{
		BaseURL: srv.URL,
		Retry:   &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
}

// --- Validate ---

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("hello"))
	assert.NoError(t, Validate(strings.Repeat("é", 280)))
	assert.ErrorIs(t, Validate("   "), ErrEmptyText)
	assert.ErrorIs(t, Validate(strings.Repeat("a", 281)), ErrTooLong)
}

// --- PostTweet ---

func TestPostTweet(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	post, err := c.PostTweet(context.Background(), "Shipped it")
	require.NoError(t, err)
	assert.Equal(t, "1001", post.ID)
	assert.Equal(t, "https://twitter.com/dev/status/1001", post.URL)
	created := api.posts()
	require.Len(t, created, 1)
	assert.Nil(t, created[0].Reply)
}

func TestPostTweet_TooLongMakesNoRequest(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.PostTweet(context.Background(), strings.Repeat("a", 281))
	assert.ErrorIs(t, err, ErrTooLong)
	assert.Zero(t, atomic.LoadInt32(&api.meCalls))
	assert.Empty(t, api.posts())
}

func TestPostTweet_RetriesRateLimit(t *testing.T) {
	api := &fakeAPI{failWith: http.StatusTooManyRequests}
	c := newTestClient(t, api)

	post, err := c.PostTweet(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, "1001", post.ID)
}

func TestPostTweet_NonRetryableError(t *testing.T) {
	api := &fakeAPI{failWith: http.StatusForbidden}
	c := newTestClient(t, api)

	_, err := c.PostTweet(context.Background(), "duplicate")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "slow down", apiErr.Message)
	assert.False(t, IsRetryable(err))
	assert.Empty(t, api.posts())
}

func TestPostTweet_GatewayTimeoutNotRetried(t *testing.T) {
	api := &fakeAPI{failWith: http.StatusGatewayTimeout}
	c := newTestClient(t, api)

	_, err := c.PostTweet(context.Background(), "maybe posted")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.attempts))
}

func TestPostTweet_TruncatedResponseNotRetried(t *testing.T) {
	var creates int32
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Dev","username":"dev"}}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&creates, 1)
		w.Header().Set("Content-Length", "200")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"10`))
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := New(srv.Client(), Options{
		BaseURL: srv.URL,
		Retry:   &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	_, err := c.PostTweet(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&creates), "a create the server accepted must not be sent again")
}

func TestMe_RetriesGatewayTimeout(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Dev","username":"dev"}}`))
	}))
	defer srv.Close()
	c := New(srv.Client(), Options{
		BaseURL: srv.URL,
		Retry:   &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev", me.Username)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestMe_NegativeMaxRetriesStillSends(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := New(srv.Client(), Options{BaseURL: srv.URL, Retry: &RetryConfig{MaxRetries: -1}})

	me, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, me.ID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestMe_Cached(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	for i := 0; i < 3; i++ {
		me, err := c.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "dev", me.Username)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.meCalls))
}

// --- PostThread ---

func TestPostThread_ReplyChain(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	thread, err := c.PostThread(context.Background(), []string{"1/3", "2/3", "3/3"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1002", "1003"}, thread.IDs())
	assert.Equal(t, "https://twitter.com/dev/status/1003", thread.URLs()[2])

	created := api.posts()
	require.Len(t, created, 3)
	assert.Nil(t, created[0].Reply)
	assert.Equal(t, "1001", created[1].Reply.InReplyToTweetID)
	assert.Equal(t, "1002", created[2].Reply.InReplyToTweetID)
}

func TestPostThread_ReplyToExisting(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.PostThread(context.Background(), []string{"follow up"}, "999")
	require.NoError(t, err)
	created := api.posts()
	require.Len(t, created, 1)
	assert.Equal(t, "999", created[0].Reply.InReplyToTweetID)
}

func TestPostThread_ValidatesEverythingFirst(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.PostThread(context.Background(), []string{"ok", strings.Repeat("a", 300)}, "")
	assert.ErrorIs(t, err, ErrTooLong)
	assert.Empty(t, api.posts())

	_, err = c.PostThread(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrEmptyThread)
}

func TestPostThread_CancelDuringPause(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	c := New(srv.Client(), Options{BaseURL: srv.URL, Pause: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var thread Thread
	var err error
	go func() {
		thread, err = c.PostThread(ctx, []string{"one", "two"}, "")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(api.posts()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, thread.Posts, 1, "posts published before cancellation are returned")
}

// --- Retry ---

func TestBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 4 * time.Second}
	assert.Equal(t, time.Second, backoff(cfg, 0))
	assert.Equal(t, 2*time.Second, backoff(cfg, 1))
	assert.Equal(t, 4*time.Second, backoff(cfg, 5))
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), DefaultRetryConfig(), func() (int, error) {
		calls++
		return 0, newStatusError("CreateTweet", http.StatusBadRequest, "bad", false)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_NegativeMaxRetriesRunsOnce(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), RetryConfig{MaxRetries: -1}, func() (int, error) {
		calls++
		return 0, newStatusError("Me", http.StatusServiceUnavailable, "down", true)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewTransportError_Retryable(t *testing.T) {
	dial := &url.Error{Op: "Post", URL: "https://api.twitter.com/2/tweets", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
	read := &url.Error{Op: "Post", URL: "https://api.twitter.com/2/tweets", Err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}}
	dns := &net.DNSError{Err: "no such host", Name: "api.twitter.com"}

	tests := []struct {
		name       string
		cause      error
		idempotent bool
		want       bool
	}{
		{"dial error on create", dial, false, true},
		{"dns error on create", dns, false, true},
		{"read error on create", read, false, false},
		{"read error on get", read, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTransportError("op", tt.cause, tt.idempotent).Retryable)
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests, false))
	assert.True(t, isRetryableStatus(http.StatusServiceUnavailable, false))
	assert.False(t, isRetryableStatus(http.StatusBadGateway, false))
	assert.False(t, isRetryableStatus(http.StatusGatewayTimeout, false))
	assert.True(t, isRetryableStatus(http.StatusGatewayTimeout, true))
	assert.False(t, isRetryableStatus(http.StatusInternalServerError, true))
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond}
	_, err := retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, newStatusError("CreateTweet", http.StatusServiceUnavailable, "down", false)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsRetryable(err))
}
