package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrServerUnreachable wraps connection failures so callers can show a
// useful "is the server running?" message instead of a raw dial error.
var ErrServerUnreachable = errors.New("server unreachable")

// ErrProtocolMismatch indicates an http/https scheme mismatch between the
// configured base URL and what the server actually speaks.
var ErrProtocolMismatch = errors.New("http/https configuration mismatch")

// errNoRefreshToken means there is no session to refresh. The pipeline
// propagates it without ending the session.
var errNoRefreshToken = errors.New("no refresh token")

// refreshFunc exchanges a refresh token for a new access token. It must not
// go through the authTransport, or a failing refresh would recurse.
type refreshFunc func(ctx context.Context, refreshToken string) (newAccess string, err error)

// refresher coalesces concurrent refresh attempts onto a single in-flight
// exchange. Callers that arrive while an exchange is running wait for its
// result instead of firing their own.
type refresher struct {
	store    TokenStore
	exchange refreshFunc

	mu       sync.Mutex
	inflight *refreshCall
}

type refreshCall struct {
	done chan struct{}
	err  error
}

func newRefresher(store TokenStore, exchange refreshFunc) *refresher {
	return &refresher{store: store, exchange: exchange}
}

// refresh runs (or joins) a token refresh. On success the store holds the new
// access token before any waiter is released.
func (r *refresher) refresh(ctx context.Context) error {
	r.mu.Lock()
	if call := r.inflight; call != nil {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	r.inflight = call
	r.mu.Unlock()

	call.err = r.doExchange(ctx)
	close(call.done)

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()

	return call.err
}

func (r *refresher) doExchange(ctx context.Context) error {
	_, refreshToken := r.store.Tokens()
	if refreshToken == "" {
		return errNoRefreshToken
	}
	access, err := r.exchange(ctx, refreshToken)
	if err != nil {
		return err
	}
	r.store.SetTokens(access, "")
	return nil
}

// authTransport is the client's HTTP pipeline: it injects the bearer token,
// retries exactly once after a transparent refresh on 401, and normalizes
// connection errors into actionable messages.
type authTransport struct {
	base      http.RoundTripper
	baseURL   string
	store     TokenStore
	refresher *refresher
	// onAuthFailure runs when a refresh attempt fails, i.e. the session is
	// gone for good. It clears the store and broadcasts logout.
	onAuthFailure func()
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	access, _ := t.store.Tokens()

	attempt := cloneRequest(req)
	if access != "" && attempt.Header.Get("Authorization") == "" {
		attempt.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := t.base.RoundTrip(attempt)
	if err != nil {
		return nil, t.normalizeError(err)
	}

	if resp.StatusCode != http.StatusUnauthorized || access == "" {
		return resp, nil
	}

	// One retry, after a refresh that bypasses this transport. If the body
	// cannot be replayed the 401 is returned as-is.
	retry, ok := replayableRequest(req)
	if !ok {
		return resp, nil
	}

	// A failed exchange ends the session and surfaces the refresh error
	// instead of the stale 401. A merely absent refresh token propagates
	// without ending anything.
	if err := t.refresher.refresh(req.Context()); err != nil {
		drainAndClose(resp)
		if !errors.Is(err, errNoRefreshToken) && t.onAuthFailure != nil {
			t.onAuthFailure()
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	drainAndClose(resp)

	newAccess, _ := t.store.Tokens()
	retry.Header.Set("Authorization", "Bearer "+newAccess)

	resp, err = t.base.RoundTrip(retry)
	if err != nil {
		return nil, t.normalizeError(err)
	}
	return resp, nil
}

// normalizeError maps low-level transport failures to descriptive errors.
// Anything unrecognized passes through untouched.
func (t *authTransport) normalizeError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("cannot reach the API at %s (connection refused — is the server running?): %w",
			t.baseURL, ErrServerUnreachable)
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) || strings.Contains(err.Error(), "server gave HTTP response to HTTPS client") ||
		strings.Contains(err.Error(), "malformed HTTP response") {
		return fmt.Errorf("the API at %s does not speak the configured protocol (check http vs https): %w",
			t.baseURL, ErrProtocolMismatch)
	}

	return err
}

// cloneRequest shallow-copies a request with a deep-copied header, so bearer
// injection never mutates the caller's request.
func cloneRequest(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	return out
}

// replayableRequest produces a fresh copy of req suitable for the retry.
// Requests with a consumed, non-replayable body return ok=false.
func replayableRequest(req *http.Request) (*http.Request, bool) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out.Body = body
	return out, true
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// refreshExchange returns the refreshFunc used by the pipeline. It posts to
// /auth/refresh with a bare http.Client so the pipeline never intercepts its
// own refresh traffic.
func refreshExchange(baseURL string, hc *http.Client) refreshFunc {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return func(ctx context.Context, refreshToken string) (string, error) {
		payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
		if err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(baseURL, "/")+"/auth/refresh", bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := hc.Do(req)
		if err != nil {
			return "", err
		}
		defer drainAndClose(resp)

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
		}

		var body struct {
			Access string `json:"access"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode refresh response: %w", err)
		}
		if body.Access == "" {
			return "", errors.New("refresh response missing access token")
		}
		return body.Access, nil
	}
}
