// Package client is the typed Go SDK for the facility management API. Its
// HTTP pipeline injects the bearer token on every request, transparently
// refreshes an expired access token (retrying the original request exactly
// once), and broadcasts a logout event when the session cannot be recovered.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:8080".
	BaseURL string
	// Store holds session tokens. Defaults to an in-memory store.
	Store TokenStore
	// HTTPClient is the underlying client for both API calls and refresh
	// exchanges. Its Transport is wrapped by the auth pipeline.
	HTTPClient *http.Client
}

// Client is a session-holding API client. Safe for concurrent use.
type Client struct {
	baseURL string
	store   TokenStore
	http    *http.Client

	refresher *refresher

	mu          sync.Mutex
	subscribers map[int]func()
	nextSubID   int

	monitorStop context.CancelFunc
}

// New builds a Client. The returned client holds no session until Login is
// called or the store already contains tokens.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("client: base URL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: invalid base URL: %w", err)
	}

	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	inner := hc.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}

	c := &Client{
		baseURL:     base,
		store:       store,
		subscribers: map[int]func(){},
	}

	// The refresh exchange uses a bare client so the pipeline never
	// intercepts its own refresh traffic.
	bare := &http.Client{Transport: inner, Timeout: hc.Timeout}
	c.refresher = newRefresher(store, refreshExchange(base, bare))

	wrapped := *hc
	wrapped.Transport = &authTransport{
		base:          inner,
		baseURL:       base,
		store:         store,
		refresher:     c.refresher,
		onAuthFailure: c.forceLogout,
	}
	c.http = &wrapped

	return c, nil
}

// OnLogout registers fn to run whenever the session ends — explicit logout,
// a failed refresh, or the expiry monitor finding a dead token. The returned
// function unsubscribes.
func (c *Client) OnLogout(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// forceLogout clears the session and notifies subscribers. The store clear
// happens before any subscriber runs, so handlers always observe an empty
// session. Ending an already-empty session is a no-op, so a burst of failed
// requests produces exactly one broadcast.
func (c *Client) forceLogout() {
	c.mu.Lock()
	access, refresh := c.store.Tokens()
	if access == "" && refresh == "" && len(c.store.User()) == 0 {
		c.mu.Unlock()
		return
	}
	c.store.Clear()
	fns := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Login authenticates and stores the returned session.
func (c *Client) Login(ctx context.Context, username, password, otpCode string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
		"otp_code": otpCode,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.store.SetTokens(resp.Access, resp.Refresh)
	if resp.User != nil {
		if raw, err := json.Marshal(resp.User); err == nil {
			c.store.SetUser(raw)
		}
	}
	return &resp, nil
}

// Logout revokes the refresh token server-side, then clears the local
// session and notifies subscribers.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.store.Tokens()
	var err error
	if refresh != "" {
		err = c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refresh": refresh}, nil)
	}
	c.forceLogout()
	return err
}

// CachedUser returns the user record stored at login, if any.
func (c *Client) CachedUser() (*User, bool) {
	raw := c.store.User()
	if len(raw) == 0 {
		return nil, false
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, false
	}
	return &u, true
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword updates the caller's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPost, "/auth/password", map[string]string{
		"current_password": current,
		"new_password":     next,
	}, nil)
}

// SetupTwoFactor begins TOTP provisioning for the caller.
func (c *Client) SetupTwoFactor(ctx context.Context) (*TwoFactorSetup, error) {
	var setup TwoFactorSetup
	if err := c.do(ctx, http.MethodPost, "/auth/2fa/setup", nil, &setup); err != nil {
		return nil, err
	}
	return &setup, nil
}

// ConfirmTwoFactor verifies the first TOTP code and enables 2FA.
func (c *Client) ConfirmTwoFactor(ctx context.Context, otpCode string) error {
	return c.do(ctx, http.MethodPost, "/auth/2fa/confirm", map[string]string{"otp_code": otpCode}, nil)
}

// --- Permits ---

// ListPermitsOptions filters the permit listing.
type ListPermitsOptions struct {
	FacilityID string
	Status     string
}

func (c *Client) ListPermits(ctx context.Context, opts ListPermitsOptions) ([]Permit, error) {
	q := url.Values{}
	if opts.FacilityID != "" {
		q.Set("facility_id", opts.FacilityID)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	path := "/permits"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var permits []Permit
	if err := c.do(ctx, http.MethodGet, path, nil, &permits); err != nil {
		return nil, err
	}
	return permits, nil
}

func (c *Client) GetPermit(ctx context.Context, id string) (*Permit, error) {
	var p Permit
	if err := c.do(ctx, http.MethodGet, "/permits/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePermit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/permits/"+url.PathEscape(id), nil, nil)
}

func (c *Client) PermitHistory(ctx context.Context, id string) ([]PermitHistoryEntry, error) {
	var entries []PermitHistoryEntry
	if err := c.do(ctx, http.MethodGet, "/permits/"+url.PathEscape(id)+"/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) PermitStats(ctx context.Context, facilityID string) (*PermitStats, error) {
	path := "/permits/stats"
	if facilityID != "" {
		path += "?facility_id=" + url.QueryEscape(facilityID)
	}
	var stats PermitStats
	if err := c.do(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Facilities ---

func (c *Client) ListFacilities(ctx context.Context, activeOnly bool) ([]Facility, error) {
	path := "/facilities"
	if activeOnly {
		path += "?active=true"
	}
	var facilities []Facility
	if err := c.do(ctx, http.MethodGet, path, nil, &facilities); err != nil {
		return nil, err
	}
	return facilities, nil
}

func (c *Client) GetFacility(ctx context.Context, id string) (*Facility, error) {
	var f Facility
	if err := c.do(ctx, http.MethodGet, "/facilities/"+url.PathEscape(id), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// --- Users ---

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) PermissionsMatrix(ctx context.Context) ([]PermissionCategory, error) {
	var matrix []PermissionCategory
	if err := c.do(ctx, http.MethodGet, "/permissions", nil, &matrix); err != nil {
		return nil, err
	}
	return matrix, nil
}

// do performs a JSON round trip through the auth pipeline.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
