package client

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	monitorInterval = 60 * time.Second
	// refreshAhead is how close to expiry the monitor refreshes proactively.
	refreshAhead = 5 * time.Minute
)

// StartExpiryMonitor launches a background watcher over the access token.
// Every minute it decodes the token's exp claim (without verifying the
// signature — the server does that) and either refreshes proactively when
// expiry is near, or clears the session and broadcasts logout when the token
// is already dead. The monitor is advisory: the transport's 401 handling
// remains the source of truth.
//
// Call StopExpiryMonitor (or cancel ctx) to stop it.
func (c *Client) StartExpiryMonitor(ctx context.Context) {
	c.mu.Lock()
	if c.monitorStop != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.monitorStop = cancel
	c.mu.Unlock()

	go c.runMonitor(ctx)
}

// StopExpiryMonitor halts the background watcher, if running.
func (c *Client) StopExpiryMonitor() {
	c.mu.Lock()
	stop := c.monitorStop
	c.monitorStop = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (c *Client) runMonitor(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkExpiry(ctx)
		}
	}
}

func (c *Client) checkExpiry(ctx context.Context) {
	access, _ := c.store.Tokens()
	if access == "" {
		return
	}

	exp, ok := tokenExpiry(access)
	if !ok {
		return
	}

	until := time.Until(exp)
	switch {
	case until <= 0:
		// Already dead: end the session now instead of letting the next
		// request fail.
		c.forceLogout()
	case until < refreshAhead:
		// Best effort; a failure here just means the 401 path handles it.
		_ = c.refresher.refresh(ctx)
	}
}

// tokenExpiry decodes the exp claim without signature verification.
func tokenExpiry(tokenString string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
