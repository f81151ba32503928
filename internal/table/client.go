package table

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/cardstack/internal/auth"
	"github.com/roach88/cardstack/internal/card"
)

// Client reaches a remote Table through Handler.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient returns a Client for the server at baseURL (e.g.
// "http://localhost:50000") authenticating with token. A nil hc uses a client
// with a 5 second timeout.
func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

// Draw draws the top card of the remote pile.
func (c *Client) Draw(ctx context.Context) (card.Card, bool, error) {
	var resp DrawResponse
	if err := c.do(ctx, http.MethodPost, "/table/draw", &resp); err != nil {
		return card.Card{}, false, err
	}
	if resp.Empty || resp.Card == nil {
		return card.Card{}, false, nil
	}
	return *resp.Card, true, nil
}

// Top returns the remote board top.
func (c *Client) Top(ctx context.Context) (card.Card, error) {
	var resp TopResponse
	if err := c.do(ctx, http.MethodGet, "/table/top", &resp); err != nil {
		return card.Card{}, err
	}
	return resp.Card, nil
}

// Counts returns the remote pile and board sizes.
func (c *Client) Counts(ctx context.Context) (Counts, error) {
	var counts Counts
	err := c.do(ctx, http.MethodGet, "/table", &counts)
	return counts, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	auth.SetBearer(req.Header, c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("table %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("table %s %s: %w", method, path, auth.ErrUnauthorized)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("table %s %s: %w", method, path, ErrClosed)
	case resp.StatusCode >= 300:
		return fmt.Errorf("table %s %s: http %d", method, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("table %s %s: decode: %w", method, path, err)
	}
	return nil
}
