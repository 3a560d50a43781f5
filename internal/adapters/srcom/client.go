// Package srcom is a read-only client for the speedrun.com REST API. It
// serves the entity cache and the record resolver; it never retries.
package srcom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/pkg/logger"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://www.speedrun.com/api/v1"
	// DefaultUserAgent identifies the client to the API.
	DefaultUserAgent = "wrwatch/1.0"
	defaultTimeout   = 30 * time.Second
	maxErrorBody     = 4 << 10
)

// Client talks to the speedrun.com API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client is not modified;
// WithTimeout applies to a copy of it.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAPIKey sets the key sent on requests that need an account, such as
// Notifications.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   baseURL,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("srcom")
	}
	return c
}

// FetchCategory returns an upstream category.
func (c *Client) FetchCategory(ctx context.Context, id string) (model.SourceCategory, error) {
	var data categoryData
	if err := c.get(ctx, "/categories/"+url.PathEscape(id), nil, &data); err != nil {
		return model.SourceCategory{}, err
	}
	return data.model(), nil
}

// FetchGame returns an upstream game.
func (c *Client) FetchGame(ctx context.Context, id string) (model.SourceGame, error) {
	var data gameData
	if err := c.get(ctx, "/games/"+url.PathEscape(id), nil, &data); err != nil {
		return model.SourceGame{}, err
	}
	return data.model(), nil
}

// FetchLevel returns an upstream level.
func (c *Client) FetchLevel(ctx context.Context, id string) (model.Level, error) {
	var data levelData
	if err := c.get(ctx, "/levels/"+url.PathEscape(id), nil, &data); err != nil {
		return model.Level{}, err
	}
	return data.model(), nil
}

// CategoryLeaderboard returns the full-game leaderboard of a category,
// restricted by f, in ascending time order.
func (c *Client) CategoryLeaderboard(ctx context.Context, cat model.SourceCategory, f model.Filter) ([]model.Run, error) {
	if cat.GameID == "" {
		return nil, fmt.Errorf("category %s: %w", cat.ID, ErrMissingGame)
	}
	path := fmt.Sprintf("/leaderboards/%s/category/%s", url.PathEscape(cat.GameID), url.PathEscape(cat.ID))
	return c.leaderboard(ctx, path, f)
}

// LevelLeaderboard returns the leaderboard of one level of an
// individual-level category, restricted by f, in ascending time order.
func (c *Client) LevelLeaderboard(ctx context.Context, lvl model.Level, cat model.SourceCategory, f model.Filter) ([]model.Run, error) {
	if cat.GameID == "" {
		return nil, fmt.Errorf("category %s: %w", cat.ID, ErrMissingGame)
	}
	path := fmt.Sprintf("/leaderboards/%s/level/%s/%s",
		url.PathEscape(cat.GameID), url.PathEscape(lvl.ID), url.PathEscape(cat.ID))
	return c.leaderboard(ctx, path, f)
}

// Notifications returns the notifications of the account behind the API
// key, newest first. It fails with ErrNoAPIKey when no key is configured.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	var data []notificationData
	if err := c.do(ctx, "/notifications", url.Values{"orderby": {"created"}, "direction": {"desc"}}, true, &data); err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(data))
	for _, n := range data {
		out = append(out, n.model())
	}
	return out, nil
}

func (c *Client) leaderboard(ctx context.Context, path string, f model.Filter) ([]model.Run, error) {
	q := url.Values{}
	q.Set("embed", "players")
	for k, v := range f {
		q.Set("var-"+k, v)
	}
	var data leaderboardData
	if err := c.get(ctx, path, q, &data); err != nil {
		return nil, err
	}
	return data.runs(), nil
}

// get fetches a public resource and decodes the "data" member of the
// envelope into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, path, query, false, out)
}

func (c *Client) do(ctx context.Context, path string, query url.Values, auth bool, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if auth {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug(ctx, "srcom request",
		logger.String("url", u),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, u)
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s: %w", u, err)
	}
	return nil
}

func statusError(resp *http.Response, u string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &StatusError{Status: resp.StatusCode, URL: u}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
	}
	return e
}

