package boardclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chessboard/pkg/boarddto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// APIError is a non-2xx reply from the board server.
type APIError struct {
	Status int
	Body   boarddto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("board api error: status=%d code=%s message=%s", e.Status, e.Body.Code, e.Body.Message)
}

// IsNotFound reports whether err is a 404 from the board server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusNotFound
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, fasthttp.MethodGet, "/healthz", nil, true)
	return err
}

func (c *Client) CreateSession(ctx context.Context) (*boarddto.SessionState, error) {
	var st boarddto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions", nil, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*boarddto.SessionState, error) {
	var st boarddto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, ""), nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id, ""), nil, nil, false)
}

func (c *Client) Click(ctx context.Context, id, square string) (*boarddto.ClickResponse, error) {
	var resp boarddto.ClickResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, "click"), boarddto.ClickRequest{Square: square}, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Reset(ctx context.Context, id string) (*boarddto.SessionState, error) {
	return c.event(ctx, id, "reset", nil)
}

func (c *Client) Undo(ctx context.Context, id string) (*boarddto.SessionState, error) {
	return c.event(ctx, id, "undo", nil)
}

func (c *Client) Flip(ctx context.Context, id string) (*boarddto.SessionState, error) {
	return c.event(ctx, id, "flip", nil)
}

func (c *Client) JumpTo(ctx context.Context, id string, ply int) (*boarddto.SessionState, error) {
	return c.event(ctx, id, "jump", boarddto.JumpRequest{Ply: ply})
}

func (c *Client) SetPromotion(ctx context.Context, id, piece string) (*boarddto.SessionState, error) {
	return c.event(ctx, id, "promotion", boarddto.PromotionRequest{Piece: piece})
}

func (c *Client) PGN(ctx context.Context, id string) (string, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, sessionPath(id, "pgn"), nil, true)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// BoardPNG fetches the rendered board. size 0 lets the server pick.
func (c *Client) BoardPNG(ctx context.Context, id string, size int) ([]byte, error) {
	path := sessionPath(id, "board.png")
	if size > 0 {
		path += "?size=" + strconv.Itoa(size)
	}
	return c.do(ctx, fasthttp.MethodGet, path, nil, true)
}

func (c *Client) RecentGames(ctx context.Context, limit int) ([]*boarddto.FinishedGame, error) {
	var games []*boarddto.FinishedGame
	path := "/api/games"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &games, true); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *Client) event(ctx context.Context, id, name string, in any) (*boarddto.SessionState, error) {
	var st boarddto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id, name), in, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	body, err := c.do(ctx, method, path, in, retry)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do sends one request. Only idempotent reads set retry; retries cover
// transport errors and 5xx replies with exponential backoff.
func (c *Client) do(ctx context.Context, method, path string, in any, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if json.Unmarshal(resp.Body(), &apiErr.Body) != nil || apiErr.Body.Code == "" {
				apiErr.Body = boarddto.DomainError{Code: "http_error", Message: truncate(string(resp.Body()), 512)}
			}
			if attempt == attempts || !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func sessionPath(id, action string) string {
	p := "/api/sessions/" + url.PathEscape(strings.TrimSpace(id))
	if action != "" {
		p += "/" + action
	}
	return p
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
