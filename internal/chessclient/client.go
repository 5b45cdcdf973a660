package chessclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess/pkg/chessdto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to the chess HTTP API served by internal/httpapi.
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

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
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

func (c *Client) State(ctx context.Context) (*chessdto.View, error) {
	var v chessdto.View
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/state", nil, &v, true); err != nil {
		return nil, err
	}
	return &v, nil
}

// Command runs one command on the server. A rejected command still returns the
// current view together with the chessdto.DomainError.
func (c *Client) Command(ctx context.Context, name, arg string) (*chessdto.View, error) {
	req := chessdto.CommandRequest{Command: name, Arg: arg}
	var resp chessdto.CommandResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, "/command", req, &resp, false)
	return resp.View, err
}

func (c *Client) History(ctx context.Context, limit int) ([]*chessdto.ChessGame, error) {
	path := "/games"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp chessdto.HistoryResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) Game(ctx context.Context, id int64) (*chessdto.ChessGame, error) {
	var resp chessdto.GameResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/"+strconv.FormatInt(id, 10), nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Game, nil
}

// BoardPNG fetches the rendered board image.
func (c *Client) BoardPNG(ctx context.Context) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, "/board.png", nil, true, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	body, err := c.do(ctx, method, path, payload, retry, out)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do sends one request and returns a copy of the response body. A non-2xx reply
// carrying a domain error is decoded into out (when set) and returned as the error.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool, out any) ([]byte, error) {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if payload != nil {
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
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		body := append([]byte(nil), resp.Body()...)
		if status < 200 || status >= 300 {
			if de, ok := decodeDomainError(body); ok {
				if out != nil {
					_ = json.Unmarshal(body, out)
				}
				return nil, de
			}
			err := fmt.Errorf("chess api error: status=%d body=%s", status, truncate(string(body), 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return nil, err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func decodeDomainError(body []byte) (chessdto.DomainError, bool) {
	var env struct {
		Error *chessdto.DomainError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil || env.Error.Code == "" {
		return chessdto.DomainError{}, false
	}
	return *env.Error, true
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
