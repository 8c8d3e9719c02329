// Package fetch is the HTTP page-fetch capability used by the scrapers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

// defaultMaxBody caps how much of a page is read.
const defaultMaxBody = 8 << 20

// ErrBodyTooLarge is returned, wrapped in a *domain.FetchError, when a page is
// larger than the client reads. A cut-off listing is never returned.
var ErrBodyTooLarge = errors.New("response body too large")

// Client fetches pages over HTTP with browser-like default headers.
type Client struct {
	httpClient *http.Client
	headers    http.Header
	maxBody    int64
}

// NewClient creates a fetch client with a whole-request timeout.
func NewClient(timeout time.Duration, userAgent string) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "el-GR,el;q=0.9,en;q=0.8")
	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: tr},
		headers:    h,
		maxBody:    defaultMaxBody,
	}
}

// Get fetches url. Any transport failure or status >= 400 is a
// *domain.FetchError. Extra headers override the defaults.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, &domain.FetchError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header = c.headers.Clone()
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, nil, &domain.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return resp.StatusCode, nil, &domain.FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return resp.StatusCode, nil, &domain.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, c.maxBody),
		}
	}
	return resp.StatusCode, body, nil
}
