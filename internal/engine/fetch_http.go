package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps a single page read. Watch pages run to ~2 MB.
const maxBodyBytes = 8 * 1024 * 1024

// DefaultHeaders is the static browser header set sent with every page GET.
var DefaultHeaders = map[string]string{
	"User-Agent":      UserAgentChrome,
	"Accept-Language": "en-US,en;q=0.9",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Connection":      "keep-alive",
}

// BrowserHeaders returns a copy of DefaultHeaders safe for the caller to modify.
func BrowserHeaders() map[string]string {
	h := make(map[string]string, len(DefaultHeaders))
	for k, v := range DefaultHeaders {
		h[k] = v
	}
	return h
}

// Getter performs a single GET and reports status and body.
// Failures are a single unstructured error: no DNS/TLS/timeout distinction.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (status int, body string, err error)
}

// NewHTTPClient creates the process-wide HTTP client with keep-alive pooling.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// HTTPFetcher is the Getter backed by a shared *http.Client.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher wraps client; nil gets a fresh NewHTTPClient.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = NewHTTPClient()
	}
	return &HTTPFetcher{client: client}
}

// Get issues one GET with the given headers, bounded by timeout. No retry.
// Non-2xx responses are not errors: the status is returned with the body.
func (f *HTTPFetcher) Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (int, string, error) {
	metrics.FetchRequests.Add(1)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return 0, "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		metrics.FetchErrors.Add(1)
		return resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, string(body), nil
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response) ([]byte, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(io.LimitReader(gz, maxBodyBytes))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
