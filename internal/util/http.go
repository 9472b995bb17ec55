package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// MaxFetchBytes caps a single remote fetch.
const MaxFetchBytes = 32 << 20

var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

// HTTPClient returns the shared retrying client used for outbound image and
// provider requests.
func HTTPClient() *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = 12 * time.Second
		httpClient.Logger = nil
	})
	return httpClient
}

// GetBytes fetches url and returns the body. Non-2xx responses are errors.
func GetBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > MaxFetchBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, MaxFetchBytes)
	}
	return body, nil
}
