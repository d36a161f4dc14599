package reward

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	userAgent          = "CoinRewardData/1.0"
)

// Fetcher performs the GET of one endpoint. A non-2xx answer is a
// TransportFailure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher fetches over HTTP and retries network errors and 5xx answers
// up to Retries times.
type HTTPFetcher struct {
	Client  *http.Client
	Retries int
	Backoff *backoff.Backoff
}

func NewHTTPFetcher(client *http.Client, retries int) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPFetcher{
		Client:  client,
		Retries: retries,
		Backoff: defaultBackoff(),
	}
}

func defaultBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	template := f.Backoff
	if template == nil {
		template = defaultBackoff()
	}
	b := *template
	b.Reset()
	for attempt := 0; ; attempt++ {
		body, retry, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retry || attempt >= f.Retries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, wrapError(TransportFailure, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, wrapError(TransportFailure, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, wrapError(TransportFailure, fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode >= 500, newError(TransportFailure, "HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, wrapError(TransportFailure, fmt.Errorf("failed to read response body: %w", err))
	}
	return body, false, nil
}
