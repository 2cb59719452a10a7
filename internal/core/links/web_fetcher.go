// Package links fetches article pages and extracts readable content.
package links

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Desktop browser UA. Several news CDNs serve bot UAs a stub page.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxBodyBytes    = 5 << 20 // 5 MB
	maxRedirects    = 5
	perDomainRPS    = 1
	perDomainBurst  = 2
	defaultTimeout  = 15 * time.Second
)

// ErrUnsupportedScheme indicates a URL that is not http or https.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// ErrBadStatus indicates a non-2xx response.
var ErrBadStatus = errors.New("unexpected http status")

// WebFetcher downloads pages with global and per-domain rate limiting.
type WebFetcher struct {
	client  *http.Client
	global  *rate.Limiter
	mu      sync.Mutex
	domains map[string]*rate.Limiter
}

// NewWebFetcher creates a fetcher. globalRPS limits total request rate;
// each domain is additionally capped at one request per second.
func NewWebFetcher(globalRPS float64, timeout time.Duration) *WebFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if globalRPS <= 0 {
		globalRPS = 1
	}

	return &WebFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}

				return nil
			},
		},
		global:  rate.NewLimiter(rate.Limit(globalRPS), int(globalRPS)+1),
		domains: make(map[string]*rate.Limiter),
	}
}

// Fetch downloads the page at rawURL, capped at 5 MB.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: %w", u.Scheme, ErrUnsupportedScheme)
	}

	if err := f.global.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limiter: %w", err)
	}

	if err := f.domainLimiter(u.Hostname()).Wait(ctx); err != nil {
		return nil, fmt.Errorf("domain rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d: %w", rawURL, resp.StatusCode, ErrBadStatus)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func (f *WebFetcher) domainLimiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.domains[host]
	if !ok {
		limiter = rate.NewLimiter(perDomainRPS, perDomainBurst)
		f.domains[host] = limiter
	}

	return limiter
}
