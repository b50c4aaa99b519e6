package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrRobotsDisallowed is returned without retrying when robots.txt forbids a URL.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// HTTPError carries the status of a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("failed to fetch HTML, status code: %d (%s)", e.StatusCode, e.URL)
}

// Fetcher is the only component that talks to the network. Every GET gets
// the configured headers, a per-attempt timeout and the retry policy.
type Fetcher struct {
	client  *http.Client
	headers map[string]string
	policy  RetryPolicy
	timeout time.Duration
	sleep   Sleeper
	robots  *RobotsChecker
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

func WithHeaders(h map[string]string) Option { return func(f *Fetcher) { f.headers = h } }

func WithRetryPolicy(p RetryPolicy) Option { return func(f *Fetcher) { f.policy = p } }

// WithTimeout bounds each attempt, including reading the body.
func WithTimeout(d time.Duration) Option { return func(f *Fetcher) { f.timeout = d } }

func WithSleeper(s Sleeper) Option { return func(f *Fetcher) { f.sleep = s } }

func WithLogger(l *slog.Logger) Option { return func(f *Fetcher) { f.logger = l } }

// WithRobots gates every URL through r before the first attempt.
func WithRobots(r *RobotsChecker) Option { return func(f *Fetcher) { f.robots = r } }

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		policy:  DefaultRetryPolicy(),
		timeout: 10 * time.Second,
		sleep:   SleepContext,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetHtml fetches url and parses the body into a goquery document.
func (f *Fetcher) GetHtml(ctx context.Context, url string) (*goquery.Document, error) {
	bodyBytes, err := f.GetHtmlBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// GetHtmlBytes fetches url with retries. Once a 2xx response is read the
// body is returned as is; malformed pages are the extractor's problem.
func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, error) {
	if f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("robots check for %s: %w", url, err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", url, ErrRobotsDisallowed)
		}
	}

	var body []byte
	logger := f.logger.With("url", url)
	err := Retry(ctx, f.policy, f.sleep, logger, func(ctx context.Context, attempt int) error {
		b, err := f.attempt(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	// A 2xx response is final even when its body cannot be read in full.
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to read response body: %w", err))
	}
	return bodyBytes, nil
}
