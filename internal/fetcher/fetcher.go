// Package fetcher retrieves gazette pages over HTTP with bounded retry.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

// Page is the raw result of fetching a single URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Fetcher fetches a URL and returns the page body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Config captures the fetch knobs, decoupled from Viper so the client
// stays easy to construct in tests.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Client implements Fetcher using a Colly collector.
type Client struct {
	base   *colly.Collector
	retry  *RetryPolicy
	logger *zap.Logger
}

// New constructs a configured Colly-based Fetcher.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Client{
		base:   base,
		retry:  NewRetryPolicy(cfg.MaxRetries, cfg.BackoffInitial, cfg.BackoffMax),
		logger: logger,
	}, nil
}

// Fetch retrieves a page, retrying transient failures (timeouts, 5xx)
// with jittered backoff. Non-transient failures (4xx) surface on the
// first attempt.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Page, error) {
	for attempt := 0; ; attempt++ {
		page, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		if !c.retry.ShouldRetry(err, attempt) {
			return Page{}, err
		}
		wait := c.retry.Backoff(attempt)
		c.logger.Warn("fetch retry",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return Page{}, &boletin.FetchError{URL: rawURL, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (Page, error) {
	collector := c.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{err: &boletin.FetchError{
			URL:        rawURL,
			StatusCode: status,
			Transient:  isTransient(status),
			Err:        err,
		}})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, &boletin.FetchError{URL: rawURL, Err: err}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, &boletin.FetchError{URL: rawURL, Err: err}
		}
		return res.page, res.err
	default:
		return Page{}, &boletin.FetchError{
			URL:       rawURL,
			Transient: true,
			Err:       errors.New("fetch produced no result"),
		}
	}
}

// isTransient treats network-level failures (status 0) and server
// errors as retryable; client errors are not.
func isTransient(status int) bool {
	return status == 0 || status >= http.StatusInternalServerError
}

type fetchResult struct {
	page Page
	err  error
}
