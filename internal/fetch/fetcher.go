// Package fetch acquires the newest posts of subreddits from their public
// Atom feeds.
//
// Requests share one politeness limiter. Entries are converted to
// model.Post; vote and comment counts are not published in feeds and stay 0.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/abelbrown/pulse/internal/model"
)

// DefaultBaseURL is where subreddit feeds are served.
const DefaultBaseURL = "https://www.reddit.com"

// Options configures a Fetcher.
type Options struct {
	BaseURL       string
	UserAgent     string
	RatePerSecond float64 // <= 0 disables pacing
	Timeout       time.Duration
}

// Fetcher retrieves subreddit feeds.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(limit, 1),
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
	}
}

// FeedURL returns the feed of the newest limit posts of subreddit.
func (f *Fetcher) FeedURL(subreddit string, limit int) string {
	return fmt.Sprintf("%s/r/%s/new/.rss?limit=%d", f.baseURL, url.PathEscape(subreddit), limit)
}

// Fetch returns up to limit newest posts of subreddit, newest first.
func (f *Fetcher) Fetch(ctx context.Context, subreddit string, limit int) ([]model.Post, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.FeedURL(subreddit, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s: HTTP error: %d %s", subreddit, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse r/%s feed: %w", subreddit, err)
	}

	posts := make([]model.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(posts) == limit {
			break
		}
		posts = append(posts, convertEntry(item, subreddit))
	}
	return posts, nil
}
