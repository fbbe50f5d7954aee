// Package ics fetches iCalendar feeds over HTTP and parses them into
// calendar events.
package ics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/calyptra/liboccur/internal/metrics"
)

// Source identifies one ICS feed.
type Source struct {
	// ID is a stable internal identifier, typically from configuration.
	ID string
	// URL is the ICS endpoint.
	URL string
	// Name is the human-readable feed name.
	Name string
}

// FetchResult contains the outcome of fetching a single ICS source.
type FetchResult struct {
	Source    Source
	Body      []byte // ICS payload, freshly fetched or from cache
	FromCache bool   // true when the cached body was reused
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration

	// MaxBodyBytes caps the accepted response size. Larger feeds are
	// rejected with an ErrTooLarge error.
	MaxBodyBytes int64

	UserAgent string
	Cache     CacheConfig
}

// DefaultFetcherOptions provides sensible defaults for production use.
var DefaultFetcherOptions = FetcherOptions{
	Timeout:      15 * time.Second,
	MaxBodyBytes: 10 << 20, // 10 MiB, far beyond any sane feed
	UserAgent:    "liboccur/1.0",
	Cache:        DefaultCacheConfig,
}

// Fetcher retrieves ICS feeds with conditional requests (ETag and
// Last-Modified) backed by an in-memory response cache. When a feed is
// unreachable or returns a server error, the last good body is served
// instead, so a flaky feed degrades to slightly stale data rather than
// a gap in the calendar.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions
	cache  *responseCache
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. Zero-valued option fields are replaced
// with the defaults; a nil logger selects slog.Default().
func NewFetcher(opts FetcherOptions, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetcherOptions.Timeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultFetcherOptions.MaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultFetcherOptions.UserAgent
	}
	if opts.Cache == (CacheConfig{}) {
		opts.Cache = DefaultFetcherOptions.Cache
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		cache:  newResponseCache(opts.Cache),
		logger: logger,
	}
}

// FetchAll fetches all given sources and returns individual results.
// Errors for individual sources are logged and returned in the error
// slice; the result slice only contains sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.Fetch(ctx, src)
		if err != nil {
			f.logger.Error("feed fetch failed",
				"feed", src.ID,
				"url", redactURL(src.URL),
				"err", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// Fetch retrieves a single ICS source, honoring ETag and Last-Modified
// validators from the response cache.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		metrics.IncFeedFetch("error")
		return FetchResult{}, &Error{Type: ErrFetch, Message: "source URL is empty"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		metrics.IncFeedFetch("error")
		return FetchResult{}, &Error{Type: ErrFetch, Message: "building request for " + redactURL(src.URL), Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.8")

	cached, hasCached := f.cache.get(src.URL)
	if hasCached {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if hasCached {
			f.logger.Warn("feed unreachable, serving cached body",
				"feed", src.ID,
				"url", redactURL(src.URL),
				"err", err)
			metrics.IncFeedFetch("stale")
			return FetchResult{Source: src, Body: cached.body, FromCache: true}, nil
		}
		metrics.IncFeedFetch("error")
		return FetchResult{}, &Error{Type: ErrFetch, Message: "fetching " + redactURL(src.URL), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && hasCached:
		metrics.IncFeedFetch("not_modified")
		return FetchResult{Source: src, Body: cached.body, FromCache: true}, nil

	case resp.StatusCode != http.StatusOK:
		if hasCached {
			f.logger.Warn("feed returned non-OK status, serving cached body",
				"feed", src.ID,
				"url", redactURL(src.URL),
				"status", resp.StatusCode)
			metrics.IncFeedFetch("stale")
			return FetchResult{Source: src, Body: cached.body, FromCache: true}, nil
		}
		metrics.IncFeedFetch("error")
		return FetchResult{}, &Error{Type: ErrStatus, Message: fmt.Sprintf("%s returned %s", redactURL(src.URL), resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		if hasCached {
			f.logger.Warn("feed body read failed, serving cached body",
				"feed", src.ID,
				"url", redactURL(src.URL),
				"err", err)
			metrics.IncFeedFetch("stale")
			return FetchResult{Source: src, Body: cached.body, FromCache: true}, nil
		}
		metrics.IncFeedFetch("error")
		return FetchResult{}, &Error{Type: ErrFetch, Message: "reading " + redactURL(src.URL), Err: err}
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		metrics.IncFeedFetch("error")
		return FetchResult{}, &Error{Type: ErrTooLarge, Message: fmt.Sprintf("%s exceeds %d bytes", redactURL(src.URL), f.opts.MaxBodyBytes)}
	}

	f.cache.set(src.URL, body, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))
	metrics.IncFeedFetch("ok")
	f.logger.Debug("feed fetched",
		"feed", src.ID,
		"url", redactURL(src.URL),
		"bytes", len(body))
	return FetchResult{Source: src, Body: body, FromCache: false}, nil
}

// CacheStats reports the state of the response cache.
func (f *Fetcher) CacheStats() CacheStats {
	return f.cache.Stats()
}

// Close releases the response cache. The Fetcher must not be used
// afterwards.
func (f *Fetcher) Close() {
	f.cache.Close()
}

// redactURL hides the path, query and credentials of a feed URL before
// it reaches logs. Private feed URLs embed capability tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
