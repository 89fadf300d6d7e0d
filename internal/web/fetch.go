package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
)

const (
	fetchTimeout = 30 * time.Second

	// maxContentBytes truncates extracted page content.
	maxContentBytes = 50 * 1024

	userAgent = "aria-assistant/1.0"
)

// Page is the extracted content of one fetched URL.
type Page struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	Truncated bool   `json:"truncated"`
}

// Fetcher downloads pages and extracts readable content as markdown.
// Transient failures are retried; a tripping circuit breaker sheds load when
// the network is persistently down.
type Fetcher struct {
	client    *http.Client
	converter *md.Converter
	policy    *errors.Policy
	breaker   *errors.CircuitBreaker

	log zerolog.Logger
}

// NewFetcher creates a page fetcher.
func NewFetcher(log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: fetchTimeout},
		converter: md.NewConverter("", true, nil),
		policy:    errors.SlowPolicy(),
		breaker:   errors.NewCircuitBreaker("web_fetch", errors.DefaultCircuitBreakerConfig()),
		log:       log.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch downloads the URL and returns its readable content.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if url == "" {
		return nil, errors.New(errors.CodeInvalidInput, "url required", errors.CategoryUser)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	page, err := errors.ExecuteCircuitBreakerWithResult(f.breaker, func() (*Page, error) {
		return errors.DoWithResult(ctx, f.policy, func() (*Page, error) {
			return f.fetch(ctx, url)
		})
	})
	if err != nil {
		f.log.Warn().Err(err).Str("url", url).Msg("fetch failed")
		return nil, err
	}

	f.log.Info().Str("url", url).Int("bytes", len(page.Markdown)).Msg("page fetched")
	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "invalid URL", errors.CategoryPermanent)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "request failed", errors.CategoryTemporary)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.RateLimit(errors.CodeNetworkUnavailable, "rate limited by server", 30*time.Second)
	case resp.StatusCode >= 500:
		return nil, errors.Temporary(errors.CodeNetworkUnavailable, fmt.Sprintf("server error: %s", resp.Status))
	default:
		return nil, errors.Permanent(errors.CodeNetworkUnavailable, fmt.Sprintf("unexpected status: %s", resp.Status))
	}

	// Bound the read: parse at most double the content budget.
	body := io.LimitReader(resp.Body, maxContentBytes*2)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to parse HTML", errors.CategoryPermanent)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Strip non-content elements before conversion.
	doc.Find("script, style, nav, header, footer, iframe, noscript").Remove()

	content := doc.Find("article, main").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	html, err := content.Html()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to extract content", errors.CategoryPermanent)
	}

	markdown, err := f.converter.ConvertString(html)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to convert content", errors.CategoryPermanent)
	}
	markdown = strings.TrimSpace(markdown)

	truncated := false
	if len(markdown) > maxContentBytes {
		markdown = markdown[:maxContentBytes]
		truncated = true
	}

	return &Page{
		URL:       url,
		Title:     title,
		Markdown:  markdown,
		Truncated: truncated,
	}, nil
}

// Shutdown releases held connections.
func (f *Fetcher) Shutdown() {
	f.client.CloseIdleConnections()
}
