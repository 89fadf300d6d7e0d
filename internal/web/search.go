// Package web provides web search and page fetching for the assistant.
//
// Search results are mocked pending a real search API integration; the page
// fetcher performs real HTTP requests.
package web

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// SearchResult is one search hit.
type SearchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet"`
	Source        string `json:"source"`
	PublishedDate string `json:"published_date,omitempty"`
}

// SearchResponse bundles the hits for one query.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// QuickAnswer is a direct answer to a question.
type QuickAnswer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

// SearchEngine serves mocked web and news searches.
type SearchEngine struct {
	log zerolog.Logger
}

// NewSearchEngine creates a search engine.
func NewSearchEngine(log zerolog.Logger) *SearchEngine {
	return &SearchEngine{
		log: log.With().Str("component", "search").Logger(),
	}
}

// Search returns mock web results for the query.
func (s *SearchEngine) Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	slug := strings.ReplaceAll(query, " ", "-")
	results := []SearchResult{
		{
			Title:   fmt.Sprintf("Information about %s", query),
			URL:     fmt.Sprintf("https://example.com/%s", slug),
			Snippet: fmt.Sprintf("This is a comprehensive resource about %s. You can find detailed information and examples here.", query),
			Source:  "Example Source",
		},
		{
			Title:   fmt.Sprintf("%s - Complete Guide", query),
			URL:     fmt.Sprintf("https://guide.com/%s", query),
			Snippet: fmt.Sprintf("Learn everything you need to know about %s. This guide covers basics to advanced topics.", query),
			Source:  "Guide Source",
		},
		{
			Title:   fmt.Sprintf("Latest news on %s", query),
			URL:     fmt.Sprintf("https://news.com/%s", query),
			Snippet: fmt.Sprintf("Stay updated with the latest developments and news about %s.", query),
			Source:  "News Source",
		},
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	s.log.Info().Str("query", query).Int("results", len(results)).Msg("web search")
	return &SearchResponse{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// SearchNews returns mock news results for the query.
func (s *SearchEngine) SearchNews(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []SearchResult{
		{
			Title:         fmt.Sprintf("Breaking: Major development in %s", query),
			URL:           fmt.Sprintf("https://news.com/%s", query),
			Snippet:       fmt.Sprintf("Recent developments in %s are making headlines worldwide.", query),
			Source:        "Global News",
			PublishedDate: "2024-01-15",
		},
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	return &SearchResponse{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// Answer returns a canned direct answer to a question.
func (s *SearchEngine) Answer(ctx context.Context, question string) (*QuickAnswer, error) {
	if question == "" {
		return nil, fmt.Errorf("question required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &QuickAnswer{
		Question: question,
		Answer: fmt.Sprintf("Based on available information, here's what I know about %q. "+
			"For more detailed information, I recommend checking reliable sources or performing a comprehensive search.", question),
		Sources: []string{"Example Knowledge Base"},
	}, nil
}
