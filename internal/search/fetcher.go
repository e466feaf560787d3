package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/domain"
)

// Diagnostic bullets returned in place of an article list
const (
	NoArticlesMessage = "• No relevant articles found for this query"
	AuthFailedMessage = "• Authentication failed - please check your search API key"
)

const articlePrompt = "Search for 5 recent relevant articles about: %s. " +
	"For each article, provide the actual article title and working URL in this exact format: " +
	"[Article Title](https://actual-working-url.com). Return only clickable links, one per line. " +
	"Make sure to include 5 different articles with meaningful titles."

// Asker sends one prompt to the search API
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ArticleResult is the outcome of one article fetch
type ArticleResult struct {
	Query   string
	Entries []domain.ArticleEntry
	Err     error
}

// Text renders the result as a newline-joined bullet list or a single
// diagnostic bullet.
func (r ArticleResult) Text() string {
	if r.Err != nil {
		var statusErr *StatusError
		if errors.As(r.Err, &statusErr) {
			if statusErr.StatusCode == http.StatusUnauthorized {
				return AuthFailedMessage
			}
			return fmt.Sprintf("• Error fetching articles (Status %d)", statusErr.StatusCode)
		}
		return "• Error fetching articles: " + r.Err.Error()
	}

	if len(r.Entries) == 0 {
		return NoArticlesMessage
	}

	lines := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		lines[i] = e.Line
	}
	return strings.Join(lines, "\n")
}

// Fetcher turns a query into a list of articles
type Fetcher struct {
	asker Asker
}

// NewFetcher creates an article fetcher on top of a search API client
func NewFetcher(asker Asker) *Fetcher {
	return &Fetcher{asker: asker}
}

// Fetch never fails; errors are carried in the result
func (f *Fetcher) Fetch(ctx context.Context, query string) ArticleResult {
	start := time.Now()

	content, err := f.asker.Ask(ctx, fmt.Sprintf(articlePrompt, query))
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Article search failed")
		return ArticleResult{Query: query, Err: err}
	}

	entries := ParseArticles(content)
	log.Debug().
		Str("query", query).
		Int("articles", len(entries)).
		Dur("latency", time.Since(start)).
		Msg("Articles fetched")

	return ArticleResult{Query: query, Entries: entries}
}
