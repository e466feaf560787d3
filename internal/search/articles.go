package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Rrens/invest-agent/internal/domain"
)

const (
	bullet           = "• "
	minTitleRunes    = 10
	minEntries       = 3
	maxFallbackLinks = 5
)

var (
	placeholderRe  = regexp.MustCompile(`(?i)^\[Article\s*\d*\]`)
	markdownLinkRe = regexp.MustCompile(`\[(.+?)\]\((.+?)\)`)
	lineURLRe      = regexp.MustCompile(`https?://[^\s]+`)
	fallbackURLRe  = regexp.MustCompile(`https?://[^\s)]+`)
	domainRe       = regexp.MustCompile(`https?://(?:www\.)?([^/]+)`)
)

// leading list markers emitted by the model in front of a title
const listMarkers = "•-*0123456789.) \t"

// ParseArticles extracts article entries from free-form search output.
// Markdown-link lines are kept verbatim, bare-URL lines get a derived
// title, and sparse answers are topped up from every URL in the text.
func ParseArticles(content string) []domain.ArticleEntry {
	var entries []domain.ArticleEntry

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.Contains(line, "[") && strings.Contains(line, "](") &&
			(strings.Contains(line, "http") || strings.Contains(line, "www")) {
			if placeholderRe.MatchString(line) {
				continue
			}
			entry := domain.ArticleEntry{Line: line}
			if !strings.HasPrefix(line, bullet) {
				entry.Line = bullet + line
			}
			if m := markdownLinkRe.FindStringSubmatch(line); m != nil {
				entry.Title, entry.URL = m[1], m[2]
			}
			entries = append(entries, entry)
			continue
		}

		if url := lineURLRe.FindString(line); url != "" {
			title := lineURLRe.ReplaceAllString(line, "")
			title = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(title), listMarkers))
			if utf8.RuneCountInString(title) < minTitleRunes {
				title = domainOf(url)
			}
			entries = append(entries, newEntry(title, url))
		}
	}

	if len(entries) < minEntries {
		urls := fallbackURLRe.FindAllString(content, -1)
		if len(urls) > maxFallbackLinks {
			urls = urls[:maxFallbackLinks]
		}
		for _, url := range urls {
			if containsURL(entries, url) {
				continue
			}
			entries = append(entries, newEntry(domainOf(url), url))
		}
	}

	return entries
}

func newEntry(title, url string) domain.ArticleEntry {
	return domain.ArticleEntry{
		Title: title,
		URL:   url,
		Line:  bullet + "[" + title + "](" + url + ")",
	}
}

func containsURL(entries []domain.ArticleEntry, url string) bool {
	for _, e := range entries {
		if strings.Contains(e.Line, url) {
			return true
		}
	}
	return false
}

func domainOf(url string) string {
	if m := domainRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return url
}
