package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/invest-agent/internal/domain"
	"github.com/Rrens/invest-agent/internal/intent"
	"github.com/Rrens/invest-agent/internal/llm"
	"github.com/Rrens/invest-agent/internal/metrics"
	"github.com/Rrens/invest-agent/internal/search"
)

// ArticleFetcher looks up articles for a query; failures are carried in the result
type ArticleFetcher interface {
	Fetch(ctx context.Context, query string) search.ArticleResult
}

// DatasetSampler draws random company rows
type DatasetSampler interface {
	Sample(ctx context.Context, n int) ([]domain.DatasetRow, error)
}

// ComposerConfig holds the per-turn sampling sizes and model choice
type ComposerConfig struct {
	Model           string
	FirstTurnSample int
	FollowUpSample  int
}

// Composer builds one assistant reply from the dataset, the article fetcher
// and the completion provider. It keeps no state between calls.
type Composer struct {
	provider   llm.Provider
	classifier intent.Classifier
	fetcher    ArticleFetcher
	sampler    DatasetSampler
	cfg        ComposerConfig
	metrics    *metrics.Metrics
}

func NewComposer(
	provider llm.Provider,
	classifier intent.Classifier,
	fetcher ArticleFetcher,
	sampler DatasetSampler,
	cfg ComposerConfig,
	m *metrics.Metrics,
) *Composer {
	if cfg.FirstTurnSample <= 0 {
		cfg.FirstTurnSample = 10
	}
	if cfg.FollowUpSample <= 0 {
		cfg.FollowUpSample = 5
	}
	return &Composer{
		provider:   provider,
		classifier: classifier,
		fetcher:    fetcher,
		sampler:    sampler,
		cfg:        cfg,
		metrics:    m,
	}
}

// Compose runs the comprehensive analysis on the first turn and routes
// every later turn through the classifier.
func (c *Composer) Compose(ctx context.Context, query string, firstTurn bool) domain.TurnResult {
	start := time.Now()

	var result domain.TurnResult
	if firstTurn {
		result = c.comprehensive(ctx, query)
	} else {
		result = c.followUp(ctx, query)
	}

	label := string(result.Action)
	if label == "" {
		label = "unrouted"
	}
	c.metrics.ObserveTurn(label, result.Err != nil, time.Since(start))

	evt := log.Info()
	if result.Err != nil {
		evt = log.Warn().Str("error_kind", string(result.Err.Kind)).Str("error", result.Err.Message)
	}
	evt.Str("action", string(result.Action)).
		Bool("first_turn", firstTurn).
		Dur("duration", time.Since(start)).
		Msg("Turn composed")

	return result
}

func (c *Composer) followUp(ctx context.Context, query string) domain.TurnResult {
	callStart := time.Now()
	action, err := c.classifier.Classify(ctx, query)
	c.metrics.ObserveCall("routing", err, time.Since(callStart))
	if err != nil {
		return failed("", domain.ErrorKindRouting, err)
	}

	log.Debug().Str("action", string(action)).Msg("Follow-up routed")

	switch action {
	case domain.ActionSearchWeb:
		return c.searchWeb(ctx, query)
	case domain.ActionAnalyzeData:
		return c.analyzeData(ctx, query)
	case domain.ActionSearchAndAnalyze:
		return c.searchAndAnalyze(ctx, query)
	default:
		return c.general(ctx, query)
	}
}

func (c *Composer) comprehensive(ctx context.Context, query string) domain.TurnResult {
	action := domain.ActionComprehensive

	sample, err := c.sample(ctx, c.cfg.FirstTurnSample)
	if err != nil {
		return failed(action, domain.ErrorKindDataset, err)
	}

	analysis, err := c.complete(ctx, llm.BuildComprehensivePrompt(query, sample))
	if err != nil {
		return failed(action, domain.ErrorKindCompletion, err)
	}

	articles := c.fetch(ctx, query).Text()

	return domain.TurnResult{Action: action, Content: SpliceArticles(analysis, articles)}
}

// SpliceArticles places the article list under the articles section header,
// appending the section when the analysis does not contain it.
func SpliceArticles(analysis, articles string) string {
	header := llm.ArticlesSectionHeader
	if strings.Contains(analysis, header) {
		return strings.ReplaceAll(analysis, header, header+"\n"+articles)
	}
	return analysis + "\n\n" + header + "\n" + articles
}

func (c *Composer) searchWeb(ctx context.Context, query string) domain.TurnResult {
	articles := c.fetch(ctx, query).Text()
	return domain.TurnResult{
		Action:  domain.ActionSearchWeb,
		Content: fmt.Sprintf("Here are relevant articles about %s:\n\n%s", query, articles),
	}
}

func (c *Composer) analyzeData(ctx context.Context, query string) domain.TurnResult {
	action := domain.ActionAnalyzeData

	sample, err := c.sample(ctx, c.cfg.FollowUpSample)
	if err != nil {
		return failed(action, domain.ErrorKindDataset, err)
	}

	content, err := c.complete(ctx, llm.BuildAnalyzePrompt(query, sample))
	if err != nil {
		return failed(action, domain.ErrorKindCompletion, err)
	}
	return domain.TurnResult{Action: action, Content: content}
}

func (c *Composer) searchAndAnalyze(ctx context.Context, query string) domain.TurnResult {
	action := domain.ActionSearchAndAnalyze

	blocks := make([]string, 0, len(llm.BenchmarkQueries))
	for _, q := range llm.BenchmarkQueries {
		blocks = append(blocks, fmt.Sprintf("Search: %s\n%s", q, c.fetch(ctx, q).Text()))
	}
	research := strings.Join(blocks, "\n\n")

	sample, err := c.sample(ctx, c.cfg.FollowUpSample)
	if err != nil {
		return failed(action, domain.ErrorKindDataset, err)
	}

	content, err := c.complete(ctx, llm.BuildBenchmarkPrompt(query, sample, research))
	if err != nil {
		return failed(action, domain.ErrorKindCompletion, err)
	}
	return domain.TurnResult{Action: action, Content: content}
}

func (c *Composer) general(ctx context.Context, query string) domain.TurnResult {
	action := domain.ActionGeneralResponse

	content, err := c.complete(ctx, llm.BuildGeneralPrompt(query))
	if err != nil {
		return failed(action, domain.ErrorKindCompletion, err)
	}
	return domain.TurnResult{Action: action, Content: content}
}

func (c *Composer) sample(ctx context.Context, n int) ([]domain.DatasetRow, error) {
	start := time.Now()
	rows, err := c.sampler.Sample(ctx, n)
	c.metrics.ObserveCall("dataset", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("dataset sampling failed: %w", err)
	}
	return rows, nil
}

func (c *Composer) complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	resp, err := c.provider.Complete(ctx, req, c.cfg.Model)
	c.metrics.ObserveCall("completion", err, time.Since(start))
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("provider", c.provider.Name()).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("Completion received")

	return resp.Content, nil
}

func (c *Composer) fetch(ctx context.Context, query string) search.ArticleResult {
	start := time.Now()
	result := c.fetcher.Fetch(ctx, query)
	c.metrics.ObserveCall("search", result.Err, time.Since(start))
	return result
}

func failed(action domain.Action, kind domain.ErrorKind, err error) domain.TurnResult {
	return domain.TurnResult{
		Action: action,
		Err:    &domain.TurnError{Kind: kind, Message: err.Error()},
	}
}
