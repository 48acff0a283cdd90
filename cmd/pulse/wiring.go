package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/pulse/internal/brain"
	"github.com/abelbrown/pulse/internal/config"
	"github.com/abelbrown/pulse/internal/fetch"
	"github.com/abelbrown/pulse/internal/insight"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/narrative"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/router"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/store"
)

// providerRate spaces text-generation calls.
const providerRate = rate.Limit(1)

// newProviders registers every enabled text-generation backend, preferred
// one first.
func newProviders(c *config.Config) *brain.ProviderManager {
	pm := brain.NewProviderManager(providerRate)
	if c.Models.Gemini.Enabled {
		pm.AddProvider(brain.NewGeminiProvider(c.Models.Gemini.APIKey, c.Models.Gemini.Model))
	}
	if c.Models.Ollama.Enabled {
		pm.AddProvider(brain.NewOllamaProvider(c.Models.Ollama.Endpoint, c.Models.Ollama.Model))
	}
	pm.SetPreferred(c.Narrative.Provider)
	return pm
}

func newGenerator(c *config.Config) *narrative.Generator {
	return narrative.NewGenerator(newProviders(c), c.Narrative.Paragraphs, c.Narrative.MaxTokens)
}

// routerOptions maps the query-path sizes of the configuration.
func routerOptions(c *config.Config) router.Options {
	return router.Options{
		Topics:           c.Rankings.TopicsAPI,
		Authors:          c.Rankings.AuthorsAPI,
		Subreddits:       c.Rankings.SubredditsAPI,
		Domains:          c.Rankings.Domains,
		Controversy:      c.Rankings.Controversy,
		FlashpointMethod: c.Flashpoint.Method,
		Insight: insight.Options{
			Topics:        c.Rankings.Topics,
			Subreddits:    insight.DefaultOptions().Subreddits,
			Domains:       c.Rankings.Domains,
			MinSubreddits: c.Graphs.MinSubreddits,
		},
	}
}

func newRouter(c *config.Config, data router.Dataset, m *metrics.Metrics) *router.Router {
	return router.New(data, routerOptions(c), c.Vectorizer(), signals.NewAnalyzer(), newGenerator(c), m)
}

func newFetcher(c *config.Config) *fetch.Fetcher {
	return fetch.NewFetcher(fetch.Options{
		UserAgent:     c.Fetch.UserAgent,
		RatePerSecond: c.Fetch.RatePerSecond,
		Timeout:       c.Fetch.Timeout,
	})
}

// openStore opens the seen-post database, creating its directory.
func openStore(path string) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// tracedAnswerer records each routed query in the event log.
type tracedAnswerer struct {
	r      *router.Router
	events *otel.Logger
}

func (t tracedAnswerer) Answer(ctx context.Context, query string) string {
	start := time.Now()
	answer := t.r.Answer(ctx, query)
	t.events.Query("chat", t.r.RouteName(query), query, time.Since(start))
	return answer
}
