// Package router answers free-text questions about a post collection.
//
// A query is lower-cased and tested against an ordered table of trigger
// words. The first route with a matching trigger handles the query; route
// order decides between queries that mention several subjects.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/abelbrown/pulse/internal/insight"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/narrative"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

// Unknown is the answer to a query that matches no route.
const Unknown = "I'm sorry, I couldn't understand your query.Can you be more specific about it?"

// Dataset supplies the collection a query runs against. Implementations
// swap collections wholesale; a returned collection is never mutated.
type Dataset interface {
	Collection() *model.Collection
}

// Static is a Dataset over one fixed collection.
type Static struct{ C *model.Collection }

// Collection implements Dataset.
func (s Static) Collection() *model.Collection { return s.C }

// Handler computes one signal and renders it as prose.
type Handler func(ctx context.Context, c *model.Collection) (string, error)

// Route pairs trigger words with a handler.
type Route struct {
	Name     string
	Triggers []string
	Handle   Handler
}

// Matches reports whether the lower-cased query contains any trigger.
func (r Route) Matches(query string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(query, t) {
			return true
		}
	}
	return false
}

// Options sizes the signals behind each route.
type Options struct {
	Topics           int
	Authors          int
	Subreddits       int
	Domains          int
	Controversy      int
	FlashpointMethod string
	Insight          insight.Options
}

// DefaultOptions mirrors the query endpoint's defaults.
func DefaultOptions() Options {
	return Options{
		Topics:           15,
		Authors:          10,
		Subreddits:       10,
		Domains:          10,
		Controversy:      5,
		FlashpointMethod: signals.MethodStatistical,
		Insight:          insight.DefaultOptions(),
	}
}

// Router dispatches queries to routes.
type Router struct {
	data       Dataset
	opts       Options
	vectorizer *tfidf.Vectorizer
	analyzer   *signals.Analyzer
	generator  *narrative.Generator
	metrics    *metrics.Metrics
	routes     []Route
}

// New builds a Router with the standard route table. analyzer, generator
// and m may be nil.
func New(data Dataset, opts Options, v *tfidf.Vectorizer, analyzer *signals.Analyzer, gen *narrative.Generator, m *metrics.Metrics) *Router {
	r := &Router{
		data:       data,
		opts:       opts,
		vectorizer: v,
		analyzer:   analyzer,
		generator:  gen,
		metrics:    m,
	}
	r.routes = []Route{
		{Name: "topics", Triggers: []string{"trending", "topic"}, Handle: r.topics},
		{Name: "authors", Triggers: []string{"author", "influencer"}, Handle: r.authors},
		{Name: "subreddits", Triggers: []string{"subreddit", "community"}, Handle: r.subreddits},
		{Name: "sentiment", Triggers: []string{"sentiment"}, Handle: r.sentiment},
		{Name: "flashpoints", Triggers: []string{"flashpoint", "spike"}, Handle: r.flashpoints},
		{Name: "domains", Triggers: []string{"domain", "url"}, Handle: r.domains},
		{Name: "controversial", Triggers: []string{"controversial"}, Handle: r.controversial},
		{Name: "narrative", Triggers: []string{"narrative", "summary"}, Handle: r.narrative},
	}
	return r
}

// Routes returns the route table in evaluation order.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Match returns the first route whose triggers appear in query.
func (r *Router) Match(query string) (Route, bool) {
	q := strings.ToLower(query)
	for _, route := range r.routes {
		if route.Matches(q) {
			return route, true
		}
	}
	return Route{}, false
}

// RouteName returns the name of the route answering query, or "unknown".
func (r *Router) RouteName(query string) string {
	if route, ok := r.Match(query); ok {
		return route.Name
	}
	return "unknown"
}

// Answer routes query and renders the answer. It never fails: handler
// errors and panics become "Error: <message>".
func (r *Router) Answer(ctx context.Context, query string) (answer string) {
	route, ok := r.Match(query)
	if !ok {
		r.metrics.ObserveRoute("unknown")
		return Unknown
	}
	r.metrics.ObserveRoute(route.Name)

	defer func() {
		if p := recover(); p != nil {
			logging.Error("Query handler panicked", "route", route.Name, "panic", p)
			answer = fmt.Sprintf("Error: %v", p)
		}
	}()

	text, err := route.Handle(ctx, r.data.Collection())
	if err != nil {
		logging.Warn("Query failed", "route", route.Name, "err", err)
		return "Error: " + err.Error()
	}
	return text
}

func (r *Router) topics(ctx context.Context, c *model.Collection) (string, error) {
	terms, err := signals.Topics(c, r.vectorizer, r.opts.Topics)
	r.metrics.ObserveSignal("topics", err)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Based on the analysis of the data, the following topics are currently trending:\n\n")
	for _, t := range terms {
		fmt.Fprintf(&b, "The topic '%s' has a significant score of %.2f, indicating its prominence in discussions.\n", t.Word, t.Score)
	}
	b.WriteString("\nThese topics highlight the key areas of interest in the current discourse.")
	return b.String(), nil
}

func (r *Router) authors(ctx context.Context, c *model.Collection) (string, error) {
	counts, err := signals.TopAuthors(c, r.opts.Authors)
	r.metrics.ObserveSignal("authors", err)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("The analysis of the data reveals the most active authors or influencers:\n\n")
	for _, a := range counts {
		fmt.Fprintf(&b, "%s has contributed %d posts, showcasing their significant activity.\n", a.Key, a.Count)
	}
	b.WriteString("\nThese authors play a crucial role in shaping the discussions within the community.")
	return b.String(), nil
}

func (r *Router) subreddits(ctx context.Context, c *model.Collection) (string, error) {
	counts, err := signals.TopSubreddits(c, r.opts.Subreddits)
	r.metrics.ObserveSignal("subreddits", err)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("The data indicates the following subreddit activity:\n\n")
	for _, s := range counts {
		fmt.Fprintf(&b, "The subreddit '%s' has %d posts, reflecting its engagement level.\n", s.Key, s.Count)
	}
	b.WriteString("\nThese subreddits represent the most active communities in the dataset.")
	return b.String(), nil
}

func (r *Router) sentiment(ctx context.Context, c *model.Collection) (string, error) {
	d := signals.PlaceholderSentiment(c)
	return fmt.Sprintf("The sentiment analysis of the data provides the following insights:\n\n"+
		"Positive sentiment accounts for %d%% of the discussions, while %d%% of the content is neutral. "+
		"Negative sentiment constitutes %d%%.\n\n"+
		"This breakdown highlights the overall tone of the discussions.", d.Positive, d.Neutral, d.Negative), nil
}

// flashpointDays runs the configured flashpoint method.
func (r *Router) flashpointDays(c *model.Collection) ([]signals.DayCount, error) {
	if r.opts.FlashpointMethod == signals.MethodMaxDay {
		spike, err := signals.MaxDayFlashpoint(c, 0)
		if !spike.Found {
			return nil, err
		}
		return []signals.DayCount{{Day: spike.Day, Count: spike.Count}}, err
	}
	return signals.StatisticalFlashpoint(c)
}

func (r *Router) flashpoints(ctx context.Context, c *model.Collection) (string, error) {
	days, err := r.flashpointDays(c)
	r.metrics.ObserveSignal("flashpoints", err)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("The analysis has identified the following flashpoints or spikes in activity:\n\n")
	for _, d := range days {
		fmt.Fprintf(&b, "On %s, there were %d posts, indicating a significant spike in activity.\n", d.Day.Format("2006-01-02"), d.Count)
	}
	b.WriteString("\nThese flashpoints represent moments of heightened engagement.")
	return b.String(), nil
}

func (r *Router) domains(ctx context.Context, c *model.Collection) (string, error) {
	counts, err := signals.TopDomains(c, r.opts.Domains)
	r.metrics.ObserveSignal("domains", err)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("The data reveals the following trends in domain usage:\n\n")
	for _, d := range counts {
		fmt.Fprintf(&b, "The domain '%s' was referenced %d times, highlighting its relevance.\n", d.Key, d.Count)
	}
	b.WriteString("\nThese domains are key sources of information in the discussions.")
	return b.String(), nil
}

func (r *Router) controversial(ctx context.Context, c *model.Collection) (string, error) {
	posts, err := signals.Controversial(c, r.opts.Controversy)
	r.metrics.ObserveSignal("controversy", err)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("The analysis has identified the most controversial posts:\n\n")
	for _, p := range posts {
		fmt.Fprintf(&b, "The post titled '%s' by %s has a score of %d, indicating its controversial nature.\n", p.Title, p.Author, p.Score)
	}
	b.WriteString("\nThese posts have sparked significant debate within the community.")
	return b.String(), nil
}

func (r *Router) narrative(ctx context.Context, c *model.Collection) (string, error) {
	if r.generator == nil {
		return "", fmt.Errorf("no narrative generator configured")
	}

	// Degraded extractors still yield usable defaults.
	a := narrative.Analysis{Sentiment: signals.PlaceholderSentiment(c)}
	a.Topics, _ = signals.Topics(c, r.vectorizer, r.opts.Topics)
	a.Authors, _ = signals.TopAuthors(c, r.opts.Authors)
	a.Subreddits, _ = signals.TopSubreddits(c, r.opts.Subreddits)
	a.Flashpoints, _ = r.flashpointDays(c)
	a.Domains, _ = signals.TopDomains(c, r.opts.Domains)
	a.Controversial, _ = signals.Controversial(c, r.opts.Controversy)

	var sent signals.Sentiment
	if r.analyzer != nil {
		sent, _ = signals.LexiconSentiment(c, r.analyzer)
	}
	a.Insights = insight.Compute(c, sent, r.vectorizer, r.opts.Insight).Sentences()

	text, err := r.generator.Analyze(ctx, a)
	if err != nil {
		r.metrics.ObserveNarrativeFailure()
	}
	return "The following narrative summary has been generated based on the data:\n\n" + text, nil
}
