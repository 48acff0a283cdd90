// Package pipeline runs the batch report: load, preprocess, compute every
// signal, then write plots, the summary and the narrative to an output
// directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/pulse/internal/config"
	"github.com/abelbrown/pulse/internal/ingest"
	"github.com/abelbrown/pulse/internal/insight"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/narrative"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/prep"
	"github.com/abelbrown/pulse/internal/render"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

// ErrEmptyCollection aborts a run that has no posts to analyze.
var ErrEmptyCollection = errors.New("pipeline: no posts to analyze")

// Artifact file names.
const (
	PostTrendsFile       = "post_trends.html"
	TopSubredditsFile    = "top_subreddits.html"
	TopAuthorsFile       = "top_authors.html"
	AuthorNetworkFile    = "author_network.html"
	SummaryFile          = "summary.txt"
	NarrativeFile        = "narrative.txt"
	EventsFile           = "events.jsonl"
	KeywordMentionsFile  = "keyword_mentions.html"
	KeywordSentimentFile = "keyword_sentiment.html"
	LinkSentimentFile    = "link_sentiment.html"
	KeywordSummaryFile   = "keyword_summary.txt"
)

// plotWorkers bounds concurrent chart rendering.
const plotWorkers = 4

// KeywordExamples pairs a topic word with its best posts.
type KeywordExamples struct {
	Keyword  string
	Examples []signals.Example
}

// Result is everything one run computed.
type Result struct {
	RunID           string
	Posts           int
	Report          insight.Report
	Summary         string
	Narrative       string
	KeywordExamples []KeywordExamples
	PowerUsers      []signals.PowerUser
	AuthorStats     []signals.AuthorStat
	Controversial   []signals.ControversialPost
	Artifacts       []string // written file names, relative to the output directory

	// Errors collects degraded signals and failed artifacts.
	Errors []error
}

// Pipeline runs batch reports with one configuration.
type Pipeline struct {
	cfg        *config.Config
	vectorizer *tfidf.Vectorizer
	analyzer   *signals.Analyzer
	generator  *narrative.Generator
	metrics    *metrics.Metrics
}

// New returns a Pipeline. gen and m may be nil: without a generator the
// narrative artifact holds the failure text.
func New(cfg *config.Config, gen *narrative.Generator, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		vectorizer: cfg.Vectorizer(),
		analyzer:   signals.NewAnalyzer(),
		generator:  gen,
		metrics:    m,
	}
}

// Run loads the configured dataset and writes the report.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	raw, stats, err := ingest.LoadWithStats(ctx, p.cfg.Data)
	if err != nil {
		logging.Error("Aborting run: load failed", "path", p.cfg.Data, "err", err)
		return nil, err
	}
	loaded := otel.Event{Time: time.Now(), Level: otel.LevelInfo, Kind: otel.KindLoadComplete,
		Comp: "pipeline", Source: p.cfg.Data, Count: stats.Kept, Dur: time.Since(start),
		Extra: map[string]any{"malformed": stats.Malformed, "duplicates": stats.Duplicates}}
	return p.run(ctx, raw, start, loaded)
}

// RunCollection writes the report for an already loaded collection.
func (p *Pipeline) RunCollection(ctx context.Context, raw *model.Collection) (*Result, error) {
	start := time.Now()
	loaded := otel.Event{Time: start, Level: otel.LevelInfo, Kind: otel.KindLoadComplete,
		Comp: "pipeline", Count: raw.Len()}
	return p.run(ctx, raw, start, loaded)
}

func (p *Pipeline) run(ctx context.Context, raw *model.Collection, start time.Time, loaded otel.Event) (*Result, error) {
	if raw.IsEmpty() {
		logging.Error("Aborting run: empty collection after loading")
		return nil, ErrEmptyCollection
	}
	prepStart := time.Now()
	c, err := prep.Preprocess(raw)
	if err != nil {
		logging.Error("Aborting run: preprocessing failed", "err", err)
		return nil, err
	}
	if c.IsEmpty() {
		logging.Error("Aborting run: empty collection after preprocessing")
		return nil, ErrEmptyCollection
	}

	if err := os.MkdirAll(p.cfg.Output, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	events, closeEvents, err := p.openEvents()
	if err != nil {
		return nil, err
	}
	defer closeEvents()

	r := &run{
		p:      p,
		ctx:    ctx,
		c:      c,
		events: events,
		res:    &Result{RunID: events.SessionID(), Posts: c.Len(), Artifacts: []string{EventsFile}},
	}
	events.Emit(otel.Event{Time: start, Level: otel.LevelInfo, Kind: otel.KindRunStart, Comp: "pipeline", Source: p.cfg.Data})
	events.Emit(loaded)
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPrepComplete, Comp: "pipeline",
		Count: c.Len(), Dur: time.Since(prepStart)})
	p.metrics.SetPostsLoaded(c.Len())
	logging.Info("Run started", "run_id", r.res.RunID, "posts", c.Len(), "output", p.cfg.Output)

	r.execute()

	elapsed := time.Since(start)
	p.metrics.ObserveRun(elapsed)
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRunComplete, Comp: "pipeline",
		Count: len(r.res.Artifacts), Dur: elapsed, Extra: map[string]any{"degraded": len(r.res.Errors)}})
	logging.Info("Run complete", "run_id", r.res.RunID, "artifacts", len(r.res.Artifacts),
		"degraded", len(r.res.Errors), "elapsed", elapsed.Round(time.Millisecond))
	return r.res, nil
}

func (p *Pipeline) openEvents() (*otel.Logger, func(), error) {
	f, err := os.Create(filepath.Join(p.cfg.Output, EventsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("create event log: %w", err)
	}
	l := otel.NewSessionLogger(f, uuid.NewString())
	return l, func() {
		l.Close()
		f.Close()
	}, nil
}

// run is the state of one report.
type run struct {
	p      *Pipeline
	ctx    context.Context
	c      *model.Collection
	events *otel.Logger

	mu  sync.Mutex // guards res during concurrent rendering
	res *Result
}

func (r *run) execute() {
	cfg := r.p.cfg
	rk := cfg.Rankings

	g := new(errgroup.Group)
	g.SetLimit(plotWorkers)
	r.plots(g)

	topics, err := signals.Topics(r.c, r.p.vectorizer, rk.Topics)
	r.signal("topics", err)
	for i, t := range topics {
		if i == 3 {
			break
		}
		ex, err := signals.KeywordExamples(r.c, t.Word, rk.KeywordExamples)
		r.signal("keyword_examples", err)
		r.res.KeywordExamples = append(r.res.KeywordExamples, KeywordExamples{Keyword: t.Word, Examples: ex})
	}

	sent, err := signals.LexiconSentiment(r.c, r.p.analyzer)
	r.signal("sentiment", err)

	r.res.PowerUsers, err = signals.PowerUsers(r.c, rk.PowerUsers)
	r.signal("power_users", err)
	r.res.AuthorStats, err = signals.AuthorStats(r.c)
	r.signal("author_stats", err)

	if kw := cfg.Narrative.Keyword; kw != "" {
		r.keyword(g, kw, sent)
	}

	// The summary's inputs differ from the topic ranking above: it always
	// takes five subreddits and the max-day flashpoint.
	report := insight.Compute(r.c, sent, r.p.vectorizer, insight.Options{
		Topics:        rk.Topics,
		Subreddits:    5,
		Domains:       rk.Domains,
		MinSubreddits: cfg.Graphs.MinSubreddits,
	})
	for _, err := range report.Errors {
		r.record(err)
	}
	r.res.Report = report
	r.res.Summary = report.Summary()
	r.write(SummaryFile, r.res.Summary)

	r.res.Narrative = r.narrative(report)
	r.write(NarrativeFile, r.res.Narrative)

	r.res.Controversial, err = signals.Controversial(r.c, rk.Controversy)
	r.signal("controversy", err)
	for _, cp := range r.res.Controversial {
		logging.Info("Controversial post",
			"id", cp.ID,
			"title", cp.Title,
			"author", cp.Author,
			"subreddit", cp.Subreddit,
			"upvote_ratio", fmt.Sprintf("%.2f", cp.UpvoteRatio),
			"comments", cp.Comments)
	}

	_ = g.Wait()
}

// plots queues the always-on charts.
func (r *run) plots(g *errgroup.Group) {
	cfg := r.p.cfg

	r.chart(g, PostTrendsFile, func() (render.Figure, error) {
		return render.PostTrends(signals.DailyCounts(r.c))
	})
	subs, err := signals.TopSubreddits(r.c, 10)
	r.signal("subreddits", err)
	r.chart(g, TopSubredditsFile, func() (render.Figure, error) { return render.TopSubreddits(subs) })

	authors, err := signals.TopAuthors(r.c, cfg.Rankings.Authors)
	r.signal("authors", err)
	r.chart(g, TopAuthorsFile, func() (render.Figure, error) { return render.TopAuthors(authors) })

	graph, err := signals.CoPostGraph(r.c, cfg.Graphs.MinSharedURLs)
	r.signal("copost_graph", err)
	r.chart(g, AuthorNetworkFile, func() (render.Figure, error) {
		return render.AuthorNetwork(graph, cfg.Graphs.NetworkNodes)
	})
}

// keyword writes the keyword-scoped charts and summary.
func (r *run) keyword(g *errgroup.Group, kw string, sent signals.Sentiment) {
	mentions, err := signals.KeywordByCommunity(r.c, kw)
	r.signal("keyword_by_community", err)
	r.chart(g, KeywordMentionsFile, func() (render.Figure, error) { return render.KeywordMentions(mentions, kw) })

	weekly, err := signals.WeeklySentiment(r.c, sent, kw)
	r.signal("weekly_sentiment", err)
	r.chart(g, KeywordSentimentFile, func() (render.Figure, error) { return render.WeeklySentiment(weekly, kw) })

	links, _, err := signals.LinkSentiment(r.c, sent, kw)
	r.signal("link_sentiment", err)
	r.chart(g, LinkSentimentFile, func() (render.Figure, error) { return render.LinkSentiment(links, kw) })

	if r.p.generator != nil {
		text, err := r.p.generator.SummarizeKeyword(r.ctx, r.c, kw, 10)
		if err != nil {
			r.record(err)
		}
		r.write(KeywordSummaryFile, text)
	}
}

func (r *run) narrative(report insight.Report) string {
	if r.p.generator == nil {
		r.record(&narrative.GenerationError{Err: errors.New("no text generator configured")})
		r.p.metrics.ObserveNarrativeFailure()
		return narrative.FailureText
	}
	start := time.Now()
	text, err := r.p.generator.Generate(r.ctx, narrative.FromReport(report))
	if err != nil {
		r.record(err)
		r.p.metrics.ObserveNarrativeFailure()
		r.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindNarrativeComplete, Comp: "narrative",
			Dur: time.Since(start), Err: err.Error()})
		return text
	}
	r.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindNarrativeComplete, Comp: "narrative",
		Dur: time.Since(start), Count: len(text)})
	return text
}

// chart renders one figure in the group. Failures degrade to a log line.
func (r *run) chart(g *errgroup.Group, name string, build func() (render.Figure, error)) {
	g.Go(func() error {
		f, err := build()
		if err == nil {
			err = render.WriteHTML(filepath.Join(r.p.cfg.Output, name), f)
		}
		if err != nil {
			logging.Warn("Plot skipped", "artifact", name, "err", err)
			r.record(fmt.Errorf("plot %s: %w", name, err))
			return nil
		}
		r.artifact(name)
		return nil
	})
}

func (r *run) write(name, content string) {
	path := filepath.Join(r.p.cfg.Output, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		logging.Error("Artifact write failed", "artifact", name, "err", err)
		r.record(fmt.Errorf("write %s: %w", name, err))
		return
	}
	r.artifact(name)
}

func (r *run) artifact(name string) {
	r.mu.Lock()
	r.res.Artifacts = append(r.res.Artifacts, name)
	r.mu.Unlock()
	r.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindArtifactWrite, Comp: "pipeline", Path: name})
}

// signal records one extractor outcome.
func (r *run) signal(name string, err error) {
	r.p.metrics.ObserveSignal(name, err)
	r.events.Signal(name, err)
	if err != nil {
		r.record(err)
	}
}

func (r *run) record(err error) {
	r.mu.Lock()
	r.res.Errors = append(r.res.Errors, err)
	r.mu.Unlock()
}
