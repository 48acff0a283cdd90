// Package narrative turns aggregated signals into a prompt and delegates the
// prose to an external text generator. Generated text is returned verbatim
// and never cached.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/pulse/internal/brain"
	"github.com/abelbrown/pulse/internal/insight"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

// FailureText is returned in place of a narrative that could not be
// generated.
const FailureText = "Error generating narrative."

// ErrNoText is wrapped when the generator answers with no content.
var ErrNoText = errors.New("generator returned no text")

// GenerationError reports a failed call to the text generator.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("narrative generation: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Bundle is everything the narrative prompt embeds.
type Bundle struct {
	First, Last   time.Time
	TopSubreddits []string
	Keywords      []string
	TopDomains    []string
	Sentences     []string
}

// FromReport builds a Bundle from an insight report, using its first three
// topic words as keywords.
func FromReport(r insight.Report) Bundle {
	return Bundle{
		First:         r.First,
		Last:          r.Last,
		TopSubreddits: r.TopSubreddits,
		Keywords:      r.Keywords(3),
		TopDomains:    r.TopDomains,
		Sentences:     r.Sentences(),
	}
}

// Generator writes narratives with a brain.Provider.
type Generator struct {
	provider   brain.Provider
	paragraphs string
	maxTokens  int
}

// NewGenerator returns a Generator. paragraphs is the requested length, such
// as "4-5".
func NewGenerator(p brain.Provider, paragraphs string, maxTokens int) *Generator {
	if paragraphs == "" {
		paragraphs = "4-5"
	}
	return &Generator{provider: p, paragraphs: paragraphs, maxTokens: maxTokens}
}

// Prompt renders the narrative prompt for b.
func (g *Generator) Prompt(b Bundle) string {
	var sb strings.Builder
	sb.WriteString("You are a digital culture analyst. Analyze the following Reddit data and produce a compelling narrative.\n\n")
	fmt.Fprintf(&sb, "**Timeframe:** %s – %s\n", b.First.Format("2006-01-02"), b.Last.Format("2006-01-02"))
	fmt.Fprintf(&sb, "**Top Subreddits:** %s\n", strings.Join(b.TopSubreddits, ", "))
	fmt.Fprintf(&sb, "**Top Keywords:** %s\n", strings.Join(b.Keywords, ", "))
	fmt.Fprintf(&sb, "**Top Domains:** %s\n\n", strings.Join(b.TopDomains, ", "))
	sb.WriteString("**Dataset Insight Summary:**\n")
	for _, s := range b.Sentences {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n**Instructions:**\n")
	fmt.Fprintf(&sb, "Write a story in %s paragraphs:\n", g.paragraphs)
	sb.WriteString("- Explain the themes driving the discourse\n")
	sb.WriteString("- Identify patterns of trust/distrust in external sources\n")
	sb.WriteString("- Mention subreddit influence if relevant\n")
	sb.WriteString("- Highlight tone shifts or controversy\n")
	sb.WriteString("- End with a reflective insight on what this tells us about Reddit culture\n")
	return sb.String()
}

// Generate returns the narrative for b. On failure it returns FailureText
// and a *GenerationError; the text is always safe to show.
func (g *Generator) Generate(ctx context.Context, b Bundle) (string, error) {
	text, err := g.complete(ctx, g.Prompt(b))
	if err != nil {
		logging.Error("Narrative generation failed", "err", err)
		return FailureText, err
	}
	return text, nil
}

// Analysis is the signal set behind an on-demand summary.
type Analysis struct {
	Topics        []tfidf.Term
	Authors       []signals.Count
	Subreddits    []signals.Count
	Sentiment     signals.Distribution
	Flashpoints   []signals.DayCount
	Domains       []signals.Count
	Controversial []signals.ControversialPost
	Insights      []string
}

// AnalysisPrompt renders the on-demand summary prompt for a.
func (g *Generator) AnalysisPrompt(a Analysis) string {
	var sb strings.Builder
	sb.WriteString("You are a Reddit analyst generating a data storytelling narrative based on these analysis results.\n\n")

	topics := make([]string, len(a.Topics))
	for i, t := range a.Topics {
		topics[i] = fmt.Sprintf("%s (%.2f)", t.Word, t.Score)
	}
	fmt.Fprintf(&sb, "Topics: %s\n", strings.Join(topics, ", "))
	fmt.Fprintf(&sb, "Sentiments: positive %d%%, neutral %d%%, negative %d%%\n",
		a.Sentiment.Positive, a.Sentiment.Neutral, a.Sentiment.Negative)

	days := make([]string, len(a.Flashpoints))
	for i, d := range a.Flashpoints {
		days[i] = fmt.Sprintf("%s: %d posts", d.Day.Format("2006-01-02"), d.Count)
	}
	fmt.Fprintf(&sb, "Flashpoints: %s\n", strings.Join(days, ", "))
	fmt.Fprintf(&sb, "Subreddit Network: %s\n", countList(a.Subreddits))
	fmt.Fprintf(&sb, "Author Influence: %s\n", countList(a.Authors))
	fmt.Fprintf(&sb, "Domains: %s\n", countList(a.Domains))

	posts := make([]string, len(a.Controversial))
	for i, p := range a.Controversial {
		posts[i] = fmt.Sprintf("'%s' by %s (score %d)", p.Title, p.Author, p.Score)
	}
	fmt.Fprintf(&sb, "Controversial Posts: %s\n", strings.Join(posts, "; "))

	if len(a.Insights) > 0 {
		sb.WriteString("Observations:\n")
		for _, s := range a.Insights {
			sb.WriteString("- " + s + "\n")
		}
	}
	sb.WriteString("\noutput: Generate a proper description of the information in a formal, descriptive tone.\n")
	return sb.String()
}

func countList(counts []signals.Count) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s (%d)", c.Key, c.Count)
	}
	return strings.Join(parts, ", ")
}

// Analyze returns the on-demand summary for a, trimmed of surrounding
// whitespace. Failures behave as in Generate.
func (g *Generator) Analyze(ctx context.Context, a Analysis) (string, error) {
	text, err := g.complete(ctx, g.AnalysisPrompt(a))
	if err != nil {
		logging.Error("Analysis summary failed", "err", err)
		return FailureText, err
	}
	return strings.TrimSpace(text), nil
}

// SummarizeKeyword asks for the sentiment and main ideas of up to maxPosts
// posts mentioning keyword. It returns "" when generation fails.
func (g *Generator) SummarizeKeyword(ctx context.Context, c *model.Collection, keyword string, maxPosts int) (string, error) {
	texts := signals.KeywordTexts(c, keyword, maxPosts)
	prompt := fmt.Sprintf("Perform sentiment analysis of the posts that will be given to you and explain the posts, while\n"+
		"summarizing the main ideas and tone from these Reddit posts about '%s':%s\n", keyword, strings.Join(texts, "\n"))

	text, err := g.complete(ctx, prompt)
	if err != nil {
		logging.Warn("Keyword summary failed", "keyword", keyword, "err", err)
		return "", err
	}
	return text, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if g.provider == nil {
		return "", &GenerationError{Err: brain.ErrNoProvider}
	}
	resp, err := g.provider.Generate(ctx, brain.Request{UserPrompt: prompt, MaxTokens: g.maxTokens})
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if resp.Content == "" {
		return "", &GenerationError{Err: ErrNoText}
	}
	return resp.Content, nil
}
