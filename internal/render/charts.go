package render

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/abelbrown/pulse/internal/signals"
)

const dateFormat = "2006-01-02"

// PostTrends draws posts per day as a line.
func PostTrends(days []signals.DayCount) (Figure, error) {
	if len(days) == 0 {
		return Figure{}, ErrNoData
	}
	xys := make(plotter.XYs, len(days))
	for i, d := range days {
		xys[i] = plotter.XY{X: float64(d.Day.Unix()), Y: float64(d.Count)}
	}

	p := newPlot("Posts Over Time", "Date", "Posts")
	p.X.Tick.Marker = plot.TimeTicks{Format: dateFormat}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return Figure{}, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line, plotter.NewGrid())

	w, h := inches(10, 4)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Post Trends"}, nil
}

// TopSubreddits draws subreddit post counts as vertical bars.
func TopSubreddits(counts []signals.Count) (Figure, error) {
	p, err := countBars(counts, fmt.Sprintf("Top %d Subreddits by Post Count", len(counts)), "Subreddit", "Posts", false)
	if err != nil {
		return Figure{}, err
	}
	w, h := inches(10, 4)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Top Subreddits"}, nil
}

// TopAuthors draws author post counts as horizontal bars, busiest on top.
func TopAuthors(counts []signals.Count) (Figure, error) {
	// horizontal bars stack bottom-up
	rev := make([]signals.Count, len(counts))
	for i, c := range counts {
		rev[len(counts)-1-i] = c
	}
	p, err := countBars(rev, fmt.Sprintf("Top %d Authors by Post Count", len(counts)), "Posts", "Author", true)
	if err != nil {
		return Figure{}, err
	}
	w, h := inches(8, 6)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Top Authors"}, nil
}

func countBars(counts []signals.Count, title, xLabel, yLabel string, horizontal bool) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}
	vals := make(plotter.Values, len(counts))
	for i, c := range counts {
		vals[i] = float64(c.Count)
	}
	p := newPlot(title, xLabel, yLabel)
	bars, err := plotter.NewBarChart(vals, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = horizontal
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)

	if horizontal {
		p.NominalY(signals.Keys(counts)...)
	} else {
		p.NominalX(signals.Keys(counts)...)
	}
	return p, nil
}

// AuthorNetwork draws the co-posting graph restricted to the nodes most
// connected authors, placed on a circle. Edge width follows weight.
func AuthorNetwork(g *signals.AuthorGraph, nodes int) (Figure, error) {
	if g == nil || g.NodeCount() == 0 {
		return Figure{}, ErrNoData
	}
	authors := g.TopByDegree(nodes)
	pos := circularLayout(authors)

	p := newPlot("Author Co-Posting Network", "", "")
	p.HideAxes()

	for _, e := range g.Subgraph(authors) {
		edge, err := plotter.NewLine(plotter.XYs{pos[e.A], pos[e.B]})
		if err != nil {
			return Figure{}, err
		}
		edge.LineStyle.Color = plotutil.Color(6)
		edge.LineStyle.Width = vg.Points(0.5 + 0.5*math.Min(e.Weight, 6))
		p.Add(edge)
	}

	xys := make(plotter.XYs, len(authors))
	for i, a := range authors {
		xys[i] = pos[a]
	}
	dots, err := plotter.NewScatter(xys)
	if err != nil {
		return Figure{}, err
	}
	dots.GlyphStyle.Shape = draw.CircleGlyph{}
	dots.GlyphStyle.Radius = vg.Points(4)
	dots.GlyphStyle.Color = plotutil.Color(0)

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: authors})
	if err != nil {
		return Figure{}, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(7)
	}
	p.Add(dots, labels)

	// leave room for labels on the right edge
	p.X.Min, p.X.Max = -1.2, 1.4
	p.Y.Min, p.Y.Max = -1.2, 1.2

	w, h := inches(10, 10)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Author Network"}, nil
}

// circularLayout spaces names evenly on the unit circle, first at 12 o'clock.
func circularLayout(names []string) map[string]plotter.XY {
	pos := make(map[string]plotter.XY, len(names))
	for i, n := range names {
		theta := math.Pi/2 - 2*math.Pi*float64(i)/float64(len(names))
		pos[n] = plotter.XY{X: math.Cos(theta), Y: math.Sin(theta)}
	}
	return pos
}

// KeywordMentions draws one line per subreddit from a date x subreddit
// matrix as produced by signals.KeywordByCommunity.
func KeywordMentions(m signals.Matrix, keyword string) (Figure, error) {
	if m.Empty() {
		return Figure{}, ErrNoData
	}
	p := newPlot(fmt.Sprintf("Mentions of '%s' Across Subreddits Over Time", keyword), "Date", "Mentions")
	p.Legend.Top = true
	p.NominalX(m.Rows...)

	for j, sub := range m.Cols {
		xys := make(plotter.XYs, len(m.Rows))
		for i := range m.Rows {
			xys[i] = plotter.XY{X: float64(i), Y: float64(m.Counts[i][j])}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return Figure{}, err
		}
		line.LineStyle.Color = plotutil.Color(j)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(sub, line)
	}

	w, h := inches(12, 5)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Topic rise across communities"}, nil
}

// WeeklySentiment draws the mean weekly sentiment of keyword posts.
func WeeklySentiment(series []signals.WeekValue, keyword string) (Figure, error) {
	if len(series) == 0 {
		return Figure{}, ErrNoData
	}
	xys := make(plotter.XYs, len(series))
	for i, wv := range series {
		xys[i] = plotter.XY{X: float64(wv.Week.Unix()), Y: wv.Value}
	}

	p := newPlot(fmt.Sprintf("Sentiment Over Time for '%s'", keyword), "Week", "Average Sentiment")
	p.X.Tick.Marker = plot.TimeTicks{Format: dateFormat}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return Figure{}, err
	}
	p.Add(line, points, plotter.NewGrid())

	w, h := inches(10, 4)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Sentiment shift around keyword"}, nil
}

// LinkSentiment draws mean sentiment per subreddit for posts linking to
// keyword.
func LinkSentiment(means []signals.Value, keyword string) (Figure, error) {
	if len(means) == 0 {
		return Figure{}, ErrNoData
	}
	vals := make(plotter.Values, len(means))
	names := make([]string, len(means))
	for i, v := range means {
		vals[i] = v.Value
		names[i] = v.Key
	}

	p := newPlot(fmt.Sprintf("Sentiment by Subreddit for link: '%s'", keyword), "Subreddit", "Average Sentiment")
	bars, err := plotter.NewBarChart(vals, vg.Points(18))
	if err != nil {
		return Figure{}, err
	}
	bars.Color = plotutil.Color(1)
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)

	w, h := inches(10, 4)
	return Figure{Plot: p, Width: w, Height: h, Alt: "Sentiment by subreddit for link"}, nil
}
