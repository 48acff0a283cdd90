package signals

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/abelbrown/pulse/internal/model"
)

// Default graph thresholds.
const (
	DefaultMinSubreddits = 2
	DefaultMinSharedURLs = 2
)

// CrossPosting returns the author x subreddit post-count table restricted to
// authors active in at least minSubs distinct subreddits.
func CrossPosting(c *model.Collection, minSubs int) (m Matrix, err error) {
	defer guard("crossposting", &err)

	subsByAuthor := make(map[string]map[string]struct{})
	for _, p := range c.Posts() {
		if p.Author == "" || p.Subreddit == "" {
			continue
		}
		subs, ok := subsByAuthor[p.Author]
		if !ok {
			subs = make(map[string]struct{})
			subsByAuthor[p.Author] = subs
		}
		subs[p.Subreddit] = struct{}{}
	}

	var pairs [][2]string
	for _, p := range c.Posts() {
		if p.Subreddit == "" {
			continue
		}
		if subs, ok := subsByAuthor[p.Author]; ok && len(subs) >= minSubs {
			pairs = append(pairs, [2]string{p.Author, p.Subreddit})
		}
	}
	return crosstab(pairs), nil
}

// DomainsBySubreddit returns the subreddit x domain post-count table. Posts
// without a domain are excluded.
func DomainsBySubreddit(c *model.Collection) (m Matrix, err error) {
	defer guard("domains_by_subreddit", &err)

	var pairs [][2]string
	for _, p := range c.Posts() {
		if p.HasDomain() {
			pairs = append(pairs, [2]string{p.Subreddit, p.Domain})
		}
	}
	return crosstab(pairs), nil
}

// Edge is one weighted co-posting link between two authors, A < B.
type Edge struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Weight float64 `json:"weight"`
}

// AuthorGraph is an undirected weighted graph over authors who shared links.
type AuthorGraph struct {
	g     *simple.WeightedUndirectedGraph
	names []string
	ids   map[string]int64
}

func newAuthorGraph() *AuthorGraph {
	return &AuthorGraph{
		g:   simple.NewWeightedUndirectedGraph(0, 0),
		ids: make(map[string]int64),
	}
}

func (ag *AuthorGraph) node(name string) simple.Node {
	if id, ok := ag.ids[name]; ok {
		return simple.Node(id)
	}
	id := int64(len(ag.names))
	ag.ids[name] = id
	ag.names = append(ag.names, name)
	n := simple.Node(id)
	ag.g.AddNode(n)
	return n
}

// NodeCount returns the number of authors in the graph.
func (ag *AuthorGraph) NodeCount() int {
	return len(ag.names)
}

// Degree returns the number of neighbours of author.
func (ag *AuthorGraph) Degree(author string) int {
	id, ok := ag.ids[author]
	if !ok {
		return 0
	}
	return ag.g.From(id).Len()
}

// Edges returns every edge, sorted by (A, B).
func (ag *AuthorGraph) Edges() []Edge {
	var edges []Edge
	it := ag.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		a, b := ag.names[e.From().ID()], ag.names[e.To().ID()]
		if b < a {
			a, b = b, a
		}
		edges = append(edges, Edge{A: a, B: b, Weight: e.Weight()})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// TopByDegree returns up to n authors by descending degree, ties by name.
func (ag *AuthorGraph) TopByDegree(n int) []string {
	names := append([]string(nil), ag.names...)
	sort.Slice(names, func(i, j int) bool {
		di, dj := ag.Degree(names[i]), ag.Degree(names[j])
		if di != dj {
			return di > dj
		}
		return names[i] < names[j]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}

// Subgraph returns the edges whose endpoints are both in authors.
func (ag *AuthorGraph) Subgraph(authors []string) []Edge {
	keep := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		keep[a] = struct{}{}
	}
	var edges []Edge
	for _, e := range ag.Edges() {
		_, okA := keep[e.A]
		_, okB := keep[e.B]
		if okA && okB {
			edges = append(edges, e)
		}
	}
	return edges
}

// CoPostGraph links every pair of distinct authors that posted the same URL.
// The edge weight counts shared URLs; edges lighter than minShared are
// dropped together with authors left without edges.
func CoPostGraph(c *model.Collection, minShared int) (ag *AuthorGraph, err error) {
	ag = newAuthorGraph()
	defer guard("copost_graph", &err)

	var urls []string
	authorsByURL := make(map[string][]string)
	for _, p := range c.Posts() {
		if p.URL == "" || p.Author == "" {
			continue
		}
		list, seen := authorsByURL[p.URL]
		if !seen {
			urls = append(urls, p.URL)
		}
		if !containsString(list, p.Author) {
			authorsByURL[p.URL] = append(list, p.Author)
		}
	}

	weights := make(map[[2]string]int)
	var order [][2]string
	for _, u := range urls {
		authors := authorsByURL[u]
		for i := 0; i < len(authors); i++ {
			for j := i + 1; j < len(authors); j++ {
				pair := [2]string{authors[i], authors[j]}
				if pair[1] < pair[0] {
					pair[0], pair[1] = pair[1], pair[0]
				}
				if _, ok := weights[pair]; !ok {
					order = append(order, pair)
				}
				weights[pair]++
			}
		}
	}

	for _, pair := range order {
		w := weights[pair]
		if w < minShared {
			continue
		}
		a, b := ag.node(pair[0]), ag.node(pair[1])
		ag.g.SetWeightedEdge(ag.g.NewWeightedEdge(a, b, float64(w)))
	}
	return ag, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
