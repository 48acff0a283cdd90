package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/pulse/internal/model"
)

// convertEntry maps one feed entry onto a post. subreddit is used when the
// entry carries no category.
func convertEntry(item *gofeed.Item, subreddit string) model.Post {
	p := model.Post{
		ID:        strings.TrimPrefix(item.GUID, "t3_"),
		Subreddit: subreddit,
		Title:     item.Title,
		URL:       item.Link,
	}
	if len(item.Categories) > 0 && item.Categories[0] != "" {
		p.Subreddit = item.Categories[0]
	}
	if item.Author != nil {
		p.Author = strings.TrimPrefix(strings.TrimSpace(item.Author.Name), "/u/")
	}

	switch {
	case item.PublishedParsed != nil:
		p.CreatedUTC = model.Float64(float64(item.PublishedParsed.Unix()))
	case item.UpdatedParsed != nil:
		p.CreatedUTC = model.Float64(float64(item.UpdatedParsed.Unix()))
	}

	if u, err := url.Parse(item.Link); err == nil && u.Path != "" {
		p.Permalink = u.Path
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	if link, text, ok := parseBody(body); ok {
		if link != "" {
			p.URL = link
		}
		p.SelfText = text
	}
	if p.ID == "" {
		p.ID = idFromPermalink(p.Permalink)
	}
	return p
}

// parseBody extracts the submitted link and the selftext from the HTML body
// of an entry. The link is the anchor labelled "[link]"; for self posts it
// points back at the thread.
func parseBody(body string) (link, text string, ok bool) {
	if strings.TrimSpace(body) == "" {
		return "", "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", "", false
	}

	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == "[link]" {
			link, _ = a.Attr("href")
			return false
		}
		return true
	})
	text = strings.TrimSpace(doc.Find("div.md").First().Text())
	return link, text, true
}

// idFromPermalink returns the thread id of /r/<sub>/comments/<id>/... paths.
func idFromPermalink(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "comments" {
			return parts[i+1]
		}
	}
	return ""
}
