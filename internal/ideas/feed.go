package ideas

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// FeedSource turns entries of an RSS/Atom feed into idea bank entries, so a
// workflow can draw topical ideas instead of the built-in rotation.
type FeedSource struct {
	URL      string
	MaxItems int
	client   *http.Client
}

// NewFeedSource creates a FeedSource for the given feed URL. maxItems <= 0
// means all items.
func NewFeedSource(url string, maxItems int) *FeedSource {
	return &FeedSource{
		URL:      url,
		MaxItems: maxItems,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads and parses the feed, converting each item to an Idea.
// Item summaries frequently carry HTML; tags are stripped before use.
func (f *FeedSource) Fetch(ctx context.Context) ([]Idea, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: status %d", f.URL, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.URL, err)
	}

	var out []Idea
	for _, item := range feed.Items {
		if f.MaxItems > 0 && len(out) >= f.MaxItems {
			break
		}
		out = append(out, Idea{
			Slug:     slugify(item.Title),
			Language: feed.Language,
			Hook:     item.Title,
			Action:   StripHTML(firstNonEmpty(item.Description, item.Content)),
			Tags:     item.Categories,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("feed %s has no items", f.URL)
	}
	return out, nil
}

// BankFromFeed fetches the feed and wraps the result in a Bank.
func BankFromFeed(ctx context.Context, url string, maxItems int) (*Bank, error) {
	entries, err := NewFeedSource(url, maxItems).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return NewBank(entries...), nil
}

// StripHTML reduces an HTML fragment to its text content.
func StripHTML(fragment string) string {
	if fragment == "" || !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, slug)
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" {
		slug = "feed-item"
	}
	return slug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
