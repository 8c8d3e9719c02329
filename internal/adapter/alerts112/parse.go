package alerts112

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/fire-watch-service/internal/adapter/scrape"
	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

const (
	sourceName   = "warnings"
	itemSelector = `article, .timeline-item, [data-testid="tweet"]`
	textSelector = `[data-testid="tweetText"], .tweet-content, .timeline-item-content, .message-text`
)

// ErrNoFeed means the rendered page holds no message items at all, which is
// what a login wall or a broken render looks like.
var ErrNoFeed = errors.New("no message items found")

var statusPath = regexp.MustCompile(`/status(?:es)?/(\d+)`)

// Date layouts seen in feed mirrors' title attributes.
var titleLayouts = []string{
	"Jan 2, 2006 · 3:04 PM MST",
	"Jan 2, 2006 3:04 PM MST",
	"2 Jan 2006 15:04:05 MST",
}

var postIDAttrs = []string{"data-post-id", "data-tweet-id", "data-id"}

// ParseWarnings extracts warnings from a rendered feed page. Items are
// returned in page order with location names but no administrative context
// or coordinates. Items that cannot be read are reported as ParseErrors.
func ParseWarnings(page string, base *url.URL) ([]domain.Warning, []*domain.ParseError, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, nil, fmt.Errorf("read html: %w", err)
	}

	items := doc.Find(itemSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(itemSelector).Length() == 0
	})
	if items.Length() == 0 {
		return nil, nil, ErrNoFeed
	}

	var (
		warnings []domain.Warning
		skipped  []*domain.ParseError
	)
	items.Each(func(i int, item *goquery.Selection) {
		w, reason := parseItem(item, base)
		if reason != "" {
			skipped = append(skipped, &domain.ParseError{Source: sourceName, Block: i + 1, Reason: reason})
			return
		}
		warnings = append(warnings, w)
	})
	return warnings, skipped, nil
}

func parseItem(item *goquery.Selection, base *url.URL) (domain.Warning, string) {
	body := item.Find(textSelector).First()
	if body.Length() == 0 {
		body = item
	}
	greek, english := SplitLanguages(scrape.TextLines(body))
	if greek == "" && english == "" {
		return domain.Warning{}, "empty message"
	}

	published := publishedAt(item)
	if published.IsZero() {
		return domain.Warning{}, "missing publish time"
	}

	postID, link := postReference(item, base)

	names := ExtractLocations(greek)
	if len(names) == 0 {
		names = ExtractLocations(english)
	}
	var locations []domain.WarningLocation
	for _, name := range names {
		locations = append(locations, domain.WarningLocation{Name: name})
	}

	return domain.Warning{
		ID:          domain.WarningID(postID, greek+"\n"+english, published),
		Type:        domain.ClassifyWarning(greek + "\n" + english),
		Message:     greek,
		MessageEN:   english,
		PublishedAt: published.UTC(),
		SourceURL:   link,
		Locations:   locations,
	}, ""
}

func publishedAt(item *goquery.Selection) time.Time {
	if dt, ok := item.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dt)); err == nil {
			return t
		}
	}
	if title, ok := item.Find(".tweet-date a[title], a[title].tweet-date").First().Attr("title"); ok {
		for _, layout := range titleLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(title)); err == nil {
				return t
			}
		}
	}
	if raw, ok := item.Attr("data-time"); ok {
		if sec, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && sec > 0 {
			return time.Unix(sec, 0)
		}
	}
	return time.Time{}
}

// postReference returns the upstream post ID and an absolute link to the post.
func postReference(item *goquery.Selection, base *url.URL) (id, link string) {
	for _, attr := range postIDAttrs {
		if v, ok := item.Attr(attr); ok && strings.TrimSpace(v) != "" {
			id = strings.TrimSpace(v)
			break
		}
	}

	item.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		m := statusPath.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		if id == "" {
			id = m[1]
		}
		link = absolute(base, href)
		return false
	})
	return id, link
}

func absolute(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	return u.String()
}
