// Package scrape holds DOM helpers shared by the HTML scrapers.
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

var lineBreakTags = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "header": true, "footer": true, "blockquote": true,
}

// TextLines renders a selection's text with line breaks at block elements
// and <br>, skipping scripts and styles. Lines are whitespace-collapsed and
// empty lines dropped.
func TextLines(s *goquery.Selection) []string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && lineBreakTags[n.Data] {
			b.WriteByte('\n')
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}

	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l = domain.CleanText(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Innermost filters sel down to elements that contain no other element
// matching selector.
func Innermost(sel *goquery.Selection, selector string) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(selector).Length() == 0
	})
}
