package fireservice

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/fire-watch-service/internal/adapter/scrape"
	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

const sourceName = "incidents"

// ErrNoListing means the page had neither a recognizable incident table nor
// incident cards. The page layout changed or an error page was served; the
// cycle must not publish an empty snapshot on that basis.
var ErrNoListing = errors.New("no incident listing found in page")

// cardSelector matches repeated card-style incident blocks.
const cardSelector = ".incident, .event, .card, .views-row, .list-group-item, article"

// record is the raw text of one block keyed by field.
type record map[field]string

func (r record) set(f field, v string) {
	v = domain.CleanText(v)
	if f == fieldUnknown || v == "" {
		return
	}
	if _, ok := r[f]; !ok {
		r[f] = v
	}
}

// ParseIncidents extracts incidents from a listing page. Blocks that lack a
// category, a status or every location field are reported as ParseErrors and
// skipped. Times without a zone are read in loc.
func ParseIncidents(r io.Reader, loc *time.Location) ([]domain.Incident, []*domain.ParseError, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read listing: %w", err)
	}

	blocks, found := tableRecords(doc)
	if !found {
		blocks, found = cardRecords(doc)
	}
	if !found {
		return nil, nil, ErrNoListing
	}

	var (
		incidents []domain.Incident
		skipped   []*domain.ParseError
	)
	for i, rec := range blocks {
		inc, perr := buildIncident(rec, i, loc)
		if perr != nil {
			skipped = append(skipped, perr)
			continue
		}
		incidents = append(incidents, inc)
	}
	return incidents, skipped, nil
}

// tableRecords reads every table whose header row names at least two known
// fields. Tables without a category column inherit it from their caption or
// the nearest preceding heading.
func tableRecords(doc *goquery.Document) ([]record, bool) {
	var (
		out   []record
		found bool
	)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		header := table.Find("thead tr").First()
		if header.Length() == 0 {
			header = table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
				return tr.Find("th").Length() > 0
			}).First()
		}
		if header.Length() == 0 {
			header = table.Find("tr").First()
		}
		if header.Length() == 0 {
			return
		}

		var columns []field
		known := 0
		header.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			f := labelField(cell.Text())
			if f != fieldUnknown {
				known++
			}
			columns = append(columns, f)
		})
		if known < 2 {
			return
		}
		found = true

		sectionCategory := tableCaption(table)
		headerNode := header.Nodes[0]

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if tr.Nodes[0] == headerNode || tr.Find("td").Length() == 0 {
				return
			}
			rec := record{}
			tr.Find("td").Each(func(i int, td *goquery.Selection) {
				// Responsive tables repeat the header in data-label.
				if label, ok := td.Attr("data-label"); ok {
					if f := labelField(label); f != fieldUnknown {
						rec.set(f, td.Text())
						return
					}
				}
				if i < len(columns) {
					rec.set(columns[i], td.Text())
				}
			})
			rowCoordinates(tr, rec)
			if _, ok := rec[fieldCategory]; !ok && sectionCategory != "" {
				rec.set(fieldCategory, sectionCategory)
			}
			out = append(out, rec)
		})
	})
	return out, found
}

// tableCaption returns the category named by the table's caption or the
// closest heading before it, or "".
func tableCaption(table *goquery.Selection) string {
	candidates := []string{table.Find("caption").First().Text()}
	s := table
	for depth := 0; depth < 4 && s.Length() > 0; depth++ {
		if h := s.PrevAllFiltered("h1, h2, h3, h4, h5").First(); h.Length() > 0 {
			candidates = append(candidates, h.Text())
			break
		}
		s = s.Parent()
	}
	for _, c := range candidates {
		if _, ok := domain.ParseCategory(c); ok {
			return c
		}
	}
	return ""
}

// cardRecords reads innermost card blocks that expose at least two labelled
// fields, from dt/dd pairs or "Label: value" lines.
func cardRecords(doc *goquery.Document) ([]record, bool) {
	var out []record
	scrape.Innermost(doc.Find(cardSelector), cardSelector).Each(func(_ int, card *goquery.Selection) {
		rec := record{}
		card.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			rec.set(labelField(dt.Text()), dt.NextFiltered("dd").Text())
		})
		card.Find("[data-field]").Each(func(_ int, el *goquery.Selection) {
			name, _ := el.Attr("data-field")
			rec.set(labelField(name), el.Text())
		})
		for _, line := range scrape.TextLines(card) {
			label, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			rec.set(labelField(label), value)
		}
		rowCoordinates(card, rec)
		if len(rec) >= 2 {
			out = append(out, rec)
		}
	})
	return out, len(out) > 0
}

// rowCoordinates picks up coordinates carried as data attributes.
func rowCoordinates(s *goquery.Selection, rec record) {
	for _, attr := range []string{"data-lat", "data-latitude"} {
		if v, ok := s.Attr(attr); ok {
			rec.set(fieldLat, v)
		}
	}
	for _, attr := range []string{"data-lng", "data-lon", "data-longitude"} {
		if v, ok := s.Attr(attr); ok {
			rec.set(fieldLon, v)
		}
	}
}

func buildIncident(rec record, block int, loc *time.Location) (domain.Incident, *domain.ParseError) {
	fail := func(reason string) (domain.Incident, *domain.ParseError) {
		return domain.Incident{}, &domain.ParseError{Source: sourceName, Block: block, Reason: reason}
	}

	category, ok := domain.ParseCategory(rec[fieldCategory])
	if !ok {
		return fail(fmt.Sprintf("missing or unknown category %q", rec[fieldCategory]))
	}
	status, ok := domain.ParseStatus(rec[fieldStatus])
	if !ok {
		return fail(fmt.Sprintf("missing or unknown status %q", rec[fieldStatus]))
	}

	region := rec[fieldRegion]
	if region == "" {
		region = rec[fieldUnit]
	}
	municipality := strings.TrimSpace(trimPrefixFold(rec[fieldMunicipality], "δημοσ", "δ."))
	location := rec[fieldLocation]
	if region == "" && municipality == "" && location == "" {
		return fail("no location field")
	}

	inc := domain.Incident{
		Category:     category,
		Status:       status,
		Region:       region,
		Municipality: municipality,
		Location:     location,
		StartedAt:    parseTime(rec[fieldStarted], loc),
		UpdatedAt:    parseTime(rec[fieldUpdated], loc),
	}
	inc.ID = domain.IncidentID(category, region, municipality, location, inc.StartedAt)

	if rec[fieldLat] != "" && rec[fieldLon] != "" {
		lat, errLat := domain.ParseCoordinate(rec[fieldLat], 90)
		lon, errLon := domain.ParseCoordinate(rec[fieldLon], 180)
		if c := (domain.Coordinates{Lat: lat, Lon: lon}); errLat == nil && errLon == nil && c.InGreece() {
			inc.Coordinates = &c
		}
	}
	return inc, nil
}

// trimPrefixFold drops a leading administrative word ("Δήμος", "Δ.")
// regardless of accents and case.
func trimPrefixFold(s string, prefixes ...string) string {
	words := strings.Fields(s)
	if len(words) < 2 {
		return s
	}
	first := domain.Fold(words[0])
	for _, p := range prefixes {
		if first == p {
			return strings.Join(words[1:], " ")
		}
	}
	return s
}

var timeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02-01-2006 15:04",
	"02.01.2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2006-01-02",
}

// parseTime reads the common listing layouts in loc. RFC 3339 values keep
// their own offset. Unparseable input yields the zero time.
func parseTime(s string, loc *time.Location) time.Time {
	s = domain.CleanText(strings.NewReplacer(",", " ", "ώρα", " ", "Ώρα", " ").Replace(s))
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
