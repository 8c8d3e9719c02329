package alerts112

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// placeName is up to four capitalized words on one line, optionally behind a
// Greek or English article and a hashtag.
const placeName = `(?:(?:του|της|των|τον|την|το|τις|τα|the)[ \t]+)?#?(\p{Lu}[\p{L}'_-]*(?:[ \t]+\p{Lu}[\p{L}'_-]*){0,3})`

var (
	areaPattern = regexp.MustCompile(
		`(?:(?i:περιοχ[ήηέε][ςσ]?)|(?i:in the areas? of)|(?i:area of)|(?i:towards)|(?i:προς))[ \t]+` + placeName)
	// continuation after an area match: "Κερατέα, Λαύριο και Σαρωνίδα"
	listPattern = regexp.MustCompile(`^(?:[ \t]*,[ \t]*|[ \t]+(?:και|and|&)[ \t]+)` + placeName)
)

// Folded, space-free hashtags that never name a place.
var genericTags = map[string]bool{
	"112": true, "112greece": true, "πυρκαγια": true, "πυρκαγιεσ": true, "φωτια": true,
	"wildfire": true, "wildfires": true, "fire": true, "forestfire": true, "greece": true,
	"ελλαδα": true, "εκκενωση": true, "evacuation": true, "evacuate": true,
	"πολιτικηπροστασια": true, "civilprotection": true, "μενουμεσπιτι": true,
	"stayhome": true, "stayathome": true, "καυσωνασ": true, "heatwave": true,
	"πλημμυρα": true, "flood": true, "σεισμοσ": true, "earthquake": true,
	"καιροσ": true, "weather": true, "alert": true, "warning": true,
	"προειδοποιηση": true, "ενημερωση": true, "update": true, "κινδυνοσ": true,
	"emergency": true, "πυροσβεστικη": true, "firefighters": true,
}

// ExtractLocations returns the place names a message mentions, from "area
// of" / "περιοχή" / "προς" phrases first and hashtags second, de-duplicated
// accent-insensitively. A candidate that is a word prefix of one already seen
// (or the other way round) is dropped.
func ExtractLocations(text string) []string {
	var names []string
	seen := make([]string, 0, 4)

	add := func(name string) {
		name = domain.CleanText(strings.ReplaceAll(name, "_", " "))
		name = strings.TrimRight(name, "-'")
		if name == "" || isGeneric(name) {
			return
		}
		f := domain.Fold(name)
		for _, s := range seen {
			if s == f || strings.HasPrefix(s, f+" ") || strings.HasPrefix(f, s+" ") {
				return
			}
		}
		seen = append(seen, f)
		names = append(names, name)
	}

	for _, m := range areaPattern.FindAllStringSubmatchIndex(text, -1) {
		add(text[m[2]:m[3]])
		rest := text[m[1]:]
		for {
			lm := listPattern.FindStringSubmatchIndex(rest)
			if lm == nil {
				break
			}
			add(rest[lm[2]:lm[3]])
			rest = rest[lm[1]:]
		}
	}
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return names
}

func isGeneric(name string) bool {
	f := strings.ReplaceAll(domain.Fold(name), " ", "")
	if genericTags[f] {
		return true
	}
	return strings.IndexFunc(f, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}

// SplitLanguages separates the Greek and English variants of a bilingual
// message line by line, by dominant script. Hashtags and links do not count
// toward a line's script; lines with no letters stay with the previous line.
func SplitLanguages(lines []string) (greek, english string) {
	var el, en []string
	current := &el
	for _, line := range lines {
		g, l := scriptCounts(line)
		switch {
		case g > l:
			current = &el
		case l > g:
			current = &en
		}
		*current = append(*current, line)
	}
	return strings.Join(el, "\n"), strings.Join(en, "\n")
}

func scriptCounts(line string) (greek, latin int) {
	for _, word := range strings.Fields(line) {
		if strings.HasPrefix(word, "#") || strings.HasPrefix(word, "@") || strings.Contains(word, "://") {
			continue
		}
		for _, r := range word {
			switch {
			case unicode.Is(unicode.Greek, r):
				greek++
			case unicode.Is(unicode.Latin, r):
				latin++
			}
		}
	}
	return greek, latin
}
