package fireservice

import (
	"strings"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

type field int

const (
	fieldUnknown field = iota
	fieldStatus
	fieldCategory
	fieldUnit
	fieldRegion
	fieldMunicipality
	fieldLocation
	fieldUpdated
	fieldStarted
	fieldLat
	fieldLon
)

// labelRules are checked in order; the first stem that matches wins. Stems
// are folded (see domain.Fold). A single-word stem matches any label word it
// prefixes; a multi-word stem must appear verbatim.
var labelRules = []struct {
	field field
	stems []string
}{
	{fieldStatus, []string{"κατασταση", "status", "state"}},
	{fieldCategory, []string{"κατηγορια", "ειδοσ", "συμβαν", "category", "type"}},
	{fieldUnit, []string{"περιφερειακη ενοτητα", "π.ε.", "νομοσ", "regional unit", "prefecture"}},
	{fieldRegion, []string{"περιφερεια", "region"}},
	{fieldMunicipality, []string{"δημοσ", "δημοτικη", "municipality"}},
	{fieldLocation, []string{"περιοχη", "τοποθεσια", "διευθυνση", "θεση", "location", "area", "address", "place"}},
	{fieldUpdated, []string{"ενημερωσ", "τελευται", "updated", "last update", "modified"}},
	{fieldStarted, []string{"εναρξ", "εκδηλωσ", "εκκινησ", "ημερομηνια", "start", "date"}},
	{fieldLat, []string{"γεωγραφικο πλατοσ", "πλατοσ", "latitude", "lat"}},
	{fieldLon, []string{"γεωγραφικο μηκοσ", "μηκοσ", "longitude", "lon", "lng"}},
}

// labelField maps a header or label text onto a record field.
func labelField(label string) field {
	f := strings.TrimRight(domain.Fold(label), ":. ")
	if f == "" {
		return fieldUnknown
	}
	words := strings.FieldsFunc(f, func(r rune) bool {
		return r == ' ' || r == '/' || r == '(' || r == ')' || r == '-'
	})
	for _, rule := range labelRules {
		for _, stem := range rule.stems {
			if matchStem(f, words, stem) {
				return rule.field
			}
		}
	}
	return fieldUnknown
}

func matchStem(label string, words []string, stem string) bool {
	if strings.Contains(stem, " ") || strings.Contains(stem, ".") {
		return strings.Contains(label, stem)
	}
	for _, w := range words {
		if strings.HasPrefix(w, stem) {
			return true
		}
	}
	return false
}
