package fireservice

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

func athens(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)
	return loc
}

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestParseIncidents_Tables(t *testing.T) {
	incidents, skipped, err := ParseIncidents(openFixture(t, "listing_table.html"), athens(t))
	require.NoError(t, err)
	require.Len(t, incidents, 4)

	first := incidents[0]
	assert.Equal(t, domain.CategoryForestFire, first.Category, "category inherited from section heading")
	assert.Equal(t, domain.StatusOngoing, first.Status)
	assert.Equal(t, "ΑΤΤΙΚΗΣ", first.Region)
	assert.Equal(t, "Αχαρνών", first.Municipality, "Δήμος prefix dropped")
	assert.Equal(t, "Βαρυμπόμπη", first.Location)
	assert.Equal(t, time.Date(2026, 8, 11, 10, 5, 0, 0, time.UTC), first.StartedAt.UTC())
	assert.Equal(t, time.Date(2026, 8, 11, 11, 20, 0, 0, time.UTC), first.UpdatedAt.UTC())
	assert.Equal(t, domain.IncidentID(domain.CategoryForestFire, "ΑΤΤΙΚΗΣ", "Αχαρνών", "Βαρυμπόμπη", first.StartedAt), first.ID)
	assert.Nil(t, first.Coordinates)

	second := incidents[1]
	assert.Equal(t, domain.StatusPartialControl, second.Status)
	assert.Empty(t, second.Location, "nbsp-only cell is empty")
	assert.Equal(t, "ΚΑΛΑΜΑΤΑΣ", second.Municipality)
	assert.Equal(t, time.Date(2026, 8, 11, 6, 40, 0, 0, time.UTC), second.StartedAt.UTC())
	assert.True(t, second.UpdatedAt.IsZero())

	urban := incidents[2]
	assert.Equal(t, domain.CategoryUrbanFire, urban.Category)
	assert.Equal(t, domain.StatusFullControl, urban.Status)
	assert.Equal(t, "ΘΕΣΣΑΛΟΝΙΚΗΣ", urban.Region, "regional unit stands in for region")
	assert.Equal(t, "Καλαμαριά", urban.Location)

	assist := incidents[3]
	assert.Equal(t, domain.CategoryAssistance, assist.Category)
	require.NotNil(t, assist.Coordinates)
	assert.Equal(t, 35.3387, assist.Coordinates.Lat)
	assert.Equal(t, 25.1442, assist.Coordinates.Lon)

	require.Len(t, skipped, 2)
	assert.Equal(t, 2, skipped[0].Block)
	assert.Contains(t, skipped[0].Reason, "no location field")
	assert.Equal(t, 4, skipped[1].Block)
	assert.Contains(t, skipped[1].Reason, "status")
}

func TestParseIncidents_Cards(t *testing.T) {
	incidents, skipped, err := ParseIncidents(openFixture(t, "listing_cards.html"), athens(t))
	require.NoError(t, err)
	require.Len(t, incidents, 2)

	en := incidents[0]
	assert.Equal(t, domain.CategoryForestFire, en.Category)
	assert.Equal(t, domain.StatusOngoing, en.Status)
	assert.Equal(t, "Attica", en.Region)
	assert.Equal(t, "Marathon", en.Municipality)
	assert.Equal(t, "Varnavas", en.Location)
	assert.Equal(t, time.Date(2026, 8, 11, 7, 0, 0, 0, time.UTC), en.StartedAt.UTC())
	require.NotNil(t, en.Coordinates)
	assert.Equal(t, 38.0551, en.Coordinates.Lat)

	el := incidents[1]
	assert.Equal(t, domain.CategoryUrbanFire, el.Category)
	assert.Equal(t, domain.StatusPartialControl, el.Status)
	assert.Equal(t, "Πειραιάς", el.Location)

	require.Len(t, skipped, 1)
	assert.Equal(t, "incidents", skipped[0].Source)
}

func TestParseIncidents_NoListing(t *testing.T) {
	_, _, err := ParseIncidents(strings.NewReader(`<html><body><p>Service unavailable</p></body></html>`), athens(t))
	require.ErrorIs(t, err, ErrNoListing)
}

func TestParseIncidents_EmptyTable(t *testing.T) {
	page := `<table><tr><th>Κατηγορία</th><th>Κατάσταση</th><th>Περιοχή</th></tr></table>`

	incidents, skipped, err := ParseIncidents(strings.NewReader(page), athens(t))

	require.NoError(t, err)
	assert.Empty(t, incidents)
	assert.Empty(t, skipped)
}

func TestParseIncidents_DataLabelCells(t *testing.T) {
	// Columns out of header order; data-label wins.
	page := `<table>
<tr><th>Κατηγορία</th><th>Κατάσταση</th><th>Περιοχή</th></tr>
<tr><td data-label="Περιοχή">Μάτι</td><td data-label="Κατηγορία">Δασική</td><td data-label="Κατάσταση">Σε εξέλιξη</td></tr>
</table>`

	incidents, _, err := ParseIncidents(strings.NewReader(page), athens(t))

	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "Μάτι", incidents[0].Location)
	assert.Equal(t, domain.CategoryForestFire, incidents[0].Category)
}

func TestParseIncidents_StableIDsAcrossPolls(t *testing.T) {
	a, _, err := ParseIncidents(openFixture(t, "listing_table.html"), athens(t))
	require.NoError(t, err)
	b, _, err := ParseIncidents(openFixture(t, "listing_table.html"), athens(t))
	require.NoError(t, err)

	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestLabelField(t *testing.T) {
	tests := []struct {
		label    string
		expected field
	}{
		{"Περιφέρεια", fieldRegion},
		{"Περιφερειακή Ενότητα", fieldUnit},
		{"ΝΟΜΟΣ", fieldUnit},
		{"Δήμος:", fieldMunicipality},
		{"Περιοχή", fieldLocation},
		{"Κατάσταση συμβάντος", fieldStatus},
		{"Είδος συμβάντος", fieldCategory},
		{"Ημερομηνία έναρξης", fieldStarted},
		{"Ημερομηνία ενημέρωσης", fieldUpdated},
		{"Last update", fieldUpdated},
		{"Start", fieldStarted},
		{"Latitude", fieldLat},
		{"Γεωγραφικό μήκος", fieldLon},
		{"Σχόλια", fieldUnknown},
		{"", fieldUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, labelField(tt.label))
		})
	}
}

func TestParseTime(t *testing.T) {
	loc := athens(t)
	want := time.Date(2026, 8, 11, 13, 5, 0, 0, loc)

	for _, s := range []string{
		"11/08/2026 13:05",
		"11/08/2026, 13:05",
		"11/08/2026 ώρα 13:05",
		"11-08-2026 13:05",
		"11.08.2026 13:05",
		"2026-08-11 13:05",
		"2026-08-11T13:05:00",
		"2026-08-11T10:05:00Z",
	} {
		t.Run(s, func(t *testing.T) {
			assert.True(t, want.Equal(parseTime(s, loc)), "got %v", parseTime(s, loc))
		})
	}

	assert.True(t, parseTime("χθες", loc).IsZero())
	assert.True(t, parseTime("", loc).IsZero())
}
