package alerts112

import (
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

func feedBase(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://x.com/112Greece")
	require.NoError(t, err)
	return u
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func TestParseWarnings_Feed(t *testing.T) {
	warnings, skipped, err := ParseWarnings(readFixture(t, "feed.html"), feedBase(t))
	require.NoError(t, err)

	require.Len(t, warnings, 4)
	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Block)
	assert.Equal(t, "missing publish time", skipped[0].Reason)

	pinned := warnings[0]
	assert.Equal(t, "1822400000000000000", pinned.ID)
	assert.Equal(t, time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC), pinned.PublishedAt)

	evac := warnings[1]
	assert.Equal(t, "1822999000000000001", evac.ID)
	assert.Equal(t, domain.WarningEvacuation, evac.Type)
	assert.Equal(t, "https://x.com/112Greece/status/1822999000000000001", evac.SourceURL)
	assert.Contains(t, evac.Message, "Ενεργοποίηση 112")
	assert.Contains(t, evac.Message, "απομακρυνθείτε προς Αχαρνές")
	assert.NotContains(t, evac.Message, "Activation")
	assert.Contains(t, evac.MessageEN, "Activation 112")
	assert.Contains(t, evac.MessageEN, "evacuate towards Acharnes")
	assert.Equal(t, []domain.WarningLocation{
		{Name: "Βαρυμπόμπη"},
		{Name: "Θρακομακεδόνες"},
		{Name: "Αχαρνές"},
	}, evac.Locations)

	mirror := warnings[2]
	assert.Equal(t, "1822999000000000003", mirror.ID)
	assert.Equal(t, "https://x.com/112Greece/status/1822999000000000003", mirror.SourceURL)
	assert.Equal(t, time.Date(2026, 8, 12, 9, 15, 0, 0, time.UTC), mirror.PublishedAt)
	assert.Equal(t, domain.WarningWildfire, mirror.Type)
	assert.Equal(t, []domain.WarningLocation{{Name: "Νέα Μάκρη"}}, mirror.Locations)
	assert.Equal(t, "Wildfire in grassland at #Νέα_Μάκρη. Follow the instructions of the authorities.", mirror.MessageEN)

	indoors := warnings[3]
	assert.Equal(t, "1822700000000000002", indoors.ID)
	assert.Equal(t, domain.WarningStayIndoors, indoors.Type)
	assert.Equal(t, []domain.WarningLocation{{Name: "Κερατέα Αττικής"}}, indoors.Locations)
}

func TestParseWarnings_NoItems(t *testing.T) {
	_, _, err := ParseWarnings(`<html><body><div>Log in to X</div></body></html>`, feedBase(t))
	require.ErrorIs(t, err, ErrNoFeed)
}

func TestParseWarnings_HashedIDWithoutPostLink(t *testing.T) {
	page := `<article data-time="1786525200"><div class="message-text">Πυρκαγιά στην περιοχή Μάτι</div></article>`

	first, _, err := ParseWarnings(page, feedBase(t))
	require.NoError(t, err)
	second, _, err := ParseWarnings(page, feedBase(t))
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Regexp(t, `^msg-[0-9a-f]{16}$`, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Empty(t, first[0].SourceURL)
	assert.Equal(t, time.Unix(1786525200, 0).UTC(), first[0].PublishedAt)
}

func TestParseWarnings_QuotedPostIsPartOfOuterItem(t *testing.T) {
	page := `<article data-post-id="42">
  <time datetime="2026-08-12T10:00:00Z"></time>
  <div class="message-text">Εκκένωση οικισμού Βαρνάβας</div>
  <article data-post-id="41"><time datetime="2026-08-12T09:00:00Z"></time><div class="message-text">παλιό</div></article>
</article>`

	warnings, skipped, err := ParseWarnings(page, feedBase(t))

	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, warnings, 1)
	assert.Equal(t, "42", warnings[0].ID)
	assert.Equal(t, domain.WarningEvacuation, warnings[0].Type)
}

func TestParseWarnings_LocationsFallBackToEnglish(t *testing.T) {
	page := `<article data-post-id="43">
  <time datetime="2026-08-12T10:00:00Z"></time>
  <div class="message-text"><p>Πυρκαγιά σε εξέλιξη. Ακολουθήστε τις οδηγίες των αρχών.</p><p>Wildfire in the area of Keratea. Follow the instructions of the authorities.</p></div>
</article>`

	warnings, _, err := ParseWarnings(page, feedBase(t))

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "Πυρκαγιά σε εξέλιξη")
	assert.Contains(t, warnings[0].MessageEN, "Keratea")
	assert.Equal(t, []domain.WarningLocation{{Name: "Keratea"}}, warnings[0].Locations)
}

func TestParseWarnings_GreekLocationsWin(t *testing.T) {
	page := `<article data-post-id="44">
  <time datetime="2026-08-12T10:00:00Z"></time>
  <div class="message-text"><p>Πυρκαγιά στην περιοχή Κερατέα.</p><p>Wildfire in the area of Keratea.</p></div>
</article>`

	warnings, _, err := ParseWarnings(page, feedBase(t))

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, []domain.WarningLocation{{Name: "Κερατέα"}}, warnings[0].Locations)
}

func TestExtractLocations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"area list", "Πυρκαγιά στις περιοχές Κερατέα, Λαύριο και Σαρωνίδα.", []string{"Κερατέα", "Λαύριο", "Σαρωνίδα"}},
		{"english area", "Wildfire in the area of Mati and Rafina", []string{"Mati", "Rafina"}},
		{"direction", "Απομακρυνθείτε προς Μαραθώνα μέσω της λεωφόρου", []string{"Μαραθώνα"}},
		{"article after keyword", "Αν βρίσκεστε στην περιοχή της Πεντέλης μείνετε μέσα", []string{"Πεντέλης"}},
		{"hashtag with underscore", "Πυρκαγιά #Άνω_Λιόσια", []string{"Άνω Λιόσια"}},
		{"accent-insensitive dedupe", "περιοχή Κερατέα #κερατεα #ΚΕΡΑΤΕΑ", []string{"Κερατέα"}},
		{"prefix dedupe", "περιοχή Κερατέα Αττικής #Κερατέα", []string{"Κερατέα Αττικής"}},
		{"generic tags", "#112 #Πυρκαγιά #wildfire #Εκκένωση #2026", nil},
		{"lowercase after keyword", "ΠΡΟΣΟΧΗ: πυρκαγιά προς το παρόν", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLocations(tt.text))
		})
	}
}

func TestSplitLanguages(t *testing.T) {
	greek, english := SplitLanguages([]string{
		"⚠️ Ενεργοποίηση 112 ⚠️",
		"Πυρκαγιά #Κερατέα",
		"⚠️ Activation 112 ⚠️",
		"Wildfire #Κερατέα https://civilprotection.gov.gr",
		"🔥",
	})

	assert.Equal(t, "⚠️ Ενεργοποίηση 112 ⚠️\nΠυρκαγιά #Κερατέα", greek)
	assert.Equal(t, "⚠️ Activation 112 ⚠️\nWildfire #Κερατέα https://civilprotection.gov.gr\n🔥", english)
}
