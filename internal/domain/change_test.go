package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var detected = time.Date(2026, 8, 11, 14, 0, 0, 0, time.UTC)

func withFakeClock(t *testing.T) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(detected))
	t.Cleanup(func() { SetClock(nil) })
}

func testIncident(id string, status Status, updated time.Time) Incident {
	return Incident{
		ID:        id,
		Category:  CategoryForestFire,
		Status:    status,
		Region:    "Αττικής",
		Location:  id,
		StartedAt: time.Date(2026, 8, 11, 12, 0, 0, 0, time.UTC),
		UpdatedAt: updated,
	}
}

func TestDiffIncidents_FirstPollAllCreated(t *testing.T) {
	withFakeClock(t)
	next := []Incident{
		testIncident("a", StatusOngoing, detected),
		testIncident("b", StatusOngoing, detected),
	}

	events := DiffIncidents(nil, next)

	require.Len(t, events, 2)
	for i, e := range events {
		assert.Equal(t, ChangeCreated, e.Type)
		assert.Equal(t, KindIncident, e.Kind)
		assert.Equal(t, next[i].ID, e.Key)
		assert.Equal(t, detected, e.DetectedAt)
		assert.True(t, e.Notifiable())
	}
}

func TestDiffIncidents_StatusChangeIsSingleUpdate(t *testing.T) {
	withFakeClock(t)
	prev := []Incident{testIncident("a", StatusOngoing, detected)}
	next := []Incident{testIncident("a", StatusPartialControl, detected)}

	events := DiffIncidents(prev, next)

	require.Len(t, events, 1)
	assert.Equal(t, ChangeUpdated, events[0].Type)
	assert.False(t, events[0].Notifiable())
	assert.Equal(t, StatusPartialControl, events[0].Incident.Status)
}

func TestDiffIncidents_UpdateTimeChange(t *testing.T) {
	withFakeClock(t)
	prev := []Incident{testIncident("a", StatusOngoing, detected)}
	next := []Incident{testIncident("a", StatusOngoing, detected.Add(10*time.Minute))}

	events := DiffIncidents(prev, next)

	require.Len(t, events, 1)
	assert.Equal(t, ChangeUpdated, events[0].Type)
}

func TestDiffIncidents_SameInstantDifferentZoneIsUnchanged(t *testing.T) {
	withFakeClock(t)
	athens := time.FixedZone("EEST", 3*60*60)
	prev := []Incident{testIncident("a", StatusOngoing, detected)}
	next := []Incident{testIncident("a", StatusOngoing, detected.In(athens))}

	assert.Empty(t, DiffIncidents(prev, next))
}

func TestDiffIncidents_DisappearedIsResolved(t *testing.T) {
	withFakeClock(t)
	prev := []Incident{
		testIncident("a", StatusOngoing, detected),
		testIncident("b", StatusFullControl, detected),
	}
	next := []Incident{testIncident("a", StatusOngoing, detected)}

	events := DiffIncidents(prev, next)

	require.Len(t, events, 1)
	assert.Equal(t, ChangeResolved, events[0].Type)
	assert.Equal(t, "b", events[0].Key)
	assert.Empty(t, NotifiableEvents(events))
}

func TestDiffIncidents_Ordering(t *testing.T) {
	withFakeClock(t)
	prev := []Incident{
		testIncident("gone-1", StatusOngoing, detected),
		testIncident("kept", StatusOngoing, detected),
		testIncident("gone-2", StatusOngoing, detected),
	}
	next := []Incident{
		testIncident("new-2", StatusOngoing, detected),
		testIncident("kept", StatusFullControl, detected),
		testIncident("new-1", StatusOngoing, detected),
	}

	events := DiffIncidents(prev, next)

	type summary struct {
		Type ChangeType
		Key  string
	}
	var got []summary
	for _, e := range events {
		got = append(got, summary{e.Type, e.Key})
	}
	want := []summary{
		{ChangeCreated, "new-2"},
		{ChangeUpdated, "kept"},
		{ChangeCreated, "new-1"},
		{ChangeResolved, "gone-1"},
		{ChangeResolved, "gone-2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffIncidents_Identical(t *testing.T) {
	withFakeClock(t)
	set := []Incident{testIncident("a", StatusOngoing, detected)}

	assert.Empty(t, DiffIncidents(set, set))
}

func TestDiffWarnings_OnlyCreated(t *testing.T) {
	withFakeClock(t)
	published := detected.Add(-time.Hour)
	prev := []Warning{{ID: "1", PublishedAt: published}, {ID: "2", PublishedAt: published}}
	next := []Warning{{ID: "2", PublishedAt: published, Message: "edited"}, {ID: "3", PublishedAt: published}}

	events := DiffWarnings(prev, next)

	require.Len(t, events, 1)
	assert.Equal(t, ChangeCreated, events[0].Type)
	assert.Equal(t, KindWarning, events[0].Kind)
	assert.Equal(t, "3", events[0].Key)
	assert.Equal(t, published, events[0].RecordTime)
	require.NotNil(t, events[0].Warning)
	assert.Equal(t, "3", events[0].Warning.ID)
}

func TestDiffWarnings_EventsDoNotAlias(t *testing.T) {
	withFakeClock(t)
	next := []Warning{{ID: "1"}, {ID: "2"}}

	events := DiffWarnings(nil, next)

	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].Warning.ID)
	assert.Equal(t, "2", events[1].Warning.ID)
}

func TestChangeEvent_DedupKey(t *testing.T) {
	e := ChangeEvent{Type: ChangeCreated, Kind: KindWarning, Key: "182"}
	assert.Equal(t, "warning:created:182", e.DedupKey())
}

func TestUniqueByKey(t *testing.T) {
	in := []Warning{{ID: "1", Message: "first"}, {ID: "2"}, {ID: "1", Message: "second"}}

	out, dropped := UniqueByKey(in)

	assert.Equal(t, 1, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Message)
}
