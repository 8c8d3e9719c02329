package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

var t0 = time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)

func TestNew_EmptySnapshots(t *testing.T) {
	s := New()

	assert.Equal(t, 0, s.Incidents().Len())
	assert.True(t, s.Incidents().UpdatedAt.IsZero())
	assert.Empty(t, s.GetCurrentWarnings())
	assert.True(t, s.Warnings().UpdatedAt.IsZero())
}

func TestSwapIncidents_ReturnsPrevious(t *testing.T) {
	s := New()
	first := []domain.Incident{{ID: "a", Status: domain.StatusOngoing}}
	second := []domain.Incident{{ID: "b"}, {ID: "c"}}

	prev := s.SwapIncidents(first, t0)
	assert.Equal(t, 0, prev.Len())

	prev = s.SwapIncidents(second, t0.Add(time.Minute))
	assert.Equal(t, first, prev.Items)
	assert.Equal(t, t0, prev.UpdatedAt)

	cur := s.Incidents()
	assert.Equal(t, t0.Add(time.Minute), cur.UpdatedAt)
	got, ok := cur.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
	_, ok = cur.Get("a")
	assert.False(t, ok)
}

func TestSwap_CopiesInput(t *testing.T) {
	s := New()
	in := []domain.Incident{{ID: "a", Location: "Κερατέα"}}
	s.SwapIncidents(in, t0)

	in[0].Location = "changed"

	got, _ := s.Incidents().Get("a")
	assert.Equal(t, "Κερατέα", got.Location)
}

func TestGetCurrentWarnings_ReturnsCopy(t *testing.T) {
	s := New()
	s.SwapWarnings([]domain.Warning{{ID: "w1", Locations: []domain.WarningLocation{{Name: "Μάτι"}}}}, t0)

	out := s.GetCurrentWarnings()
	out[0].Message = "mutated"
	out[0].Locations[0].Name = "mutated"

	w, ok := s.Warnings().Get("w1")
	require.True(t, ok)
	assert.Empty(t, w.Message)
	assert.Equal(t, "Μάτι", w.Locations[0].Name)
}

func TestGetCurrentIncidents_ReturnsCopy(t *testing.T) {
	s := New()
	s.SwapIncidents([]domain.Incident{{ID: "a"}}, t0)

	out := s.GetCurrentIncidents()
	out[0].ID = "mutated"

	assert.Equal(t, "a", s.GetCurrentIncidents()[0].ID)
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Incidents()
				// Every published set has as many records as its minute offset.
				if !snap.UpdatedAt.IsZero() {
					assert.Equal(t, int(snap.UpdatedAt.Sub(t0)/time.Minute), snap.Len())
				}
			}
		}()
	}

	for n := 1; n <= 200; n++ {
		items := make([]domain.Incident, n)
		for i := range items {
			items[i].ID = string(rune('a' + i%26))
		}
		s.SwapIncidents(items, t0.Add(time.Duration(n)*time.Minute))
	}
	close(stop)
	wg.Wait()
}
