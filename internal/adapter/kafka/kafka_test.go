package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

var detected = time.Date(2026, 8, 12, 10, 5, 0, 0, time.UTC)

func warningCreated() domain.ChangeEvent {
	w := domain.Warning{ID: "1822999000000000001", Type: domain.WarningEvacuation, Message: "Απομακρυνθείτε προς Αχαρνές"}
	return domain.ChangeEvent{
		Type:       domain.ChangeCreated,
		Kind:       domain.KindWarning,
		Key:        w.ID,
		RecordTime: detected.Add(-time.Minute),
		DetectedAt: detected,
		Warning:    &w,
	}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(warningCreated())
	require.NoError(t, err)

	assert.Equal(t, []byte("warning:1822999000000000001"), msg.Key)
	assert.Contains(t, string(msg.Value), `"type":"created"`)
	assert.Contains(t, string(msg.Value), `"Απομακρυνθείτε προς Αχαρνές"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("created"), msg.Headers[0].Value)
	assert.Equal(t, "kind", msg.Headers[1].Key)
	assert.Equal(t, []byte("warning"), msg.Headers[1].Value)
	assert.Equal(t, "detected_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2026-08-12T10:05:00Z"), msg.Headers[2].Value)
}

func newTestPublisher(w messageWriter) (*Publisher, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), metrics: m}, m
}

func TestPublisher_Notify(t *testing.T) {
	w := &fakeWriter{}
	p, m := newTestPublisher(w)

	inc := domain.Incident{ID: "forest-fire-abc"}
	events := []domain.ChangeEvent{
		warningCreated(),
		{Type: domain.ChangeCreated, Kind: domain.KindIncident, Key: inc.ID, DetectedAt: detected, Incident: &inc},
	}
	require.NoError(t, p.Notify(context.Background(), events))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, []byte("incident:forest-fire-abc"), w.msgs[1].Key)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PublishedEvents.WithLabelValues("success")))
}

func TestPublisher_NotifyEmpty(t *testing.T) {
	w := &fakeWriter{err: errors.New("must not be called")}
	p, _ := newTestPublisher(w)

	assert.NoError(t, p.Notify(context.Background(), nil))
}

func TestPublisher_NotifyError(t *testing.T) {
	p, m := newTestPublisher(&fakeWriter{err: errors.New("leader not available")})

	err := p.Notify(context.Background(), []domain.ChangeEvent{warningCreated()})

	require.ErrorContains(t, err, "leader not available")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishedEvents.WithLabelValues("error")))
}
