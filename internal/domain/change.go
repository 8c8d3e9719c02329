package domain

import "time"

// ChangeType classifies a difference between two snapshots.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeUpdated  ChangeType = "updated"
	ChangeResolved ChangeType = "resolved"
)

// RecordKind names the collection a change belongs to.
type RecordKind string

const (
	KindIncident RecordKind = "incident"
	KindWarning  RecordKind = "warning"
)

// ChangeEvent is one classified difference between the previous and the new
// poll result.
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	Kind       RecordKind `json:"kind"`
	Key        string     `json:"key"`
	RecordTime time.Time  `json:"record_time"`
	DetectedAt time.Time  `json:"detected_at"`
	Incident   *Incident  `json:"incident,omitempty"`
	Warning    *Warning   `json:"warning,omitempty"`
}

// Notifiable reports whether the event should reach clients. Only creations
// are; updates and resolutions would be noise.
func (e ChangeEvent) Notifiable() bool { return e.Type == ChangeCreated }

// DedupKey identifies the logical change across poll cycles.
func (e ChangeEvent) DedupKey() string {
	return string(e.Kind) + ":" + string(e.Type) + ":" + e.Key
}

// DiffIncidents compares two incident sets by identity key. Created and
// Updated events follow the order of next; Resolved events follow prev.
func DiffIncidents(prev, next []Incident) []ChangeEvent {
	now := clock.Now()
	prevByKey := make(map[string]Incident, len(prev))
	for _, inc := range prev {
		prevByKey[inc.ID] = inc
	}
	nextKeys := make(map[string]struct{}, len(next))

	var events []ChangeEvent
	for i := range next {
		inc := next[i]
		nextKeys[inc.ID] = struct{}{}
		old, existed := prevByKey[inc.ID]
		switch {
		case !existed:
			events = append(events, incidentEvent(ChangeCreated, inc, now))
		case old.Status != inc.Status || !old.UpdatedAt.Equal(inc.UpdatedAt):
			events = append(events, incidentEvent(ChangeUpdated, inc, now))
		}
	}
	for _, inc := range prev {
		if _, ok := nextKeys[inc.ID]; !ok {
			events = append(events, incidentEvent(ChangeResolved, inc, now))
		}
	}
	return events
}

// DiffWarnings emits a Created event for every warning in next that is not in
// prev. Urgency transitions are not events because urgency is not stored.
func DiffWarnings(prev, next []Warning) []ChangeEvent {
	now := clock.Now()
	seen := make(map[string]struct{}, len(prev))
	for _, w := range prev {
		seen[w.ID] = struct{}{}
	}

	var events []ChangeEvent
	for i := range next {
		w := next[i]
		if _, ok := seen[w.ID]; ok {
			continue
		}
		events = append(events, ChangeEvent{
			Type:       ChangeCreated,
			Kind:       KindWarning,
			Key:        w.ID,
			RecordTime: w.RecordTime(),
			DetectedAt: now,
			Warning:    &w,
		})
	}
	return events
}

// NotifiableEvents filters events down to those that reach clients,
// preserving order.
func NotifiableEvents(events []ChangeEvent) []ChangeEvent {
	out := make([]ChangeEvent, 0, len(events))
	for _, e := range events {
		if e.Notifiable() {
			out = append(out, e)
		}
	}
	return out
}

func incidentEvent(t ChangeType, inc Incident, now time.Time) ChangeEvent {
	return ChangeEvent{
		Type:       t,
		Kind:       KindIncident,
		Key:        inc.ID,
		RecordTime: inc.RecordTime(),
		DetectedAt: now,
		Incident:   &inc,
	}
}

// UniqueByKey drops records whose key already appeared earlier in the slice
// and reports how many were dropped.
func UniqueByKey[T interface{ Key() string }](items []T) ([]T, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Key()]; ok {
			continue
		}
		seen[it.Key()] = struct{}{}
		out = append(out, it)
	}
	return out, len(items) - len(out)
}
