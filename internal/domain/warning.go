package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Urgency windows measured from a warning's publish time.
const (
	ImmediateWindow = 12 * time.Hour
	RetentionWindow = 24 * time.Hour
)

// WarningType classifies a 112 message by what it asks the public to do.
type WarningType string

const (
	WarningEvacuation  WarningType = "evacuation"
	WarningStayIndoors WarningType = "stay-indoors"
	WarningWildfire    WarningType = "wildfire"
	WarningGeneral     WarningType = "general"
)

// Urgency tier of a warning at a point in time.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyOlder     Urgency = "older"
	UrgencyExpired   Urgency = "expired"
)

// WarningLocation is one place mentioned in a warning. It has no identity of
// its own outside the owning warning.
type WarningLocation struct {
	Name         string       `json:"name"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Geocoded     bool         `json:"geocoded"`
	GeoSource    string       `json:"geo_source,omitempty"`
	Municipality string       `json:"municipality,omitempty"`
	Region       string       `json:"region,omitempty"`
}

// Warning is a single 112 emergency message.
type Warning struct {
	ID          string            `json:"id"`
	Type        WarningType       `json:"type"`
	Message     string            `json:"message"`
	MessageEN   string            `json:"message_en,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
	SourceURL   string            `json:"source_url,omitempty"`
	Locations   []WarningLocation `json:"locations"`
}

// Key returns the identity key.
func (w Warning) Key() string { return w.ID }

// RecordTime is the timestamp compared against a session's connect time.
func (w Warning) RecordTime() time.Time { return w.PublishedAt }

// Urgency recomputes the tier for now. The tier is never stored.
func (w Warning) Urgency(now time.Time) Urgency {
	return UrgencyAt(w.PublishedAt, now)
}

// UrgencyAt maps message age onto an urgency tier. A publish time in the
// future (upstream clock skew) counts as immediate.
func UrgencyAt(published, now time.Time) Urgency {
	age := now.Sub(published)
	switch {
	case age <= ImmediateWindow:
		return UrgencyImmediate
	case age <= RetentionWindow:
		return UrgencyOlder
	default:
		return UrgencyExpired
	}
}

// WarningID returns the upstream post ID when present, otherwise a hash of the
// message text and publish time.
func WarningID(postID, text string, publishedAt time.Time) string {
	if id := strings.TrimSpace(postID); id != "" {
		return id
	}
	input := fmt.Sprintf("%s|%s", CleanText(text), publishedAt.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return "msg-" + hex.EncodeToString(hash[:8])
}

// ClassifyWarning derives the warning type from message keywords.
func ClassifyWarning(text string) WarningType {
	f := Fold(text)
	switch {
	case strings.Contains(f, "εκκενωσ"), strings.Contains(f, "απομακρυνθειτε"), strings.Contains(f, "evacuat"), strings.Contains(f, "move away"):
		return WarningEvacuation
	case strings.Contains(f, "εσωτερικουσ χωρουσ"), strings.Contains(f, "μεινετε μεσα"), strings.Contains(f, "stay indoors"), strings.Contains(f, "stay inside"):
		return WarningStayIndoors
	case strings.Contains(f, "πυρκαγι"), strings.Contains(f, "φωτια"), strings.Contains(f, "wildfire"), strings.Contains(f, "forest fire"):
		return WarningWildfire
	default:
		return WarningGeneral
	}
}
