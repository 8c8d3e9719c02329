package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Category classifies an incident.
type Category string

const (
	CategoryForestFire Category = "forest-fire"
	CategoryUrbanFire  Category = "urban-fire"
	CategoryAssistance Category = "assistance"
)

// Status is the operational state of an incident.
type Status string

const (
	StatusOngoing        Status = "ongoing"
	StatusPartialControl Status = "partial-control"
	StatusFullControl    Status = "full-control"
)

// Incident is one row of the fire service's current-incidents listing.
type Incident struct {
	ID           string       `json:"id"`
	Category     Category     `json:"category"`
	Status       Status       `json:"status"`
	Region       string       `json:"region,omitempty"`
	Municipality string       `json:"municipality,omitempty"`
	Location     string       `json:"location,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	GeoSource    string       `json:"geo_source,omitempty"` // "exact", "municipality", "region", "none", "failed", "original"
}

// Key returns the identity key.
func (i Incident) Key() string { return i.ID }

// RecordTime is the timestamp compared against a session's connect time.
func (i Incident) RecordTime() time.Time {
	if i.StartedAt.IsZero() {
		return i.UpdatedAt
	}
	return i.StartedAt
}

// IncidentID produces a deterministic ID from the incident's descriptive
// fields. The listing has no upstream identifier, so the same incident seen on
// consecutive polls must hash to the same ID.
func IncidentID(category Category, region, municipality, location string, startedAt time.Time) string {
	start := ""
	if !startedAt.IsZero() {
		start = startedAt.UTC().Format(time.RFC3339)
	}
	input := fmt.Sprintf("%s|%s|%s|%s|%s", category, Fold(region), Fold(municipality), Fold(location), start)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if category == "" {
		return short
	}
	return string(category) + "-" + short
}

// ParseCategory maps a Greek or English category label onto a Category.
func ParseCategory(label string) (Category, bool) {
	f := Fold(label)
	switch {
	case f == "":
		return "", false
	case strings.Contains(f, "δασ"), strings.Contains(f, "forest"), strings.Contains(f, "wildfire"):
		return CategoryForestFire, true
	case strings.Contains(f, "αστικ"), strings.Contains(f, "urban"), strings.Contains(f, "structure"):
		return CategoryUrbanFire, true
	case strings.Contains(f, "βοηθει"), strings.Contains(f, "assist"):
		return CategoryAssistance, true
	default:
		return "", false
	}
}

// ParseStatus maps a Greek or English status label onto a Status.
func ParseStatus(label string) (Status, bool) {
	f := Fold(label)
	switch {
	case f == "":
		return "", false
	case strings.Contains(f, "εξελιξ"), strings.Contains(f, "ongoing"), strings.Contains(f, "in progress"), strings.Contains(f, "active"):
		return StatusOngoing, true
	case strings.Contains(f, "μερικ"), strings.Contains(f, "partial"):
		return StatusPartialControl, true
	case strings.Contains(f, "πληρ"), strings.Contains(f, "full"), strings.Contains(f, "under control"):
		return StatusFullControl, true
	default:
		return "", false
	}
}
