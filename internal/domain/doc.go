// Package domain models Hellenic Fire Service incidents and 112 emergency
// warnings, and the change events derived from successive polls.
//
// # Data Sources
//
// Incidents come from the fire service's "current incidents" listing, an HTML
// page with one row (or card) per incident. There is no upstream identifier, so
// incidents are identified by a deterministic hash of their descriptive fields.
// See [IncidentID].
//
// Warnings come from the 112 alert feed, a client-rendered page of short
// bilingual messages. Each message carries a post ID when the feed exposes
// one; otherwise the ID is a hash of the text and publish time. See [WarningID].
//
// # Greek Conventions
//
// Category labels:
//
//	"ΔΑΣΙΚΕΣ ΠΥΡΚΑΓΙΕΣ"  →  forest-fire
//	"ΑΣΤΙΚΕΣ ΠΥΡΚΑΓΙΕΣ"  →  urban-fire
//	"ΠΑΡΟΧΕΣ ΒΟΗΘΕΙΑΣ"   →  assistance
//
// Status labels:
//
//	"ΣΕ ΕΞΕΛΙΞΗ"        →  ongoing
//	"ΜΕΡΙΚΟΣ ΕΛΕΓΧΟΣ"   →  partial-control
//	"ΠΛΗΡΗΣ ΕΛΕΓΧΟΣ"    →  full-control
//
// Labels are compared after [Fold], which strips tonos/dialytika, lowercases
// and maps final sigma to sigma, so "Σε εξέλιξη" and "ΣΕ ΕΞΕΛΙΞΗ" match.
//
// Coordinate encoding:
//
//	Some upstream systems emit degrees as integers without a decimal
//	separator: 370551454 means 37.0551454. Greek sources also use a comma as
//	the decimal separator. [ParseCoordinate] and [NormalizeDegrees] handle both.
//	Coordinates outside the Greek envelope (lat 34–42, lon 19–30) are treated
//	as absent.
//
// # Urgency
//
// A warning's urgency is a function of its age at read time: "immediate" up
// to 12 hours, "older" up to 24 hours, "expired" beyond. It is never stored.
// See [UrgencyAt].
package domain
