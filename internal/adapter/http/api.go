package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

type incidentsResponse struct {
	UpdatedAt *time.Time        `json:"updated_at"`
	Count     int               `json:"count"`
	Incidents []domain.Incident `json:"incidents"`
}

// warningView is a warning with its urgency as of the request.
type warningView struct {
	domain.Warning
	Urgency domain.Urgency `json:"urgency"`
}

type warningsResponse struct {
	UpdatedAt *time.Time    `json:"updated_at"`
	Count     int           `json:"count"`
	Warnings  []warningView `json:"warnings"`
}

// updatedAt is nil until the first snapshot is published.
func updatedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// handleIncidents serves the current incident snapshot, optionally filtered
// by ?category= and ?status= (comma-separated).
func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Incidents()
	categories := queryList(r, "category")
	statuses := queryList(r, "status")

	out := make([]domain.Incident, 0, snap.Len())
	for _, inc := range snap.Items {
		if !matches(categories, string(inc.Category)) || !matches(statuses, string(inc.Status)) {
			continue
		}
		out = append(out, inc)
	}
	writeJSON(w, http.StatusOK, incidentsResponse{UpdatedAt: updatedAt(snap.UpdatedAt), Count: len(out), Incidents: out})
}

func (s *Server) handleIncident(w http.ResponseWriter, r *http.Request) {
	inc, ok := s.snapshots.Incidents().Get(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "incident not found"})
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// handleWarnings serves current warnings with urgency computed now. Warnings
// that aged past the retention window since the last poll are left out.
// ?urgency= filters by tier.
func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Warnings()
	urgencies := queryList(r, "urgency")
	now := domain.Now()

	out := make([]warningView, 0, snap.Len())
	for _, wr := range snap.Items {
		u := wr.Urgency(now)
		if u == domain.UrgencyExpired || !matches(urgencies, string(u)) {
			continue
		}
		out = append(out, warningView{Warning: wr, Urgency: u})
	}
	writeJSON(w, http.StatusOK, warningsResponse{UpdatedAt: updatedAt(snap.UpdatedAt), Count: len(out), Warnings: out})
}

func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func matches(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
