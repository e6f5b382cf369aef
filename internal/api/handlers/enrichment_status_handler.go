package handlers

import "net/http"

// EnrichmentStatus reports startup readiness of the corpus and index.
type EnrichmentStatus struct {
	Movies  int  `json:"movies"`
	Indexed int  `json:"indexed"`
	Ready   bool `json:"ready"`
}

// EnrichmentStatusHandler exposes corpus and index readiness.
type EnrichmentStatusHandler struct {
	status EnrichmentStatus
}

// NewEnrichmentStatusHandler creates a status handler for the given
// startup snapshot. The corpus and index are immutable after startup, so a
// snapshot is all that is needed.
func NewEnrichmentStatusHandler(movies, indexed int) *EnrichmentStatusHandler {
	return &EnrichmentStatusHandler{status: EnrichmentStatus{
		Movies:  movies,
		Indexed: indexed,
		Ready:   indexed > 0,
	}}
}

// Status handles GET /api/enrichment/status
func (h *EnrichmentStatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.status)
}
