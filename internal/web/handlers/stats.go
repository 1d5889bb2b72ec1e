package handlers

import (
	"net/http"
)

// StatsHandler serves the universe overview.
type StatsHandler struct {
	Store LeadStore
}

// GetStats returns entity, signal and tier counts plus the last run.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetCoverage returns per-county coverage, tank code mappings and the
// sector mix of the stored universe.
func (h *StatsHandler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	cov, err := h.Store.Coverage(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cov)
}
