package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sepa-leadgen/internal/export"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/store"
)

// LeadsHandler serves lead listings, details and map layers.
type LeadsHandler struct {
	Store LeadStore
}

// LeadsListResponse is one page of leads.
type LeadsListResponse struct {
	Leads  []store.Lead `json:"leads"`
	Count  int          `json:"count"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// LeadDetailResponse is a lead with its provenance trail.
type LeadDetailResponse struct {
	Lead    *store.Lead    `json:"lead"`
	Signals []model.Signal `json:"signals"`
}

// ListLeads returns a filtered page of leads, best score first.
func (h *LeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	leads, err := h.Store.ListLeads(r.Context(), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if leads == nil {
		leads = []store.Lead{}
	}
	writeJSON(w, http.StatusOK, LeadsListResponse{
		Leads:  leads,
		Count:  len(leads),
		Limit:  f.Limit,
		Offset: f.Offset,
	})
}

// GetGeoJSON returns located leads matching the filter as a FeatureCollection.
func (h *LeadsHandler) GetGeoJSON(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	f.Located = true
	leads, err := h.Store.ListLeads(r.Context(), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, http.StatusOK, export.NewFeatureCollection(leads))
}

// GetLead returns one lead and its signals.
func (h *LeadsHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lead, err := h.Store.GetLead(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	signals, err := h.Store.SignalsFor(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if signals == nil {
		signals = []model.Signal{}
	}
	writeJSON(w, http.StatusOK, LeadDetailResponse{Lead: lead, Signals: signals})
}

// GetSignals returns the signals recorded for an entity.
func (h *LeadsHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.Store.SignalsFor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if signals == nil {
		signals = []model.Signal{}
	}
	writeJSON(w, http.StatusOK, signals)
}
