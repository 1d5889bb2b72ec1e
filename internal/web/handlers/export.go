package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/export"
)

var validate = validator.New()

// ExportHandler streams lead exports.
type ExportHandler struct {
	Store  LeadStore
	Config *Config
}

// ExportRequest represents an export request
type ExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv geojson"`
	FilterParams
}

// ExportData writes the filtered leads as a CSV or GeoJSON attachment.
func (h *ExportHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	if !h.Config.Features.ExportEnabled {
		writeError(w, http.StatusForbidden, "export feature disabled")
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "unsupported export format, use csv or geojson")
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}

	f, err := req.LeadFilter()
	if err != nil {
		badRequest(w, err)
		return
	}
	if req.Format == "geojson" {
		f.Located = true
	}
	leads, err := h.Store.ListLeads(r.Context(), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	name := fmt.Sprintf("leads_%s.%s", export.Stamp(time.Now()), req.Format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	switch req.Format {
	case "geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		err = export.WriteGeoJSON(w, leads)
	default:
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteLeadsCSV(w, leads)
	}
	if err != nil {
		zap.L().Warn("export interrupted", zap.Error(err))
		return
	}
	zap.L().Info("export served", zap.String("format", req.Format), zap.Int("leads", len(leads)))
}
