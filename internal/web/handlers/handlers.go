// Package handlers serves the scored lead universe over JSON.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/store"
)

// LeadStore is the read side of the store the API needs.
type LeadStore interface {
	ListLeads(ctx context.Context, f store.LeadFilter) ([]store.Lead, error)
	GetLead(ctx context.Context, entityID string) (*store.Lead, error)
	SignalsFor(ctx context.Context, entityID string) ([]model.Signal, error)
	Stats(ctx context.Context) (*store.Summary, error)
	Coverage(ctx context.Context) (*store.Coverage, error)
}

// Config represents the feature switches handlers honour.
type Config struct {
	Features struct {
		ExportEnabled bool `json:"export_enabled"`
	} `json:"features"`
}

const (
	defaultPageSize = 100
	maxPageSize     = 5000
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store failures to HTTP statuses. Internal detail is
// logged, not returned.
func writeStoreError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("store query failed", zap.String("error", eris.ToString(err, true)))
	writeError(w, http.StatusInternalServerError, "database error")
}

// parseIntParam parses a string parameter as int with default value
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultVal
}

// ParseTier accepts "A", "tier a", "Tier A" or "park" in any case.
func ParseTier(s string) (model.Tier, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "TIER"))
	switch s {
	case "":
		return "", true
	case "A":
		return model.TierA, true
	case "B":
		return model.TierB, true
	case "C":
		return model.TierC, true
	case "PARK":
		return model.TierPark, true
	}
	return "", false
}

// ParseSector matches a sector label case-insensitively.
func ParseSector(s string) (model.Sector, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	for _, sec := range model.Sectors() {
		if strings.EqualFold(s, string(sec)) {
			return sec, true
		}
	}
	return "", false
}

// FilterParams is the lead filter as accepted on query strings and export
// request bodies.
type FilterParams struct {
	Tier     string `json:"tier"`
	MinScore *int   `json:"min_score"`
	Sector   string `json:"sector"`
	County   string `json:"county"`
	Search   string `json:"q"`
	Located  bool   `json:"located"`
}

// LeadFilter validates p into a store filter.
func (p FilterParams) LeadFilter() (store.LeadFilter, error) {
	tier, ok := ParseTier(p.Tier)
	if !ok {
		return store.LeadFilter{}, eris.Wrapf(model.ErrInputShape, "unknown tier %q", p.Tier)
	}
	sector, ok := ParseSector(p.Sector)
	if !ok {
		return store.LeadFilter{}, eris.Wrapf(model.ErrInputShape, "unknown sector %q", p.Sector)
	}
	return store.LeadFilter{
		Tier:     tier,
		MinScore: p.MinScore,
		Sector:   sector,
		County:   p.County,
		Search:   strings.TrimSpace(p.Search),
		Located:  p.Located,
	}, nil
}

func filterFromQuery(r *http.Request) (store.LeadFilter, error) {
	q := r.URL.Query()
	p := FilterParams{
		Tier:    q.Get("tier"),
		Sector:  q.Get("sector"),
		County:  q.Get("county"),
		Search:  q.Get("q"),
		Located: q.Get("located") == "true" || q.Get("located") == "1",
	}
	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return store.LeadFilter{}, eris.Wrapf(model.ErrInputShape, "bad min_score %q", v)
		}
		p.MinScore = &n
	}

	f, err := p.LeadFilter()
	if err != nil {
		return f, err
	}
	f.Limit = parseIntParam(q.Get("limit"), defaultPageSize)
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	f.Offset = parseIntParam(q.Get("offset"), 0)
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// badRequest reports the outermost message of an input error.
func badRequest(w http.ResponseWriter, err error) {
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	writeError(w, http.StatusBadRequest, msg)
}
