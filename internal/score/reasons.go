package score

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sepa-leadgen/internal/model"
)

// reasonTemplates map a code to its sentence. %s is replaced by a concrete
// value from the entity when one is known, otherwise by the fallback.
var reasonTemplates = map[string]struct {
	format   string
	fallback string
}{
	CodeDieselTank:   {"Diesel tanks present", ""},
	CodeCap20K:       {"Diesel tanks %s gal", "20,000+"},
	CodeCap10K:       {"Diesel tanks %s gal", "10,000-20,000"},
	CodeCap5K:        {"Diesel tanks %s gal", "5,000-10,000"},
	CodeCap1K:        {"Diesel tanks %s gal", "1,000-5,000"},
	CodeActive:       {"Active facility", ""},
	CodeFleet50:      {"FMCSA fleet size %s power units", "50+"},
	CodeFleet10:      {"FMCSA fleet size %s power units", "10-49"},
	CodeHospital:     {"Hospital or healthcare facility", ""},
	CodeSchool:       {"School district, university, or bus depot", ""},
	CodeDataCenter:   {"Data center", ""},
	CodeEcho:         {"ECHO facility registry", ""},
	CodeNear:         {"%s miles from base", "Within 25"},
	CodeNear40:       {"%s miles from base", "25-40"},
	CodeWebIntent:    {"Website language indicates intent", ""},
	CodeIncumbent:    {"Incumbent named on site page", ""},
	CodeDoNotContact: {"CRM do not contact flag", ""},
	CodeGenerator:    {"EIA diesel generator present", ""},
	CodeDepot:        {"Bus depot or logistics yard present", ""},
	CodeBidOpen:      {"Relevant bid open", ""},
	CodePermitRecent: {"Tank or generator permit issued in last 12 months", ""},
	CodeMultiSite:    {"Brand appears at 2+ entities within 25 miles", ""},
}

// FormatReason renders one code. An empty value uses the code's fallback;
// unknown codes render as themselves.
func FormatReason(code, value string) string {
	t, ok := reasonTemplates[code]
	if !ok {
		return code
	}
	if !strings.Contains(t.format, "%s") {
		return t.format
	}
	if value == "" {
		value = t.fallback
	}
	return fmt.Sprintf(t.format, value)
}

// reasonValue extracts the concrete value a code interpolates, or "".
func reasonValue(code string, e *model.Entity) string {
	switch {
	case strings.HasPrefix(code, "CAP_"):
		if e.CapacityGal != nil && *e.CapacityGal > 0 {
			return message.NewPrinter(language.English).Sprintf("%d", int64(*e.CapacityGal))
		}
	case strings.HasPrefix(code, "FMCSA_"):
		if e.FleetSize != nil && *e.FleetSize > 0 {
			return strconv.Itoa(*e.FleetSize)
		}
	case code == CodeNear || code == CodeNear40:
		if e.DistanceMiles != nil {
			return fmt.Sprintf("%.1f", *e.DistanceMiles)
		}
	}
	return ""
}

// Compose joins the fragments for codes, in order, with "; ".
func Compose(codes []string, e *model.Entity) string {
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, FormatReason(code, reasonValue(code, e)))
	}
	return strings.Join(parts, "; ")
}
