package classify

import (
	"strings"
	"unicode"

	"github.com/sepa-leadgen/internal/model"
)

// Confidence levels produced by the sector classifier.
const (
	ConfidenceExact   = 100
	ConfidenceKeyword = 70
	ConfidencePartial = 50
)

const maxNoteTitle = 50

// sectorRule matches on NAICS code first and falls back to title keywords.
// Rules are evaluated in table order; the first hit wins.
type sectorRule struct {
	sector   model.Sector
	exact    []string
	prefixes []string
	keywords []string
}

// partialRule is the last-resort match on the three digit NAICS subsector.
type partialRule struct {
	sector   model.Sector
	prefixes []string
}

// Classification is the classifier result for one NAICS record.
type Classification struct {
	Sector     model.Sector
	Confidence int
	Notes      string
}

// Classifier assigns a business sector from a NAICS code and title. It holds
// no mutable state and is safe for concurrent use.
type Classifier struct {
	rules   []sectorRule
	partial []partialRule
}

// NewClassifier returns a classifier with the standard rule table. Education
// is checked before Fleet so that school bus depots land in Education.
func NewClassifier() *Classifier {
	return &Classifier{
		rules: []sectorRule{
			{
				sector:   model.SectorEducation,
				prefixes: []string{"611"},
				keywords: []string{"school", "district", "university", "college", "campus"},
			},
			{
				sector:   model.SectorFleet,
				prefixes: []string{"484", "485", "488"},
				keywords: []string{"trucking", "bus", "coach", "logistics", "intermodal", "yard", "terminal"},
			},
			{
				sector:   model.SectorConstruction,
				prefixes: []string{"23"},
				keywords: []string{"construction", "site work", "excavation", "paving", "utility contractor", "heavy civil"},
			},
			{
				sector:   model.SectorHealthcare,
				prefixes: []string{"621", "622", "623"},
				keywords: []string{"hospital", "medical center", "surgery", "nursing", "long term care"},
			},
			{
				sector:   model.SectorUtilities,
				exact:    []string{"518210"},
				prefixes: []string{"22"},
				keywords: []string{"utility", "power", "water", "wastewater", "data center", "colocation"},
			},
			{
				sector:   model.SectorManufacturing,
				prefixes: []string{"31", "32", "33"},
				keywords: []string{"plant", "fabrication", "manufacturing", "processing"},
			},
			{
				sector:   model.SectorPublic,
				prefixes: []string{"92"},
				keywords: []string{"township", "borough", "county", "municipal", "fire", "police", "public works"},
			},
			{
				sector:   model.SectorRetail,
				exact:    []string{"447110", "447190"},
				keywords: []string{"gas station", "convenience", "c store"},
			},
		},
		partial: []partialRule{
			{model.SectorFleet, []string{"484", "485", "488"}},
			{model.SectorHealthcare, []string{"621", "622", "623"}},
			{model.SectorEducation, []string{"611"}},
			{model.SectorUtilities, []string{"518"}},
		},
	}
}

// Classify returns the sector for an already normalised NAICS code and a
// free-text title. Unmatched records are Unknown with confidence 0.
func (c *Classifier) Classify(naicsCode, title string) Classification {
	title = strings.ToLower(strings.TrimSpace(title))

	for _, r := range c.rules {
		for _, code := range r.exact {
			if naicsCode == code {
				return Classification{r.sector, ConfidenceExact, "Exact NAICS match"}
			}
		}
		if naicsCode != "" {
			for _, p := range r.prefixes {
				if strings.HasPrefix(naicsCode, p) {
					return Classification{r.sector, ConfidenceExact, "NAICS prefix match"}
				}
			}
		}
		for _, kw := range r.keywords {
			if strings.Contains(title, kw) {
				return Classification{r.sector, ConfidenceKeyword, "Title keyword: " + truncate(title, maxNoteTitle)}
			}
		}
	}

	if len(naicsCode) >= 3 {
		sub := naicsCode[:3]
		for _, r := range c.partial {
			for _, p := range r.prefixes {
				if sub == p {
					return Classification{r.sector, ConfidencePartial, "Partial NAICS prefix match"}
				}
			}
		}
	}

	return Classification{model.SectorUnknown, 0, "No match found"}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// NormalizeNAICS keeps only digits, left-pads to six and truncates to six.
// Returns "" when the input has no digits.
func NormalizeNAICS(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return ""
	}
	if len(digits) < 6 {
		digits = strings.Repeat("0", 6-len(digits)) + digits
	}
	return digits[:6]
}

// Flags are the facility-type indicators derived from a NAICS code.
type Flags struct {
	Hospital   bool
	School     bool
	DataCenter bool
}

// EntityFlags derives facility-type flags from a normalised NAICS code.
func EntityFlags(naicsCode string) Flags {
	return Flags{
		Hospital:   strings.HasPrefix(naicsCode, "622"),
		School:     strings.HasPrefix(naicsCode, "611"),
		DataCenter: naicsCode == "518210",
	}
}

// Apply sets the flags on e without clearing any flag already set.
func (f Flags) Apply(e *model.Entity) {
	e.Hospital = e.Hospital || f.Hospital
	e.School = e.School || f.School
	e.DataCenter = e.DataCenter || f.DataCenter
}
