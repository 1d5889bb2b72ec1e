// Package score turns a merged entity into a lead score, tier and an ordered
// human-readable justification.
package score

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sepa-leadgen/internal/model"
)

// Reason codes, one per scoring rule.
const (
	CodeDieselTank   = "D_TANK"
	CodeCap20K       = "CAP_20K"
	CodeCap10K       = "CAP_10K"
	CodeCap5K        = "CAP_5K"
	CodeCap1K        = "CAP_1K"
	CodeActive       = "ACTIVE"
	CodeFleet50      = "FMCSA_50"
	CodeFleet10      = "FMCSA_10"
	CodeHospital     = "HOSP"
	CodeSchool       = "SCHOOL"
	CodeDataCenter   = "DCENTER"
	CodeEcho         = "ECHO"
	CodeNear         = "NEAR"
	CodeNear40       = "NEAR40"
	CodeWebIntent    = "WEB_INTENT"
	CodeSectorFleet  = "SECTOR_FLEET"
	CodeSectorConstr = "SECTOR_CONSTR"
	CodeSectorHealth = "SECTOR_HEALTH"
	CodeSectorEdu    = "SECTOR_EDU"
	CodeSectorUtilDC = "SECTOR_UTIL_DC"
	CodeSectorMfg    = "SECTOR_MFG"
	CodeSectorPublic = "SECTOR_PUBLIC"
	CodeSectorRetail = "SECTOR_RETAIL"
	CodeGenerator    = "EIA_GEN"
	CodeDepot        = "OSM_DEPOT"
	CodeBidOpen      = "BID_OPEN"
	CodePermitRecent = "PERMIT_RECENT"
	CodeMultiSite    = "MULTI_SITE"
	CodeIncumbent    = "INCUMBENT"
	CodeDoNotContact = "DNC"
)

var sectorCodes = map[model.Sector]string{
	model.SectorFleet:         CodeSectorFleet,
	model.SectorConstruction:  CodeSectorConstr,
	model.SectorHealthcare:    CodeSectorHealth,
	model.SectorEducation:     CodeSectorEdu,
	model.SectorUtilities:     CodeSectorUtilDC,
	model.SectorManufacturing: CodeSectorMfg,
	model.SectorPublic:        CodeSectorPublic,
	model.SectorRetail:        CodeSectorRetail,
}

// TierCutoffs are the inclusive lower bounds of each tier.
type TierCutoffs struct {
	A int `yaml:"a"`
	B int `yaml:"b"`
	C int `yaml:"c"`
}

// RuleTable is the full scoring configuration. An Engine copies it on
// construction, so later edits to a table never affect a running engine.
type RuleTable struct {
	Weights     map[string]int `yaml:"weights"`
	Tiers       TierCutoffs    `yaml:"tiers"`
	MaxScore    int            `yaml:"max_score"`
	NearMiles   float64        `yaml:"near_miles"`
	Near40Miles float64        `yaml:"near40_miles"`
	FleetLarge  int            `yaml:"fleet_large"`
	FleetSmall  int            `yaml:"fleet_small"`
}

// DefaultRuleTable returns the production weights: A >= 80, B >= 60,
// C >= 40, capped at 100.
func DefaultRuleTable() *RuleTable {
	return &RuleTable{
		Weights: map[string]int{
			CodeDieselTank:   40,
			CodeCap20K:       25,
			CodeCap10K:       20,
			CodeCap5K:        15,
			CodeCap1K:        8,
			CodeActive:       15,
			CodeFleet50:      20,
			CodeFleet10:      10,
			CodeHospital:     15,
			CodeSchool:       15,
			CodeDataCenter:   15,
			CodeEcho:         10,
			CodeNear:         10,
			CodeNear40:       5,
			CodeWebIntent:    10,
			CodeSectorFleet:  20,
			CodeSectorConstr: 15,
			CodeSectorHealth: 15,
			CodeSectorEdu:    10,
			CodeSectorUtilDC: 15,
			CodeSectorMfg:    10,
			CodeSectorPublic: 5,
			CodeSectorRetail: 5,
			CodeGenerator:    15,
			CodeDepot:        10,
			CodeBidOpen:      10,
			CodePermitRecent: 10,
			CodeMultiSite:    5,
			CodeIncumbent:    -10,
			CodeDoNotContact: -15,
		},
		Tiers:       TierCutoffs{A: 80, B: 60, C: 40},
		MaxScore:    100,
		NearMiles:   25,
		Near40Miles: 40,
		FleetLarge:  50,
		FleetSmall:  10,
	}
}

// Codes returns every known reason code in sorted order.
func Codes() []string {
	defaults := DefaultRuleTable().Weights
	out := make([]string, 0, len(defaults))
	for code := range defaults {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// LoadRuleTable reads a YAML rule table. Fields absent from the file keep
// their default values, so a file may override only a few weights.
func LoadRuleTable(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read rule table %s", path)
	}
	return ParseRuleTable(data)
}

// ParseRuleTable decodes YAML over the default table and validates it.
func ParseRuleTable(data []byte) (*RuleTable, error) {
	rt := DefaultRuleTable()
	if err := yaml.Unmarshal(data, rt); err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "invalid rule table: %v", err)
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

// Validate checks that every weight names a known rule and that the tier
// cutoffs and bands are ordered.
func (rt *RuleTable) Validate() error {
	known := DefaultRuleTable().Weights
	for code := range rt.Weights {
		if _, ok := known[code]; !ok {
			return eris.Wrapf(model.ErrConfiguration, "unknown reason code %q in rule table", code)
		}
	}
	if rt.MaxScore <= 0 {
		return eris.Wrapf(model.ErrConfiguration, "max_score %d must be positive", rt.MaxScore)
	}
	if !(rt.Tiers.A > rt.Tiers.B && rt.Tiers.B > rt.Tiers.C) {
		return eris.Wrapf(model.ErrConfiguration, "tier cutoffs must descend: a=%d b=%d c=%d", rt.Tiers.A, rt.Tiers.B, rt.Tiers.C)
	}
	if rt.Tiers.A > rt.MaxScore {
		return eris.Wrapf(model.ErrConfiguration, "tier a cutoff %d above max_score %d", rt.Tiers.A, rt.MaxScore)
	}
	if rt.NearMiles <= 0 || rt.Near40Miles < rt.NearMiles {
		return eris.Wrapf(model.ErrConfiguration, "distance bands invalid: near=%.1f near40=%.1f", rt.NearMiles, rt.Near40Miles)
	}
	if rt.FleetSmall <= 0 || rt.FleetLarge <= rt.FleetSmall {
		return eris.Wrapf(model.ErrConfiguration, "fleet thresholds invalid: large=%d small=%d", rt.FleetLarge, rt.FleetSmall)
	}
	return nil
}

func (rt *RuleTable) clone() *RuleTable {
	c := *rt
	c.Weights = make(map[string]int, len(rt.Weights))
	for k, v := range rt.Weights {
		c.Weights[k] = v
	}
	return &c
}

// YAML renders the table in the format LoadRuleTable reads.
func (rt *RuleTable) YAML() ([]byte, error) {
	out, err := yaml.Marshal(rt)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode rule table")
	}
	return out, nil
}
