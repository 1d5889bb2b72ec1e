package score

import (
	"github.com/rotisserie/eris"

	"github.com/sepa-leadgen/internal/classify"
	"github.com/sepa-leadgen/internal/debug"
	"github.com/sepa-leadgen/internal/model"
)

// Engine evaluates the rule table against entities. It is stateless apart
// from its private copy of the rules and safe for concurrent use.
type Engine struct {
	rules *RuleTable
}

// NewEngine creates an engine with the default rule table.
func NewEngine() *Engine {
	return &Engine{rules: DefaultRuleTable()}
}

// NewEngineWithRules validates rt and creates an engine from a copy of it.
func NewEngineWithRules(rt *RuleTable) (*Engine, error) {
	if rt == nil {
		return nil, eris.Wrap(model.ErrConfiguration, "nil rule table")
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return &Engine{rules: rt.clone()}, nil
}

// Rules returns a copy of the engine's rule table.
func (en *Engine) Rules() *RuleTable {
	return en.rules.clone()
}

// Calculate scores one entity.
func (en *Engine) Calculate(e *model.Entity) model.ScoreRecord {
	return en.CalculateDebug(false, e)
}

// CalculateDebug is Calculate with optional debug output. Rules fire in a
// fixed order which is the order reason codes are reported in; the total is
// capped at MaxScore but has no floor.
func (en *Engine) CalculateDebug(localDebug bool, e *model.Entity) model.ScoreRecord {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	w := en.rules.Weights
	score := 0
	codes := []string{}
	fire := func(code string) {
		score += w[code]
		codes = append(codes, code)
		debug.DebugOutput(localDebug, "%s: %+d", code, w[code])
	}

	if e.DieselLike {
		fire(CodeDieselTank)
	}

	switch e.CapacityBucket {
	case classify.Bucket20K:
		fire(CodeCap20K)
	case classify.Bucket10K:
		fire(CodeCap10K)
	case classify.Bucket5K:
		fire(CodeCap5K)
	case classify.Bucket1K:
		fire(CodeCap1K)
	}

	if e.ActiveLike {
		fire(CodeActive)
	}

	if e.FleetSize != nil {
		switch n := *e.FleetSize; {
		case n >= en.rules.FleetLarge:
			fire(CodeFleet50)
		case n >= en.rules.FleetSmall:
			fire(CodeFleet10)
		}
	}

	if e.Hospital {
		fire(CodeHospital)
	}
	if e.School {
		fire(CodeSchool)
	}
	if e.DataCenter {
		fire(CodeDataCenter)
	}
	if e.Echo {
		fire(CodeEcho)
	}

	if e.DistanceMiles != nil {
		switch d := *e.DistanceMiles; {
		case d <= en.rules.NearMiles:
			fire(CodeNear)
		case d <= en.rules.Near40Miles:
			fire(CodeNear40)
		}
	}

	if e.WebIntent {
		fire(CodeWebIntent)
	}

	if code, ok := sectorCodes[e.SectorPrimary]; ok {
		fire(code)
	}

	if e.Generator {
		fire(CodeGenerator)
	}
	if e.EchoFacility {
		fire(CodeEcho)
	}
	if e.Depot {
		fire(CodeDepot)
	}
	if e.BidOpen {
		fire(CodeBidOpen)
	}
	if e.PermitRecent {
		fire(CodePermitRecent)
	}
	if e.MultiSite {
		fire(CodeMultiSite)
	}

	if e.Incumbent {
		fire(CodeIncumbent)
	}
	if e.DoNotContact {
		fire(CodeDoNotContact)
	}

	if score > en.rules.MaxScore {
		debug.DebugOutput(localDebug, "Capping %d at %d", score, en.rules.MaxScore)
		score = en.rules.MaxScore
	}

	return model.ScoreRecord{
		EntityID:    e.ID,
		Score:       score,
		Tier:        en.Tier(score),
		ReasonCodes: codes,
		ReasonText:  Compose(codes, e),
	}
}

// Tier maps a score to its band. Lower edges are inclusive.
func (en *Engine) Tier(score int) model.Tier {
	switch {
	case score >= en.rules.Tiers.A:
		return model.TierA
	case score >= en.rules.Tiers.B:
		return model.TierB
	case score >= en.rules.Tiers.C:
		return model.TierC
	default:
		return model.TierPark
	}
}

// ScoreAll scores every entity, preserving input order.
func (en *Engine) ScoreAll(entities []model.Entity) ([]model.ScoreRecord, error) {
	if len(entities) == 0 {
		return nil, eris.Wrap(model.ErrInputShape, "no entities to score")
	}
	out := make([]model.ScoreRecord, len(entities))
	for i := range entities {
		out[i] = en.Calculate(&entities[i])
	}
	return out, nil
}

// TierCounts tallies records per tier.
func TierCounts(records []model.ScoreRecord) map[model.Tier]int {
	counts := map[model.Tier]int{
		model.TierA:    0,
		model.TierB:    0,
		model.TierC:    0,
		model.TierPark: 0,
	}
	for _, r := range records {
		counts[r.Tier]++
	}
	return counts
}
