package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/rotisserie/eris"

	"github.com/sepa-leadgen/internal/model"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = eris.New("not found")

// Lead is a scored entity as served to dashboards and exports.
type Lead struct {
	model.Entity
	Score       int        `json:"score"`
	Tier        model.Tier `json:"tier"`
	ReasonCodes []string   `json:"reason_codes"`
	ReasonText  string     `json:"reason_text"`
}

// ScoreRecord returns the score half of the lead.
func (l Lead) ScoreRecord() model.ScoreRecord {
	return model.ScoreRecord{
		EntityID:    l.ID,
		Score:       l.Score,
		Tier:        l.Tier,
		ReasonCodes: l.ReasonCodes,
		ReasonText:  l.ReasonText,
	}
}

type leadRow struct {
	model.Entity
	Score       int        `db:"score"`
	Tier        model.Tier `db:"tier"`
	ReasonCodes string     `db:"reason_codes"`
	ReasonText  string     `db:"reason_text"`
}

func (r leadRow) lead() Lead {
	return Lead{
		Entity:      r.Entity,
		Score:       r.Score,
		Tier:        r.Tier,
		ReasonCodes: model.SplitCodes(r.ReasonCodes),
		ReasonText:  r.ReasonText,
	}
}

// LeadFilter narrows ListLeads. Zero values do not filter; Limit <= 0
// returns every matching lead.
type LeadFilter struct {
	Tier     model.Tier
	MinScore *int
	Sector   model.Sector
	County   string
	Search   string
	Located  bool
	Limit    int
	Offset   int
}

func leadSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cols := prefixed("e", entityColumns)
	cols = append(cols, "s.score", "s.tier", "s.reason_codes", "s.reason_text")
	sb.Select(cols...)
	sb.From("entity e")
	sb.Join("lead_score s", "s.entity_id = e.entity_id")
	return sb
}

// likeEscaper makes LIKE wildcards in user search text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func listLeadsQuery(f LeadFilter) (string, []interface{}) {
	sb := leadSelect()
	if f.Tier != "" {
		sb.Where(sb.Equal("s.tier", string(f.Tier)))
	}
	if f.MinScore != nil {
		sb.Where(sb.GreaterEqualThan("s.score", *f.MinScore))
	}
	if f.Sector != "" {
		sb.Where(sb.Equal("e.sector_primary", string(f.Sector)))
	}
	if c := strings.TrimSpace(f.County); c != "" {
		sb.Where(sb.Equal("LOWER(e.county)", strings.ToLower(c)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		sb.Where("e.facility_name ILIKE " + sb.Var("%"+likeEscaper.Replace(q)+"%") + ` ESCAPE '\'`)
	}
	if f.Located {
		sb.Where(sb.IsNotNull("e.latitude"), sb.IsNotNull("e.longitude"))
	}
	sb.OrderBy("s.score DESC", "e.entity_id")
	if f.Limit > 0 {
		sb.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sb.Offset(f.Offset)
	}
	return sb.Build()
}

// ListLeads returns scored entities, best score first.
func (s *Store) ListLeads(ctx context.Context, f LeadFilter) ([]Lead, error) {
	query, args := listLeadsQuery(f)
	var rows []leadRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, eris.Wrap(err, "failed to list leads")
	}
	out := make([]Lead, len(rows))
	for i, r := range rows {
		out[i] = r.lead()
	}
	return out, nil
}

// GetLead returns one scored entity or ErrNotFound.
func (s *Store) GetLead(ctx context.Context, entityID string) (*Lead, error) {
	sb := leadSelect()
	sb.Where(sb.Equal("e.entity_id", entityID))
	query, args := sb.Build()

	var row leadRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "lead %s", entityID)
		}
		return nil, eris.Wrapf(err, "failed to get lead %s", entityID)
	}
	lead := row.lead()
	return &lead, nil
}
