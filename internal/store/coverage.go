package store

import (
	"context"
	"math"

	"github.com/huandu/go-sqlbuilder"
	"github.com/rotisserie/eris"

	"github.com/sepa-leadgen/internal/model"
)

// CodeMappingTotal labels the margin row of a code mapping table.
const CodeMappingTotal = "All"

// CountyCoverage is how completely one county's sites are described.
type CountyCoverage struct {
	County        string  `db:"county" json:"county"`
	TotalSites    int     `db:"total_sites" json:"total_sites"`
	DieselLike    int     `db:"diesel_like" json:"diesel_like"`
	DieselLikePct float64 `db:"-" json:"diesel_like_pct"`
	ActiveLike    int     `db:"active_like" json:"active_like"`
	ActiveLikePct float64 `db:"-" json:"active_like_pct"`
	Geocoded      int     `db:"geocoded" json:"geocoded"`
	GeocodedPct   float64 `db:"-" json:"geocode_pct"`
	WithSector    int     `db:"with_sector" json:"with_sector"`
	WithSectorPct float64 `db:"-" json:"sector_pct"`
}

// CodeMapping is one row of a raw code against the flag derived from it.
type CodeMapping struct {
	Code  string `db:"code" json:"code"`
	True  int    `db:"yes" json:"true"`
	False int    `db:"no" json:"false"`
	Total int    `db:"total" json:"total"`
}

// SectorComposition is one sector's share of the universe.
type SectorComposition struct {
	Sector     model.Sector `db:"sector" json:"sector"`
	Count      int          `db:"n" json:"count"`
	PctOfTotal float64      `db:"-" json:"pct_of_total"`
	AvgScore   *float64     `db:"avg_score" json:"avg_score"`
}

// Coverage is the QA view of the stored universe: per-county coverage,
// how raw tank codes map to the diesel and active flags, and the sector mix.
type Coverage struct {
	Counties []CountyCoverage    `json:"counties"`
	Products []CodeMapping       `json:"product_code_diesel_like"`
	Statuses []CodeMapping       `json:"status_code_active_like"`
	Sectors  []SectorComposition `json:"sectors"`
}

// percent is n/total on a 0-100 scale rounded to one decimal.
func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}

func countyCoverageQuery() (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"county",
		"COUNT(*) AS total_sites",
		"COUNT(*) FILTER (WHERE is_diesel_like) AS diesel_like",
		"COUNT(*) FILTER (WHERE is_active_like) AS active_like",
		"COUNT(latitude) AS geocoded",
		sb.As("COUNT(*) FILTER (WHERE sector_primary <> "+sb.Var(string(model.SectorUnknown))+")", "with_sector"),
	)
	sb.From("entity")
	sb.Where(sb.NotEqual("county", ""))
	sb.GroupBy("county")
	sb.OrderBy("county")
	return sb.Build()
}

// codeMappingQuery crosstabs a raw code column against a boolean flag.
func codeMappingQuery(codeColumn, flagColumn string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		sb.As(codeColumn, "code"),
		sb.As("COUNT(*) FILTER (WHERE "+flagColumn+")", "yes"),
		sb.As("COUNT(*) FILTER (WHERE NOT "+flagColumn+")", "no"),
		"COUNT(*) AS total",
	)
	sb.From("entity")
	sb.GroupBy(codeColumn)
	sb.OrderBy(codeColumn)
	return sb.Build()
}

func sectorCompositionQuery() (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"e.sector_primary AS sector",
		"COUNT(*) AS n",
		"AVG(s.score) AS avg_score",
	)
	sb.From("entity e")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "lead_score s", "s.entity_id = e.entity_id")
	sb.GroupBy("e.sector_primary")
	sb.OrderBy("n DESC", "sector")
	return sb.Build()
}

// withMargin appends the column totals row.
func withMargin(rows []CodeMapping) []CodeMapping {
	m := CodeMapping{Code: CodeMappingTotal}
	for _, r := range rows {
		m.True += r.True
		m.False += r.False
		m.Total += r.Total
	}
	return append(rows, m)
}

// Coverage computes the QA report over the stored entities and scores.
func (s *Store) Coverage(ctx context.Context) (*Coverage, error) {
	cov := &Coverage{}

	query, args := countyCoverageQuery()
	if err := s.db.SelectContext(ctx, &cov.Counties, query, args...); err != nil {
		return nil, eris.Wrap(err, "failed to compute county coverage")
	}
	for i := range cov.Counties {
		c := &cov.Counties[i]
		c.DieselLikePct = percent(c.DieselLike, c.TotalSites)
		c.ActiveLikePct = percent(c.ActiveLike, c.TotalSites)
		c.GeocodedPct = percent(c.Geocoded, c.TotalSites)
		c.WithSectorPct = percent(c.WithSector, c.TotalSites)
	}

	query, args = codeMappingQuery("product_code", "is_diesel_like")
	if err := s.db.SelectContext(ctx, &cov.Products, query, args...); err != nil {
		return nil, eris.Wrap(err, "failed to map product codes")
	}
	cov.Products = withMargin(cov.Products)

	query, args = codeMappingQuery("status_code", "is_active_like")
	if err := s.db.SelectContext(ctx, &cov.Statuses, query, args...); err != nil {
		return nil, eris.Wrap(err, "failed to map status codes")
	}
	cov.Statuses = withMargin(cov.Statuses)

	query, args = sectorCompositionQuery()
	if err := s.db.SelectContext(ctx, &cov.Sectors, query, args...); err != nil {
		return nil, eris.Wrap(err, "failed to compute sector composition")
	}
	var total int
	for _, sc := range cov.Sectors {
		total += sc.Count
	}
	for i := range cov.Sectors {
		cov.Sectors[i].PctOfTotal = percent(cov.Sectors[i].Count, total)
	}
	return cov, nil
}
