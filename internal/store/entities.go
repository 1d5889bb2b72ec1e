package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/model"
)

// batchRows keeps multi-row inserts well under the Postgres bind limit.
const batchRows = 500

var entityColumns = []string{
	"entity_id", "facility_name", "address", "address_2", "city", "state", "zip", "county",
	"latitude", "longitude", "source",
	"product_code", "status_code", "capacity_gal", "capacity_bucket", "is_diesel_like", "is_active_like",
	"sector_primary", "sector_confidence", "naics_code", "maps_category",
	"distance_miles", "fleet_size",
	"is_hospital", "is_school", "is_data_center", "is_echo", "web_intent", "generator_flag",
	"echo_flag", "depot_flag", "bid_open", "permit_recent", "multi_site", "has_incumbent", "is_dnc",
}

// entityValues lists e's fields in entityColumns order.
func entityValues(e *model.Entity) []interface{} {
	return []interface{}{
		e.ID, e.Name, e.Address, e.Address2, e.City, e.State, e.Zip, e.County,
		e.Lat, e.Lon, e.Source,
		e.ProductCode, e.StatusCode, e.CapacityGal, e.CapacityBucket, e.DieselLike, e.ActiveLike,
		string(e.SectorPrimary), e.SectorConfidence, e.NAICSCode, e.MapsCategory,
		e.DistanceMiles, e.FleetSize,
		e.Hospital, e.School, e.DataCenter, e.Echo, e.WebIntent, e.Generator,
		e.EchoFacility, e.Depot, e.BidOpen, e.PermitRecent, e.MultiSite, e.Incumbent, e.DoNotContact,
	}
}

// excludedAssignments renders "col = EXCLUDED.col" for an upsert.
func excludedAssignments(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	return strings.Join(parts, ", ")
}

// prefixed qualifies columns with a table alias.
func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

func upsertEntitiesQuery(entities []model.Entity) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("entity")
	ib.Cols(entityColumns...)
	for i := range entities {
		ib.Values(entityValues(&entities[i])...)
	}
	query, args := ib.Build()
	query += " ON CONFLICT (entity_id) DO UPDATE SET " + excludedAssignments(entityColumns[1:]) + ", updated_at = NOW()"
	return query, args
}

// UpsertEntities inserts or updates entities by entity_id in one transaction.
func (s *Store) UpsertEntities(ctx context.Context, entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(entities); start += batchRows {
			end := min(start+batchRows, len(entities))
			query, args := upsertEntitiesQuery(entities[start:end])
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return eris.Wrapf(err, "failed to upsert entities %d-%d", start, end)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Info("entities upserted", zap.Int("count", len(entities)))
	return nil
}

// LoadEntities returns every stored entity ordered by entity_id.
func (s *Store) LoadEntities(ctx context.Context) ([]model.Entity, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(entityColumns...)
	sb.From("entity")
	sb.OrderBy("entity_id")

	query, args := sb.Build()
	var out []model.Entity
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, eris.Wrap(err, "failed to load entities")
	}
	return out, nil
}
