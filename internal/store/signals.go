package store

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/model"
)

var signalColumns = []string{"signal_id", "entity_id", "signal_type", "signal_value", "source", "created_at"}

func upsertSignalsQuery(signals []model.Signal) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("signals")
	ib.Cols(signalColumns...)
	for _, sig := range signals {
		ib.Values(sig.SignalID, sig.EntityID, sig.SignalType, sig.SignalValue, sig.Source, sig.CreatedAt)
	}
	query, args := ib.Build()
	query += " ON CONFLICT (signal_id) DO UPDATE SET " + excludedAssignments([]string{"signal_value", "source", "created_at"})
	return query, args
}

// UpsertSignals inserts signals, replacing value and source of any signal
// already stored under the same signal_id.
func (s *Store) UpsertSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(signals); start += batchRows {
			end := min(start+batchRows, len(signals))
			query, args := upsertSignalsQuery(dedupeSignals(signals[start:end]))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return eris.Wrapf(err, "failed to upsert signals %d-%d", start, end)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Info("signals upserted", zap.Int("count", len(signals)))
	return nil
}

// dedupeSignals keeps the last signal per id. Postgres rejects a single
// upsert statement that touches the same row twice.
func dedupeSignals(signals []model.Signal) []model.Signal {
	pos := make(map[string]int, len(signals))
	out := make([]model.Signal, 0, len(signals))
	for _, sig := range signals {
		if i, ok := pos[sig.SignalID]; ok {
			out[i] = sig
			continue
		}
		pos[sig.SignalID] = len(out)
		out = append(out, sig)
	}
	return out
}

// SignalsFor returns the signals of one entity ordered by type.
func (s *Store) SignalsFor(ctx context.Context, entityID string) ([]model.Signal, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(signalColumns...)
	sb.From("signals")
	sb.Where(sb.Equal("entity_id", entityID))
	sb.OrderBy("signal_type")

	query, args := sb.Build()
	out := []model.Signal{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, eris.Wrapf(err, "failed to load signals for %s", entityID)
	}
	return out, nil
}
