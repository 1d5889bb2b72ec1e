package store

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/model"
)

var scoreColumns = []string{"entity_id", "score", "tier", "reason_codes", "reason_text"}

func insertScoresQuery(scores []model.ScoreRecord) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("lead_score")
	ib.Cols(scoreColumns...)
	for _, r := range scores {
		ib.Values(r.EntityID, r.Score, string(r.Tier), r.JoinedCodes(), r.ReasonText)
	}
	return ib.Build()
}

// ReplaceScores swaps the whole lead_score table for scores in a single
// transaction, so readers see either the previous set or the new one.
func (s *Store) ReplaceScores(ctx context.Context, scores []model.ScoreRecord) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM lead_score"); err != nil {
			return eris.Wrap(err, "failed to clear lead_score")
		}
		for start := 0; start < len(scores); start += batchRows {
			end := min(start+batchRows, len(scores))
			query, args := insertScoresQuery(scores[start:end])
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return eris.Wrapf(err, "failed to insert scores %d-%d", start, end)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Info("scores replaced", zap.Int("count", len(scores)))
	return nil
}
