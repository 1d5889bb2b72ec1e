package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/model"
)

// Run kinds and statuses recorded in pipeline_run.
const (
	RunBuild   = "build"
	RunRescore = "rescore"

	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one audited pipeline execution.
type Run struct {
	RunID      string          `json:"run_id" db:"run_id"`
	Kind       string          `json:"kind" db:"kind"`
	Status     string          `json:"status" db:"status"`
	AsOf       time.Time       `json:"as_of" db:"as_of"`
	StartedAt  time.Time       `json:"started_at" db:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
	Stats      json.RawMessage `json:"stats,omitempty" db:"stats"`
	Error      string          `json:"error,omitempty" db:"error"`
}

// StartRun records a running pipeline execution and returns its id. An empty
// runID gets a fresh uuid.
func (s *Store) StartRun(ctx context.Context, runID, kind string, asOf time.Time) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("pipeline_run")
	ib.Cols("run_id", "kind", "status", "as_of", "started_at")
	ib.Values(runID, kind, RunRunning, asOf, time.Now().UTC())

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", eris.Wrapf(err, "failed to start run %s", runID)
	}
	zap.L().Info("pipeline run started", zap.String("run_id", runID), zap.String("kind", kind))
	return runID, nil
}

// FinishRun closes a run with its stats, or with runErr when it failed.
func (s *Store) FinishRun(ctx context.Context, runID string, stats interface{}, runErr error) error {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	var payload interface{}
	if stats != nil {
		b, err := json.Marshal(stats)
		if err != nil {
			return eris.Wrap(err, "failed to encode run stats")
		}
		payload = string(b)
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("pipeline_run")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("finished_at", time.Now().UTC()),
		ub.Assign("stats", payload),
		ub.Assign("error", msg),
	)
	ub.Where(ub.Equal("run_id", runID))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "failed to finish run %s", runID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	zap.L().Info("pipeline run finished", zap.String("run_id", runID), zap.String("status", status))
	return nil
}

// LastRun returns the most recently started run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("run_id", "kind", "status", "as_of", "started_at", "finished_at", "stats", "error")
	sb.From("pipeline_run")
	sb.OrderBy("started_at").Desc()
	sb.Limit(1)

	query, args := sb.Build()
	var run Run
	if err := s.db.GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "failed to load last run")
	}
	return &run, nil
}

// Summary is the dashboard overview of the stored universe.
type Summary struct {
	Entities int                  `json:"entities"`
	Located  int                  `json:"located"`
	Signals  int                  `json:"signals"`
	Scored   int                  `json:"scored"`
	Tiers    map[model.Tier]int   `json:"tiers"`
	Sectors  map[model.Sector]int `json:"sectors"`
	LastRun  *Run                 `json:"last_run,omitempty"`
}

type countRow struct {
	Key   string `db:"k"`
	Count int    `db:"n"`
}

// Stats summarises the stored universe.
func (s *Store) Stats(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		Tiers:   map[model.Tier]int{},
		Sectors: map[model.Sector]int{},
	}

	err := s.db.QueryRowxContext(ctx,
		"SELECT COUNT(*), COUNT(latitude) FROM entity").Scan(&sum.Entities, &sum.Located)
	if err != nil {
		return nil, eris.Wrap(err, "failed to count entities")
	}
	if err := s.db.GetContext(ctx, &sum.Signals, "SELECT COUNT(*) FROM signals"); err != nil {
		return nil, eris.Wrap(err, "failed to count signals")
	}

	var tiers []countRow
	if err := s.db.SelectContext(ctx, &tiers, "SELECT tier AS k, COUNT(*) AS n FROM lead_score GROUP BY tier"); err != nil {
		return nil, eris.Wrap(err, "failed to count tiers")
	}
	for _, r := range tiers {
		sum.Tiers[model.Tier(r.Key)] = r.Count
		sum.Scored += r.Count
	}

	var sectors []countRow
	if err := s.db.SelectContext(ctx, &sectors, "SELECT sector_primary AS k, COUNT(*) AS n FROM entity GROUP BY sector_primary"); err != nil {
		return nil, eris.Wrap(err, "failed to count sectors")
	}
	for _, r := range sectors {
		sum.Sectors[model.Sector(r.Key)] = r.Count
	}

	if sum.LastRun, err = s.LastRun(ctx); err != nil {
		return nil, err
	}
	return sum, nil
}
