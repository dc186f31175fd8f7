package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"compasseval/internal/runner"
)

// ExperimentPrefix names every recorded evaluation run.
const ExperimentPrefix = "Compass API Agent Evaluation"

// RunRecord is one row of run history.
type RunRecord struct {
	RunID      string
	Experiment string
	Model      string
	Threshold  float64
	MeanScore  float64
	Pass       bool
	Cases      int
	Failing    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// ExperimentName labels a run of model.
func ExperimentName(model string) string {
	return fmt.Sprintf("%s (%s)", ExperimentPrefix, model)
}

// RecordRun stores a run and one row per scored case, keyed by the
// case position in the dataset.
func RecordRun(ctx context.Context, db *sql.DB, datasetID string, results runner.Results) error {
	if db == nil {
		return errors.New("store: db is nil")
	}
	if datasetID == "" || results.RunID == "" {
		return errors.New("store: dataset id and run id are required")
	}
	report := results.Report
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (run_id, dataset_id, experiment, model, threshold, mean_score, pass, cases, failing, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			results.RunID, datasetID, ExperimentName(results.Model), results.Model,
			report.Threshold, report.MeanScore, report.Pass, len(report.Results), len(report.FailingCases),
			results.StartedAt.UTC(), results.FinishedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, result := range report.Results {
			steps, err := encodeTrajectory(result.Run.Trajectory)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_results (run_id, position, thread_id, question, answer, trajectory, score_key, score, comment, error)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				results.RunID, result.Index, result.Run.ThreadID, result.Run.Case.Question, result.Run.Answer,
				steps, result.Key, result.Score, result.Comment, result.Run.Error,
			); err != nil {
				return fmt.Errorf("insert run result %d: %w", result.Index, err)
			}
		}
		return nil
	})
}

// RunHistory lists the most recent runs of a dataset, newest first.
func RunHistory(ctx context.Context, db *sql.DB, datasetName string, limit int) ([]RunRecord, error) {
	return queryHistory(ctx, db, `d.name = ?`, datasetName, limit)
}

// RunHistoryForSource lists recent runs of every dataset pushed from a fixture path.
func RunHistoryForSource(ctx context.Context, db *sql.DB, source string, limit int) ([]RunRecord, error) {
	return queryHistory(ctx, db, `d.source = ?`, source, limit)
}

func queryHistory(ctx context.Context, db *sql.DB, where, value string, limit int) ([]RunRecord, error) {
	if db == nil {
		return nil, errors.New("store: db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT r.run_id, r.experiment, r.model, r.threshold, r.mean_score, r.pass, r.cases, r.failing, r.started_at, r.finished_at
		 FROM runs r JOIN datasets d ON d.dataset_id = r.dataset_id
		 WHERE `+where+`
		 ORDER BY r.started_at DESC, r.run_id DESC
		 LIMIT ?`, value, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		if err := rows.Scan(
			&record.RunID, &record.Experiment, &record.Model, &record.Threshold, &record.MeanScore,
			&record.Pass, &record.Cases, &record.Failing, &record.StartedAt, &record.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
