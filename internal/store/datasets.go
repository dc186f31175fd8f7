package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"compasseval/internal/dataset"
)

// UpsertOutcome reports what UpsertDataset did.
type UpsertOutcome string

const (
	// DatasetCreated means no dataset with the name existed.
	DatasetCreated UpsertOutcome = "created"
	// DatasetUnchanged means the stored examples already matched.
	DatasetUnchanged UpsertOutcome = "unchanged"
	// DatasetUpdated means the stored examples were replaced.
	DatasetUpdated UpsertOutcome = "updated"
)

// DatasetRecord identifies a stored dataset.
type DatasetRecord struct {
	ID          string
	Name        string
	Fingerprint string
	Revision    int
	Outcome     UpsertOutcome
}

// upsertAttempts bounds retries when a concurrent writer wins the race.
const upsertAttempts = 3

// UpsertDataset stores cases under name with one existence check.
//
// An absent dataset is inserted with its examples. A dataset whose content
// fingerprint matches is left alone. Otherwise the examples are replaced under
// a new revision and the dataset row is updated in place, so its id is stable.
// The check and the write share a transaction; a write conflict with another
// push is retried against the committed state.
func UpsertDataset(ctx context.Context, db *sql.DB, name, source, description string, cases []dataset.Case) (DatasetRecord, error) {
	if db == nil {
		return DatasetRecord{}, errors.New("store: db is nil")
	}
	if name == "" {
		return DatasetRecord{}, errors.New("store: dataset name is required")
	}
	fingerprint, err := Fingerprint(cases)
	if err != nil {
		return DatasetRecord{}, err
	}

	var record DatasetRecord
	for attempt := 1; ; attempt++ {
		err = withTx(ctx, db, func(tx *sql.Tx) error {
			var txErr error
			record, txErr = upsertInTx(ctx, tx, name, source, description, fingerprint, cases)
			return txErr
		})
		if err == nil || !isWriteConflict(err) || attempt == upsertAttempts {
			break
		}
	}
	if err != nil {
		return DatasetRecord{}, err
	}
	return record, nil
}

func upsertInTx(ctx context.Context, tx *sql.Tx, name, source, description, fingerprint string, cases []dataset.Case) (DatasetRecord, error) {
	var (
		id             string
		storedPrint    string
		storedRevision int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT CAST(dataset_id AS VARCHAR), fingerprint, revision FROM datasets WHERE name = ?`, name,
	).Scan(&id, &storedPrint, &storedRevision)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return insertDataset(ctx, tx, name, source, description, fingerprint, cases)
	case err != nil:
		return DatasetRecord{}, fmt.Errorf("lookup dataset: %w", err)
	}

	record := DatasetRecord{ID: id, Name: name, Fingerprint: fingerprint, Revision: storedRevision, Outcome: DatasetUnchanged}
	if storedPrint == fingerprint {
		return record, nil
	}
	record.Revision = storedRevision + 1
	record.Outcome = DatasetUpdated
	if err := insertExamples(ctx, tx, id, record.Revision, cases); err != nil {
		return DatasetRecord{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM examples WHERE dataset_id = ? AND revision < ?`, id, record.Revision); err != nil {
		return DatasetRecord{}, fmt.Errorf("drop old examples: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE datasets SET fingerprint = ?, revision = ?, description = ?, source = ?, updated_at = now() WHERE dataset_id = ?`,
		fingerprint, record.Revision, description, source, id,
	); err != nil {
		return DatasetRecord{}, fmt.Errorf("update dataset: %w", err)
	}
	return record, nil
}

func insertDataset(ctx context.Context, tx *sql.Tx, name, source, description, fingerprint string, cases []dataset.Case) (DatasetRecord, error) {
	record := DatasetRecord{ID: uuid.NewString(), Name: name, Fingerprint: fingerprint, Revision: 1, Outcome: DatasetCreated}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (dataset_id, name, source, description, fingerprint, revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, now(), now())`,
		record.ID, name, source, description, fingerprint, record.Revision,
	); err != nil {
		return DatasetRecord{}, fmt.Errorf("insert dataset: %w", err)
	}
	if err := insertExamples(ctx, tx, record.ID, record.Revision, cases); err != nil {
		return DatasetRecord{}, err
	}
	return record, nil
}

// isWriteConflict reports a unique-key or transaction conflict raised when
// two writers touch the same dataset.
func isWriteConflict(err error) bool {
	var dbErr *duckdb.Error
	if !errors.As(err, &dbErr) {
		return false
	}
	return dbErr.Type == duckdb.ErrorTypeConstraint || dbErr.Type == duckdb.ErrorTypeTransaction
}

func insertExamples(ctx context.Context, tx *sql.Tx, datasetID string, revision int, cases []dataset.Case) error {
	for position, item := range cases {
		steps, err := encodeTrajectory(item.Trajectory)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO examples (dataset_id, revision, position, question, answer, trajectory) VALUES (?, ?, ?, ?, ?, ?)`,
			datasetID, revision, position, item.Question, item.Answer, steps,
		); err != nil {
			return fmt.Errorf("insert example %d: %w", position, err)
		}
	}
	return nil
}

// Examples returns the current cases of a dataset in order.
func Examples(ctx context.Context, db *sql.DB, datasetID string) ([]dataset.Case, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT e.question, e.answer, e.trajectory
		 FROM examples e JOIN datasets d ON d.dataset_id = e.dataset_id AND d.revision = e.revision
		 WHERE CAST(d.dataset_id AS VARCHAR) = ?
		 ORDER BY e.position`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var cases []dataset.Case
	for rows.Next() {
		var item dataset.Case
		var steps string
		if err := rows.Scan(&item.Question, &item.Answer, &steps); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		if item.Trajectory, err = decodeTrajectory(steps); err != nil {
			return nil, err
		}
		cases = append(cases, item)
	}
	return cases, rows.Err()
}

// withTx runs fn in a transaction, committing on success.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
