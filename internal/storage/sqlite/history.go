// Package sqlite keeps an audit log of classification runs in SQLite.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"partcat/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		input_path  TEXT NOT NULL,
		output_path TEXT NOT NULL,
		sheet       TEXT DEFAULT '',
		mode        TEXT NOT NULL,
		llm_provider TEXT DEFAULT '',
		llm_model   TEXT DEFAULT '',
		pending     INTEGER DEFAULT 0,
		fallbacks   INTEGER DEFAULT 0,
		started_at  DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS classifications (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL,
		row_index     INTEGER NOT NULL,
		sku           TEXT DEFAULT '',
		label         TEXT NOT NULL,
		source        TEXT NOT NULL,
		classified_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_classifications_run ON classifications(run_id);
	CREATE INDEX IF NOT EXISTS idx_classifications_sku ON classifications(sku);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InsertRun(db *sql.DB, run domain.RunRecord) error {
	_, err := db.Exec(
		`INSERT INTO runs (id, input_path, output_path, sheet, mode, llm_provider, llm_model, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.OutputPath, run.Sheet, string(run.Mode), run.Provider, run.Model, run.StartedAt,
	)
	return err
}

func FinishRun(db *sql.DB, runID string, finishedAt time.Time, pending, fallbacks int) error {
	res, err := db.Exec(
		`UPDATE runs SET finished_at = ?, pending = ?, fallbacks = ? WHERE id = ?`,
		finishedAt, pending, fallbacks, runID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

func GetRun(db *sql.DB, runID string) (domain.RunRecord, error) {
	var run domain.RunRecord
	var mode string
	var finished sql.NullTime
	err := db.QueryRow(
		`SELECT id, input_path, output_path, sheet, mode, llm_provider, llm_model, pending, fallbacks, started_at, finished_at
		 FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.InputPath, &run.OutputPath, &run.Sheet, &mode, &run.Provider, &run.Model,
		&run.Pending, &run.Fallbacks, &run.StartedAt, &finished)
	if err != nil {
		return domain.RunRecord{}, err
	}
	run.Mode = domain.Mode(mode)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}

func InsertClassifications(db *sql.DB, records []domain.ClassificationRecord) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO classifications (run_id, row_index, sku, label, source, classified_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		classifiedAt := rec.ClassifiedAt
		if classifiedAt.IsZero() {
			classifiedAt = time.Now()
		}
		if _, err := stmt.Exec(rec.RunID, rec.RowIndex, rec.SKU, rec.Label, string(rec.Source), classifiedAt); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

func GetClassificationsByRun(db *sql.DB, runID string) ([]domain.ClassificationRecord, error) {
	rows, err := db.Query(
		`SELECT id, run_id, row_index, sku, label, source, classified_at
		 FROM classifications WHERE run_id = ? ORDER BY row_index`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClassificationRecord
	for rows.Next() {
		var rec domain.ClassificationRecord
		var source string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.RowIndex, &rec.SKU, &rec.Label, &source, &rec.ClassifiedAt); err != nil {
			return nil, err
		}
		rec.Source = domain.Source(source)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountBySource tallies a run's classifications per source.
func CountBySource(db *sql.DB, runID string) (map[domain.Source]int, error) {
	rows, err := db.Query(`SELECT source, COUNT(*) FROM classifications WHERE run_id = ? GROUP BY source`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Source]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		out[domain.Source(source)] = n
	}
	return out, rows.Err()
}
