package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"partcat/internal/domain"
)

// Recorder writes one run and its classifications to the history DB.
type Recorder struct {
	db    *sql.DB
	runID string
}

// StartRun inserts the run row and returns a Recorder bound to it. A new
// run id is generated when run.ID is empty.
func StartRun(db *sql.DB, run domain.RunRecord) (*Recorder, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := InsertRun(db, run); err != nil {
		return nil, err
	}
	return &Recorder{db: db, runID: run.ID}, nil
}

func (r *Recorder) RunID() string { return r.runID }

// Record stores one batch of results in a single transaction.
func (r *Recorder) Record(records []domain.ClassificationRecord) error {
	for i := range records {
		records[i].RunID = r.runID
	}
	_, err := InsertClassifications(r.db, records)
	return err
}

func (r *Recorder) Finish(pending, fallbacks int) error {
	return FinishRun(r.db, r.runID, time.Now(), pending, fallbacks)
}
