package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SuiteRun is one execution of a suite
type SuiteRun struct {
	ID          string     `json:"id" db:"id"`
	SuiteID     string     `json:"suite_id" db:"suite_id"`
	Status      string     `json:"status" db:"status"`
	Passed      int        `json:"passed" db:"passed"`
	Failed      int        `json:"failed" db:"failed"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// SuiteResult is the outcome of one case within a run
type SuiteResult struct {
	ID         int64  `json:"id" db:"id"`
	RunID      string `json:"run_id" db:"run_id"`
	CaseID     string `json:"case_id" db:"case_id"`
	Expression string `json:"expression" db:"expression"`
	Passed     bool   `json:"passed" db:"passed"`
	Expected   string `json:"expected" db:"expected"`
	Actual     string `json:"actual" db:"actual"`
	Error      string `json:"error,omitempty" db:"error"`
	DurationUS int64  `json:"duration_us" db:"duration_us"`
}

// CreateRun inserts a new run in the running state
func (d *Database) CreateRun(run *SuiteRun) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO suite_runs (id, suite_id, status, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.SuiteID, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun records the final status and counts of a run
func (d *Database) CompleteRun(runID, status string, passed, failed int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.Exec(`
		UPDATE suite_runs
		SET status = ?, passed = ?, failed = ?, completed_at = ?
		WHERE id = ?
	`, status, passed, failed, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun returns a run by ID, or nil if none exists
func (d *Database) GetRun(runID string) (*SuiteRun, error) {
	run := &SuiteRun{}
	var completedAt sql.NullTime
	err := d.db.QueryRow(`
		SELECT id, suite_id, status, passed, failed, started_at, completed_at
		FROM suite_runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.SuiteID, &run.Status, &run.Passed, &run.Failed, &run.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// Runs lists runs, newest first. An empty suiteID lists runs of all suites.
func (d *Database) Runs(suiteID string, limit int) ([]*SuiteRun, error) {
	query := `SELECT id, suite_id, status, passed, failed, started_at, completed_at FROM suite_runs`
	args := []interface{}{}
	if suiteID != "" {
		query += ` WHERE suite_id = ?`
		args = append(args, suiteID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*SuiteRun
	for rows.Next() {
		run := &SuiteRun{}
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.SuiteID, &run.Status, &run.Passed, &run.Failed, &run.StartedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AddResult stores the outcome of one case
func (d *Database) AddResult(result *SuiteResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.Exec(`
		INSERT INTO suite_results (run_id, case_id, expression, passed, expected, actual, error, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.RunID, result.CaseID, result.Expression, result.Passed, result.Expected,
		result.Actual, result.Error, result.DurationUS)
	if err != nil {
		return fmt.Errorf("failed to add result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	result.ID = id
	return nil
}

// Results returns the case results of a run in insertion order
func (d *Database) Results(runID string) ([]*SuiteResult, error) {
	rows, err := d.db.Query(`
		SELECT id, run_id, case_id, expression, passed, expected, actual, error, duration_us
		FROM suite_results
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*SuiteResult
	for rows.Next() {
		r := &SuiteResult{}
		var expected, actual, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.CaseID, &r.Expression, &r.Passed,
			&expected, &actual, &errMsg, &r.DurationUS); err != nil {
			return nil, err
		}
		r.Expected = expected.String
		r.Actual = actual.String
		r.Error = errMsg.String
		results = append(results, r)
	}
	return results, rows.Err()
}
