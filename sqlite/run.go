package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/sift"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sift.RunService = (*RunService)(nil)

// RunService implements sift.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun creates a new run.
func (s *RunService) CreateRun(ctx context.Context, run *sift.Run) error {
	if run.Schema == "" {
		return sift.Errorf(sift.EINVALID, "run schema required")
	}

	run.ID = uuid.New().String()
	run.StartedAt = time.Now().UTC()
	run.FinishedAt = time.Time{}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, schema_name, started_at)
		VALUES (?, ?, ?)
	`, run.ID, run.Schema, formatTime(run.StartedAt))
	return err
}

// RecordTarget stores the result of one target's pipeline. Recording the
// same target twice for a run replaces the earlier result.
func (s *RunService) RecordTarget(ctx context.Context, r *sift.TargetResult) error {
	if r.RunID == "" {
		return sift.Errorf(sift.EINVALID, "run ID required")
	}
	if r.Target == "" {
		return sift.Errorf(sift.EINVALID, "target name required")
	}

	msgs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	errs, err := json.Marshal(msgs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO target_results (
			run_id, target, status, pages, pages_failed, resumed, chunks, chunks_failed,
			records, rejected, attempts, tokens, errors, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Target, string(r.Status), r.Pages, r.PagesFailed, r.Resumed, r.Chunks, r.ChunksFailed,
		r.Records, r.Rejected, r.Attempts, r.Tokens, string(errs),
		formatTime(r.StartedAt), formatTime(r.FinishedAt))
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY") {
		return sift.Errorf(sift.ENOTFOUND, "run %q not found", r.RunID)
	}
	return err
}

// FinishRun marks a run as finished.
func (s *RunService) FinishRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE runs SET finished_at = ? WHERE id = ?", formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sift.Errorf(sift.ENOTFOUND, "run not found")
	}
	return nil
}

// FindRunByID retrieves a run with its target results.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*sift.Run, error) {
	var run sift.Run
	var startedAt, finishedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, schema_name, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Schema, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sift.Errorf(sift.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}
	if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
		return nil, err
	}

	if run.Targets, err = s.findTargets(ctx, run.ID); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRuns retrieves runs matching the filter, newest first.
// Target results are not loaded; use FindRunByID for those.
func (s *RunService) FindRuns(ctx context.Context, filter sift.RunFilter) ([]*sift.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, schema_name, started_at, finished_at FROM runs WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Schema != nil {
		query.WriteString(" AND schema_name = ?")
		args = append(args, *filter.Schema)
	}

	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*sift.Run
	for rows.Next() {
		var run sift.Run
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &run.Schema, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (s *RunService) findTargets(ctx context.Context, runID string) ([]*sift.TargetResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target, status, pages, pages_failed, resumed, chunks, chunks_failed,
			records, rejected, attempts, tokens, errors, started_at, finished_at
		FROM target_results
		WHERE run_id = ?
		ORDER BY target
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*sift.TargetResult
	for rows.Next() {
		r := sift.TargetResult{RunID: runID}
		var status, errs, startedAt, finishedAt string
		if err := rows.Scan(&r.Target, &status, &r.Pages, &r.PagesFailed, &r.Resumed, &r.Chunks, &r.ChunksFailed,
			&r.Records, &r.Rejected, &r.Attempts, &r.Tokens, &errs, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.Status = sift.TargetStatus(status)

		var msgs []string
		if err := json.Unmarshal([]byte(errs), &msgs); err != nil {
			return nil, fmt.Errorf("failed to decode errors: %w", err)
		}
		for _, m := range msgs {
			r.Errors = append(r.Errors, errors.New(m))
		}
		if r.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
