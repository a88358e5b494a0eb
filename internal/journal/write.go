package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// execer covers both the pooled handle and an open transaction, so the run
// insert can execute standalone or inside a larger atomic write.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateRun journals a run together with its segment partitioning in one
// transaction. The journal therefore never holds a run without its
// segments: a crash during creation leaves either nothing or a fully
// resumable record. Idempotent like its parts.
func (j *Journal) CreateRun(ctx context.Context, run Run, segs []Segment) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return err
	}
	if err := insertSegments(ctx, tx, run.Token, segs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	return nil
}

// InsertRun inserts a run row with the next seq value.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - re-inserting an
// existing run is silently ignored, so resuming never duplicates a row.
func (j *Journal) InsertRun(ctx context.Context, run Run) error {
	return insertRun(ctx, j.db, run)
}

func insertRun(ctx context.Context, q execer, run Run) error {
	var failValue *string
	if run.FailValue != nil {
		s := formatValue(*run.FailValue)
		failValue = &s
	}
	status := run.Status
	if status == "" {
		status = StatusRunning
	}

	// The seq subselect is race-free because Open limits the pool to a
	// single connection.
	_, err := q.ExecContext(ctx, `
		INSERT INTO runs
		(token, kind, start, stop, workers, segments, status, fail_value, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		string(run.Kind),
		formatValue(run.Start),
		formatValue(run.Stop),
		run.Workers,
		run.Segments,
		string(status),
		failValue,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// InsertSegments inserts the pending segment rows of a run in one
// transaction. Uses ON CONFLICT DO NOTHING per row, so re-planning a run
// that already has segments leaves the stored plan (and any recorded
// progress) untouched.
func (j *Journal) InsertSegments(ctx context.Context, token string, segs []Segment) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}
	defer tx.Rollback()

	if err := insertSegments(ctx, tx, token, segs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}

	return nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, token string, segs []Segment) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (run_token, idx, start, stop, status)
		VALUES (?, ?, ?, ?, 'pending')
		ON CONFLICT(run_token, idx) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("insert segments: %w", err)
	}
	defer stmt.Close()

	for _, seg := range segs {
		if _, err := stmt.ExecContext(ctx, token, seg.Idx, formatValue(seg.Start), formatValue(seg.Stop)); err != nil {
			return fmt.Errorf("insert segment %d: %w", seg.Idx, err)
		}
	}

	return nil
}

// MarkSegmentDone marks a segment finished, recording its maximum for
// records runs (max is nil for check runs). Marking a segment done twice
// writes the same terminal state and is harmless.
func (j *Journal) MarkSegmentDone(ctx context.Context, token string, idx int, max *SegmentMax) error {
	var maxValue, maxSteps *string
	if max != nil {
		v := formatValue(max.Value)
		s := formatValue(max.Steps)
		maxValue, maxSteps = &v, &s
	}

	_, err := j.db.ExecContext(ctx, `
		UPDATE segments
		SET status = 'done', max_value = ?, max_steps = ?
		WHERE run_token = ? AND idx = ?
	`, maxValue, maxSteps, token, idx)
	if err != nil {
		return fmt.Errorf("mark segment %d done: %w", idx, err)
	}

	return nil
}

// MarkSegmentFailed marks a segment failed, recording the value whose
// arithmetic overflowed.
func (j *Journal) MarkSegmentFailed(ctx context.Context, token string, idx int, failValue uint64) error {
	fv := formatValue(failValue)
	_, err := j.db.ExecContext(ctx, `
		UPDATE segments
		SET status = 'failed', fail_value = ?
		WHERE run_token = ? AND idx = ?
	`, fv, token, idx)
	if err != nil {
		return fmt.Errorf("mark segment %d failed: %w", idx, err)
	}

	return nil
}

// WriteSegmentRecords stores a finished segment's local records in
// discovery order in one transaction. Uses ON CONFLICT DO NOTHING per row
// for idempotency - a resumed run that recomputes a segment rewrites
// identical rows that are silently dropped.
func (j *Journal) WriteSegmentRecords(ctx context.Context, token string, idx int, recs []RecordRow) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write segment records: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_token, seg_idx, pos, value, steps)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_token, seg_idx, pos) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write segment records: %w", err)
	}
	defer stmt.Close()

	for pos, rec := range recs {
		if _, err := stmt.ExecContext(ctx, token, idx, pos, formatValue(rec.Value), formatValue(rec.Steps)); err != nil {
			return fmt.Errorf("write record %d of segment %d: %w", pos, idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write segment records: %w", err)
	}

	return nil
}

// FinishRun moves a run to its terminal status. failValue is the scanned
// value that aborted a failed run; pass nil on success.
func (j *Journal) FinishRun(ctx context.Context, token string, status RunStatus, failValue *uint64) error {
	var fv *string
	if failValue != nil {
		s := formatValue(*failValue)
		fv = &s
	}

	_, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, fail_value = ?
		WHERE token = ?
	`, string(status), fv, token)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	return nil
}
