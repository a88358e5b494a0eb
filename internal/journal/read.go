package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Run loads one run by token. Returns ErrNotFound when no run has it.
func (j *Journal) Run(ctx context.Context, token string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT token, kind, start, stop, workers, segments, status, fail_value, created_at, seq
		FROM runs
		WHERE token = ?
	`, token)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", token, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %q: %w", token, err)
	}
	return run, nil
}

// Runs lists every run in insertion order.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT token, kind, start, stop, workers, segments, status, fail_value, created_at, seq
		FROM runs
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Segments lists a run's segments ordered by index.
func (j *Journal) Segments(ctx context.Context, token string) ([]Segment, error) {
	return j.segmentsWhere(ctx, token, "")
}

// PendingSegments lists the segments of a run that still need scanning,
// ordered by index. A resumed run works through exactly this list.
func (j *Journal) PendingSegments(ctx context.Context, token string) ([]Segment, error) {
	return j.segmentsWhere(ctx, token, string(SegmentPending))
}

func (j *Journal) segmentsWhere(ctx context.Context, token, status string) ([]Segment, error) {
	query := `
		SELECT run_token, idx, start, stop, status, max_value, max_steps, fail_value
		FROM segments
		WHERE run_token = ?
	`
	args := []any{token}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY idx"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segs []Segment
	for rows.Next() {
		var (
			seg                           Segment
			start, stop                   string
			maxValue, maxSteps, failValue sql.NullString
		)
		if err := rows.Scan(&seg.RunToken, &seg.Idx, &start, &stop, &seg.Status, &maxValue, &maxSteps, &failValue); err != nil {
			return nil, fmt.Errorf("list segments: %w", err)
		}
		if seg.Start, err = parseValue(start); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Idx, err)
		}
		if seg.Stop, err = parseValue(stop); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Idx, err)
		}
		if maxValue.Valid && maxSteps.Valid {
			v, err := parseValue(maxValue.String)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", seg.Idx, err)
			}
			s, err := parseValue(maxSteps.String)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", seg.Idx, err)
			}
			seg.Max = &SegmentMax{Value: v, Steps: s}
		}
		if failValue.Valid {
			v, err := parseValue(failValue.String)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", seg.Idx, err)
			}
			seg.FailValue = &v
		}
		segs = append(segs, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return segs, nil
}

// GlobalRecords derives the whole-range record list of a records run from
// its stored segment-local records. A global record must beat everything
// before it, so it is necessarily a local record too; folding the local
// lists in (segment, position) order with the same strictly-greater test
// recovers exactly the sequential result.
func (j *Journal) GlobalRecords(ctx context.Context, token string) ([]RecordRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT value, steps
		FROM records
		WHERE run_token = ?
		ORDER BY seg_idx, pos
	`, token)
	if err != nil {
		return nil, fmt.Errorf("global records: %w", err)
	}
	defer rows.Close()

	var (
		global []RecordRow
		best   uint64
	)
	for rows.Next() {
		var value, steps string
		if err := rows.Scan(&value, &steps); err != nil {
			return nil, fmt.Errorf("global records: %w", err)
		}
		rec := RecordRow{}
		if rec.Value, err = parseValue(value); err != nil {
			return nil, fmt.Errorf("global records: %w", err)
		}
		if rec.Steps, err = parseValue(steps); err != nil {
			return nil, fmt.Errorf("global records: %w", err)
		}
		if len(global) == 0 || rec.Steps > best {
			global = append(global, rec)
			best = rec.Steps
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("global records: %w", err)
	}
	return global, nil
}

// scanRun reads one run row from either a *sql.Row or *sql.Rows.
func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		run         Run
		kind        string
		start, stop string
		status      string
		failValue   sql.NullString
	)
	if err := row.Scan(&run.Token, &kind, &start, &stop, &run.Workers, &run.Segments, &status, &failValue, &run.CreatedAt, &run.Seq); err != nil {
		return nil, err
	}
	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)

	var err error
	if run.Start, err = parseValue(start); err != nil {
		return nil, err
	}
	if run.Stop, err = parseValue(stop); err != nil {
		return nil, err
	}
	if failValue.Valid {
		v, err := parseValue(failValue.String)
		if err != nil {
			return nil, err
		}
		run.FailValue = &v
	}
	return &run, nil
}
