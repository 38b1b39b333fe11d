package evalstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/touchstone3d/semseg/pkg/metrics"
)

// Run is one persisted evaluation.
type Run struct {
	RunID           string    `json:"run_id"`
	Dataset         string    `json:"dataset"`
	NumClasses      int       `json:"num_classes"`
	NumPoints       int64     `json:"num_points"`
	OverallAccuracy float64   `json:"overall_accuracy"`
	MeanIoU         float64   `json:"mean_iou"`
	MeanSIoU        float64   `json:"mean_siou"`
	IoU             []float64 `json:"iou"`
	SIoU            []float64 `json:"siou"`
	Confusion       [][]int64 `json:"confusion"`
	CreatedAt       int64     `json:"created_at"`
}

// NewRun copies a report into a Run without an ID.
func NewRun(dataset string, r *metrics.Report) *Run {
	return &Run{
		Dataset:         dataset,
		NumClasses:      r.NumClasses,
		NumPoints:       r.NumPoints,
		OverallAccuracy: r.OverallAccuracy,
		MeanIoU:         r.MeanIoU,
		MeanSIoU:        r.MeanSIoU,
		IoU:             r.IoU,
		SIoU:            r.SIoU,
		Confusion:       r.Confusion,
	}
}

// Report rebuilds the metrics report; per-class support comes from the
// confusion matrix row sums.
func (r *Run) Report() *metrics.Report {
	support := make([]int64, len(r.Confusion))
	for c, row := range r.Confusion {
		for _, v := range row {
			support[c] += v
		}
	}
	return &metrics.Report{
		NumClasses:      r.NumClasses,
		NumPoints:       r.NumPoints,
		OverallAccuracy: r.OverallAccuracy,
		MeanIoU:         r.MeanIoU,
		IoU:             r.IoU,
		MeanSIoU:        r.MeanSIoU,
		SIoU:            r.SIoU,
		Support:         support,
		Confusion:       r.Confusion,
	}
}

// AssignIdentity fills an empty RunID with a new UUID and an empty CreatedAt
// with the current time.
func AssignIdentity(run *Run) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
}

// Insert persists run. Empty RunID and CreatedAt are filled in.
func (s *Store) Insert(ctx context.Context, run *Run) error {
	AssignIdentity(run)

	iouJSON, err := sonic.MarshalString(run.IoU)
	if err != nil {
		return fmt.Errorf("marshal iou: %w", err)
	}
	siouJSON, err := sonic.MarshalString(run.SIoU)
	if err != nil {
		return fmt.Errorf("marshal siou: %w", err)
	}
	confusionJSON, err := sonic.MarshalString(run.Confusion)
	if err != nil {
		return fmt.Errorf("marshal confusion: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO evaluation_runs (
				run_id, dataset, num_classes, num_points,
				overall_accuracy, mean_iou, mean_siou,
				iou_json, siou_json, confusion_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Dataset, run.NumClasses, run.NumPoints,
			run.OverallAccuracy, run.MeanIoU, run.MeanSIoU,
			iouJSON, siouJSON, confusionJSON, run.CreatedAt,
		)
		return err
	})
}

const selectRuns = `
	SELECT run_id, dataset, num_classes, num_points,
	       overall_accuracy, mean_iou, mean_siou,
	       iou_json, siou_json, confusion_json, created_at
	FROM evaluation_runs`

func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return run, nil
}

// List returns the newest runs first. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ListByDataset returns the runs recorded for one dataset, newest first.
func (s *Store) ListByDataset(ctx context.Context, dataset string) ([]*Run, error) {
	return s.query(ctx, selectRuns+` WHERE dataset = ? ORDER BY created_at DESC`, dataset)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Delete(ctx context.Context, runID string) error {
	return retryOnBusy(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete evaluation run: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var iouJSON, siouJSON, confusionJSON string
	err := sc.Scan(
		&r.RunID, &r.Dataset, &r.NumClasses, &r.NumPoints,
		&r.OverallAccuracy, &r.MeanIoU, &r.MeanSIoU,
		&iouJSON, &siouJSON, &confusionJSON, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan evaluation run: %w", err)
	}
	if err := sonic.UnmarshalString(iouJSON, &r.IoU); err != nil {
		return nil, fmt.Errorf("decode iou of %s: %w", r.RunID, err)
	}
	if err := sonic.UnmarshalString(siouJSON, &r.SIoU); err != nil {
		return nil, fmt.Errorf("decode siou of %s: %w", r.RunID, err)
	}
	if err := sonic.UnmarshalString(confusionJSON, &r.Confusion); err != nil {
		return nil, fmt.Errorf("decode confusion of %s: %w", r.RunID, err)
	}
	return &r, nil
}

// DeleteOlderThan removes runs created before cutoff and returns how many
// were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := retryOnBusy(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE created_at < ?`, cutoff.UnixNano())
		if err != nil {
			return fmt.Errorf("prune evaluation runs: %w", err)
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}
