package store

import (
	"context"
	"fmt"
	"os"

	"github.com/runmat-org/otell/internal/model"
)

// Status reports the database path, on-disk size, per-table row
// counts, and the oldest/newest timestamp across logs, spans, and
// metric points.
func (s *Store) Status(ctx context.Context) (model.StatusResponse, error) {
	var resp model.StatusResponse
	resp.DBPath = s.path

	if info, err := os.Stat(s.path); err == nil {
		resp.SizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&resp.LogCount); err != nil {
		return model.StatusResponse{}, fmt.Errorf("counting logs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spans").Scan(&resp.SpanCount); err != nil {
		return model.StatusResponse{}, fmt.Errorf("counting spans: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metric_points").Scan(&resp.MetricCount); err != nil {
		return model.StatusResponse{}, fmt.Errorf("counting metric points: %w", err)
	}

	oldest, newest, err := s.oldestNewest(ctx)
	if err != nil {
		return model.StatusResponse{}, err
	}
	resp.OldestTs = oldest
	resp.NewestTs = newest

	return resp, nil
}

func (s *Store) oldestNewest(ctx context.Context) (*int64, *int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT MIN(ts), MAX(ts) FROM (
			SELECT ts FROM logs
			UNION ALL SELECT start_ts FROM spans
			UNION ALL SELECT ts FROM metric_points
		)
	`)

	var oldest, newest *int64
	if err := row.Scan(&oldest, &newest); err != nil {
		return nil, nil, fmt.Errorf("scanning oldest/newest: %w", err)
	}
	return oldest, newest, nil
}
