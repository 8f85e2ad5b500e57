package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/runmat-org/otell/pkg/logger"
)

// RetentionInterval is how often the periodic sweep runs, per spec.md §4.3.
const RetentionInterval = 60 * time.Second

// RetentionConfig bounds how long rows live and how large the DuckDB
// file is allowed to grow before the size-cap pass starts trimming.
type RetentionConfig struct {
	TTLNanos     int64 // 0 disables the TTL pass
	MaxBytes     int64 // 0 disables the size-cap pass
	sizeCapIters int   // overridable by tests; 0 means the default of 10
}

const defaultSizeCapIterations = 10

// RunRetention executes one retention sweep: a TTL pass followed by a
// size-cap pass. It holds retentionMu for the whole sweep, so two sweeps
// never overlap; the insert paths do not take retentionMu, so a sweep
// can run while a writer's transaction is open.
func (s *Store) RunRetention(ctx context.Context, cfg RetentionConfig, nowNanos int64) error {
	s.retentionMu.Lock()
	defer s.retentionMu.Unlock()

	if cfg.TTLNanos > 0 {
		if err := s.retentionTTLPass(ctx, nowNanos-cfg.TTLNanos); err != nil {
			return err
		}
	}
	if cfg.MaxBytes > 0 {
		if err := s.retentionSizeCapPass(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) retentionTTLPass(ctx context.Context, cutoff int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM logs WHERE ts < ?", cutoff); err != nil {
		return fmt.Errorf("ttl delete logs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM metric_points WHERE ts < ?", cutoff); err != nil {
		return fmt.Errorf("ttl delete metric points: %w", err)
	}
	// span_events/span_links cascade logically with their parent span;
	// delete the spans first, then orphaned children.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM spans WHERE start_ts < ?", cutoff); err != nil {
		return fmt.Errorf("ttl delete spans: %w", err)
	}
	return s.pruneOrphanedSpanChildren(ctx)
}

// retentionSizeCapPass repeatedly trims the oldest 10% of
// metric_points, then logs, then spans, until the on-disk file size
// is under the cap or the iteration budget (default 10) is spent.
func (s *Store) retentionSizeCapPass(ctx context.Context, cfg RetentionConfig) error {
	iters := cfg.sizeCapIters
	if iters <= 0 {
		iters = defaultSizeCapIterations
	}

	for i := 0; i < iters; i++ {
		size, err := s.fileSize()
		if err != nil {
			return err
		}
		if size <= cfg.MaxBytes {
			return nil
		}

		if err := s.deleteOldestFraction(ctx, "metric_points", "seq", 0.10); err != nil {
			return err
		}
		if err := s.deleteOldestFraction(ctx, "logs", "seq", 0.10); err != nil {
			return err
		}
		if err := s.deleteOldestFraction(ctx, "spans", "seq", 0.10); err != nil {
			return err
		}
		if err := s.pruneOrphanedSpanChildren(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteOldestFraction(ctx context.Context, table, orderCol string, fraction float64) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return fmt.Errorf("counting %s: %w", table, err)
	}
	n := int64(float64(count) * fraction)
	if n <= 0 {
		return nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s WHERE %s IN (
			SELECT %s FROM %s ORDER BY %s ASC LIMIT ?
		)
	`, table, orderCol, orderCol, table, orderCol)
	if _, err := s.db.ExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("trimming %s: %w", table, err)
	}
	return nil
}

func (s *Store) pruneOrphanedSpanChildren(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM span_events WHERE NOT EXISTS (
			SELECT 1 FROM spans WHERE spans.trace_id = span_events.trace_id AND spans.span_id = span_events.span_id
		)
	`); err != nil {
		return fmt.Errorf("pruning orphaned span events: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM span_links WHERE NOT EXISTS (
			SELECT 1 FROM spans WHERE spans.trace_id = span_links.trace_id AND spans.span_id = span_links.span_id
		)
	`); err != nil {
		return fmt.Errorf("pruning orphaned span links: %w", err)
	}
	return nil
}

// StartRetentionLoop runs RunRetention every RetentionInterval until
// ctx is canceled. now is injected so tests can control the clock
// without relying on the wall clock.
func (s *Store) StartRetentionLoop(ctx context.Context, cfg RetentionConfig, now func() int64) {
	log := logger.Component("store.retention")
	ticker := time.NewTicker(RetentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunRetention(ctx, cfg, now()); err != nil {
				log.Error().Err(err).Msg("retention sweep failed")
			}
		}
	}
}

func (s *Store) fileSize() (int64, error) {
	if s.path == ":memory:" || s.path == "" {
		return 0, nil
	}
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat db file: %w", err)
	}
	return info.Size(), nil
}
