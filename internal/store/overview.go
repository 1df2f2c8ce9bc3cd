package store

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Overview counts series, episodes, tasks and publish records.
func (s *Store) Overview(ctx context.Context) (Overview, error) {
	ctx = ensureContext(ctx)
	var out Overview
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM series`).Scan(&out.Series); err != nil {
		return out, fmt.Errorf("count series: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM episodes`).Scan(&out.Episodes); err != nil {
		return out, fmt.Errorf("count episodes: %w", err)
	}
	tasks, err := s.TaskStats(ctx, 0)
	if err != nil {
		return out, err
	}
	out.Tasks = tasks

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM publish_records GROUP BY status`)
	if err != nil {
		return out, fmt.Errorf("publish stats: %w", err)
	}
	defer rows.Close()
	out.Publishes = make(map[PublishStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return out, err
		}
		out.Publishes[PublishStatus(status)] = count
	}
	return out, rows.Err()
}

// DatabaseHealth describes the database file for diagnostics.
type DatabaseHealth struct {
	DBPath         string
	DatabaseExists bool
	SizeBytes      int64
	SchemaVersion  int
	IntegrityCheck string
}

// CheckHealth returns diagnostic information about the database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{DBPath: s.path}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	health.DatabaseExists = true
	health.SizeBytes = info.Size()

	if health.SchemaVersion, err = s.userVersion(ctx); err != nil {
		return health, err
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&health.IntegrityCheck); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	return health, nil
}
