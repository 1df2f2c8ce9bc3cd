package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTask is returned when a task cannot be enqueued as described.
	ErrInvalidTask = errors.New("invalid task")
	// ErrInvalidTransition is returned when a task is not in the state a transition requires.
	ErrInvalidTransition = errors.New("invalid task transition")
)

const taskColumns = "id, series_id, episode_id, task_type, url, filename, status, error_message, created_at, updated_at"

func scanTask(scanner rowScanner) (*Task, error) {
	var (
		task       Task
		episodeID  sql.NullInt64
		taskType   string
		url        sql.NullString
		filename   sql.NullString
		status     string
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&task.ID, &task.SeriesID, &episodeID, &taskType, &url, &filename,
		&status, &errMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	task.EpisodeID = episodeID.Int64
	task.Type = TaskType(taskType)
	task.URL = url.String
	task.Filename = filename.String
	task.Status = TaskStatus(status)
	task.ErrorMessage = errMessage.String
	task.CreatedAt = parseTime(createdRaw)
	task.UpdatedAt = parseTime(updatedRaw)
	return &task, nil
}

func validateNewTask(t NewTask) error {
	if t.SeriesID <= 0 {
		return fmt.Errorf("%w: series id required", ErrInvalidTask)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown task type %q", ErrInvalidTask, t.Type)
	}
	return nil
}

const insertTaskSQL = `INSERT INTO download_tasks (series_id, episode_id, task_type, url, filename, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// CreateTask enqueues a single pending task and returns its id.
func (s *Store) CreateTask(ctx context.Context, t NewTask) (int64, error) {
	if err := validateNewTask(t); err != nil {
		return 0, err
	}
	ts := now()
	res, err := s.execWithRetry(ctx, insertTaskSQL,
		t.SeriesID, nullableInt64(t.EpisodeID), t.Type,
		nullableString(t.URL), nullableString(t.Filename), TaskPending, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return res.LastInsertId()
}

// CreateTasks enqueues a batch of pending tasks in one transaction. The batch
// shares one timestamp, so id order keeps them claimed in slice order.
func (s *Store) CreateTasks(ctx context.Context, tasks []NewTask) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	for i, t := range tasks {
		if err := validateNewTask(t); err != nil {
			return 0, fmt.Errorf("task %d: %w", i, err)
		}
	}
	err := s.withTx(ctx, func(tx execer) error {
		ts := now()
		for _, t := range tasks {
			if _, err := tx.ExecContext(ctx, insertTaskSQL,
				t.SeriesID, nullableInt64(t.EpisodeID), t.Type,
				nullableString(t.URL), nullableString(t.Filename), TaskPending, ts, ts); err != nil {
				return fmt.Errorf("insert task: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// TaskByID fetches a task, returning nil when it does not exist.
func (s *Store) TaskByID(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM download_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ClaimNextPending atomically moves the oldest pending task to processing and
// returns it. It returns nil without writing when nothing is pending.
func (s *Store) ClaimNextPending(ctx context.Context) (*Task, error) {
	ctx = ensureContext(ctx)
	var task *Task
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE download_tasks SET status = ?, updated_at = ?
             WHERE id = (SELECT id FROM download_tasks WHERE status = ? ORDER BY created_at, id LIMIT 1)
               AND status = ?
             RETURNING `+taskColumns,
			TaskProcessing, now(), TaskPending, TaskPending)
		claimed, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			task = nil
			return nil
		}
		if err != nil {
			return err
		}
		task = claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

// SetTaskStatus writes status and error message unconditionally.
func (s *Store) SetTaskStatus(ctx context.Context, id int64, status TaskStatus, errMsg string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE download_tasks SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(errMsg), now(), id)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set task status: task %d not found", id)
	}
	return nil
}

// CompleteTask moves a processing task to completed.
func (s *Store) CompleteTask(ctx context.Context, id int64) error {
	return s.finishTask(ctx, id, TaskCompleted, "")
}

// FailTask moves a processing task to failed with the supplied message.
func (s *Store) FailTask(ctx context.Context, id int64, errMsg string) error {
	return s.finishTask(ctx, id, TaskFailed, errMsg)
}

func (s *Store) finishTask(ctx context.Context, id int64, status TaskStatus, errMsg string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE download_tasks SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, nullableString(errMsg), now(), id, TaskProcessing)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: task %d is not processing", ErrInvalidTransition, id)
	}
	return nil
}

// ListTasks returns tasks in claim order. A zero seriesID lists every series;
// statuses filter when provided.
func (s *Store) ListTasks(ctx context.Context, seriesID int64, statuses ...TaskStatus) ([]*Task, error) {
	var (
		clauses []string
		args    []any
	)
	if seriesID > 0 {
		clauses = append(clauses, "series_id = ?")
		args = append(args, seriesID)
	}
	if len(statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(statuses))+")")
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query := `SELECT ` + taskColumns + ` FROM download_tasks`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListTasksBySeries returns every task of a series in claim order.
func (s *Store) ListTasksBySeries(ctx context.Context, seriesID int64) ([]*Task, error) {
	return s.ListTasks(ctx, seriesID)
}

// ClearTasksBySeries deletes every task of a series regardless of status.
func (s *Store) ClearTasksBySeries(ctx context.Context, seriesID int64) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM download_tasks WHERE series_id = ?`, seriesID)
	if err != nil {
		return 0, fmt.Errorf("clear tasks: %w", err)
	}
	return res.RowsAffected()
}

// TaskStats counts tasks by status; a zero seriesID counts all series.
func (s *Store) TaskStats(ctx context.Context, seriesID int64) (TaskStats, error) {
	query := `SELECT status, COUNT(1) FROM download_tasks`
	var args []any
	if seriesID > 0 {
		query += ` WHERE series_id = ?`
		args = append(args, seriesID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return TaskStats{}, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	var stats TaskStats
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return TaskStats{}, err
		}
		stats.Total += count
		switch TaskStatus(status) {
		case TaskPending:
			stats.Pending = count
		case TaskProcessing:
			stats.Processing = count
		case TaskCompleted:
			stats.Completed = count
		case TaskFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// HasPendingTasks reports whether any task is waiting to be claimed.
func (s *Store) HasPendingTasks(ctx context.Context) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT EXISTS(SELECT 1 FROM download_tasks WHERE status = ?)`, TaskPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending tasks: %w", err)
	}
	return exists == 1, nil
}

// RequeueFailed moves failed tasks back to pending and clears their error.
// A zero seriesID matches every series; ids narrow the selection. Tasks in any
// other status are untouched, so repeating the call is harmless.
func (s *Store) RequeueFailed(ctx context.Context, seriesID int64, ids ...int64) (int64, error) {
	query := `UPDATE download_tasks SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`
	args := []any{TaskPending, now(), TaskFailed}
	if seriesID > 0 {
		query += ` AND series_id = ?`
		args = append(args, seriesID)
	}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("requeue failed tasks: %w", err)
	}
	return res.RowsAffected()
}

// FailInterrupted marks tasks left in processing by a previous run as failed.
// Call only while no processor is running.
func (s *Store) FailInterrupted(ctx context.Context, reason string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE download_tasks SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		TaskFailed, nullableString(reason), now(), TaskProcessing)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted tasks: %w", err)
	}
	return res.RowsAffected()
}
