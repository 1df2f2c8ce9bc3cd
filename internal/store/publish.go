package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const publishColumns = "id, episode_id, status, video_id, url, error_message, created_at, updated_at"

func scanPublishRecord(scanner rowScanner) (*PublishRecord, error) {
	var (
		rec        PublishRecord
		status     string
		videoID    sql.NullString
		url        sql.NullString
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.EpisodeID, &status, &videoID, &url, &errMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rec.Status = PublishStatus(status)
	rec.VideoID = videoID.String
	rec.URL = url.String
	rec.ErrorMessage = errMessage.String
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)
	return &rec, nil
}

// CreateOrGetPublishRecord returns the id of the episode's publish record,
// inserting a pending one when none exists.
func (s *Store) CreateOrGetPublishRecord(ctx context.Context, episodeID int64) (int64, error) {
	ctx = ensureContext(ctx)
	ts := now()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO publish_records (episode_id, status, created_at, updated_at)
         VALUES (?, ?, ?, ?) ON CONFLICT(episode_id) DO NOTHING`,
		episodeID, PublishPending, ts, ts); err != nil {
		return 0, fmt.Errorf("insert publish record: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM publish_records WHERE episode_id = ?`, episodeID).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup publish record: %w", err)
	}
	return id, nil
}

// SetPublishStatus records a status change plus any fields carried by update.
func (s *Store) SetPublishStatus(ctx context.Context, id int64, status PublishStatus, update PublishUpdate) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE publish_records
         SET status = ?, video_id = COALESCE(?, video_id), url = COALESCE(?, url),
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		status, nullableString(update.VideoID), nullableString(update.URL),
		nullableString(update.Error), now(), id)
	if err != nil {
		return fmt.Errorf("set publish status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set publish status: record %d not found", id)
	}
	return nil
}

// PublishRecordByEpisode returns the episode's record or nil.
func (s *Store) PublishRecordByEpisode(ctx context.Context, episodeID int64) (*PublishRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+publishColumns+` FROM publish_records WHERE episode_id = ?`, episodeID)
	rec, err := scanPublishRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get publish record: %w", err)
	}
	return rec, nil
}

// ListPublishRecords returns records newest first, filtered by status when given.
func (s *Store) ListPublishRecords(ctx context.Context, statuses ...PublishStatus) ([]*PublishRecord, error) {
	query := `SELECT ` + publishColumns + ` FROM publish_records`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list publish records: %w", err)
	}
	defer rows.Close()

	var records []*PublishRecord
	for rows.Next() {
		rec, err := scanPublishRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestPublished returns the most recently created published record with its
// episode and series, or nil when nothing has been published.
func (s *Store) LatestPublished(ctx context.Context) (*PublishedEpisode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+prefixColumns("p", publishColumns)+`, `+prefixColumns("e", episodeColumns)+`, `+prefixColumns("s", seriesColumns)+`
         FROM publish_records p
         JOIN episodes e ON e.id = p.episode_id
         JOIN series s ON s.id = e.series_id
         WHERE p.status = ?
         ORDER BY p.created_at DESC, p.id DESC
         LIMIT 1`, PublishPublished)

	var out PublishedEpisode
	joined := joinedScanner{row: row}
	rec, err := scanPublishRecord(&joined)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest published: %w", err)
	}
	out.Record = *rec
	out.Episode = *joined.episode
	out.Series = *joined.series
	return &out, nil
}

// joinedScanner scans a publish+episode+series row in one Scan call and
// hands the publish portion back to scanPublishRecord.
type joinedScanner struct {
	row     rowScanner
	episode *Episode
	series  *Series
}

func (j *joinedScanner) Scan(dest ...any) error {
	var (
		ep episodeScan
		se seriesScan
	)
	all := append(append(append([]any{}, dest...), ep.targets()...), se.targets()...)
	if err := j.row.Scan(all...); err != nil {
		return err
	}
	j.episode = ep.episode()
	j.series = se.series()
	return nil
}
