package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	seriesColumns  = "id, catalog_id, title, intro, cover_url, local_cover_path, episode_count, created_at, updated_at"
	episodeColumns = "id, series_id, catalog_vid, title, cover_url, local_cover_path, index_sequence, duration, video_width, video_height, local_video_path, created_at, updated_at"
)

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

type seriesScan struct {
	id             int64
	catalogID      string
	title          string
	intro          sql.NullString
	coverURL       sql.NullString
	localCoverPath sql.NullString
	episodeCount   int
	createdRaw     string
	updatedRaw     string
}

func (s *seriesScan) targets() []any {
	return []any{&s.id, &s.catalogID, &s.title, &s.intro, &s.coverURL, &s.localCoverPath,
		&s.episodeCount, &s.createdRaw, &s.updatedRaw}
}

func (s *seriesScan) series() *Series {
	return &Series{
		ID:             s.id,
		CatalogID:      s.catalogID,
		Title:          s.title,
		Intro:          s.intro.String,
		CoverURL:       s.coverURL.String,
		LocalCoverPath: s.localCoverPath.String,
		EpisodeCount:   s.episodeCount,
		CreatedAt:      parseTime(s.createdRaw),
		UpdatedAt:      parseTime(s.updatedRaw),
	}
}

func scanSeries(scanner rowScanner) (*Series, error) {
	var s seriesScan
	if err := scanner.Scan(s.targets()...); err != nil {
		return nil, err
	}
	return s.series(), nil
}

type episodeScan struct {
	id             int64
	seriesID       int64
	catalogVID     string
	title          string
	coverURL       sql.NullString
	localCoverPath sql.NullString
	indexSequence  int
	duration       int
	videoWidth     int
	videoHeight    int
	localVideoPath sql.NullString
	createdRaw     string
	updatedRaw     string
}

func (e *episodeScan) targets() []any {
	return []any{&e.id, &e.seriesID, &e.catalogVID, &e.title, &e.coverURL, &e.localCoverPath,
		&e.indexSequence, &e.duration, &e.videoWidth, &e.videoHeight, &e.localVideoPath,
		&e.createdRaw, &e.updatedRaw}
}

func (e *episodeScan) episode() *Episode {
	return &Episode{
		ID:             e.id,
		SeriesID:       e.seriesID,
		CatalogVID:     e.catalogVID,
		Title:          e.title,
		CoverURL:       e.coverURL.String,
		LocalCoverPath: e.localCoverPath.String,
		IndexSequence:  e.indexSequence,
		Duration:       e.duration,
		VideoWidth:     e.videoWidth,
		VideoHeight:    e.videoHeight,
		LocalVideoPath: e.localVideoPath.String,
		CreatedAt:      parseTime(e.createdRaw),
		UpdatedAt:      parseTime(e.updatedRaw),
	}
}

func scanEpisode(scanner rowScanner) (*Episode, error) {
	var e episodeScan
	if err := scanner.Scan(e.targets()...); err != nil {
		return nil, err
	}
	return e.episode(), nil
}

// SaveSeries upserts a series keyed by its catalog id. Local media paths are
// preserved on update. The stored row is returned.
func (s *Store) SaveSeries(ctx context.Context, in Series) (*Series, error) {
	if strings.TrimSpace(in.CatalogID) == "" {
		return nil, errors.New("save series: catalog id required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("save series: title required")
	}
	ctx = ensureContext(ctx)
	var saved *Series
	err := retryOnBusy(ctx, func() error {
		ts := now()
		row := s.db.QueryRowContext(ctx,
			`INSERT INTO series (catalog_id, title, intro, cover_url, episode_count, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(catalog_id) DO UPDATE SET
                 title = excluded.title, intro = excluded.intro, cover_url = excluded.cover_url,
                 episode_count = excluded.episode_count, updated_at = excluded.updated_at
             RETURNING `+seriesColumns,
			in.CatalogID, in.Title, nullableString(in.Intro), nullableString(in.CoverURL), in.EpisodeCount, ts, ts)
		var err error
		saved, err = scanSeries(row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save series: %w", err)
	}
	return saved, nil
}

// SaveEpisode upserts an episode keyed by its catalog vid.
func (s *Store) SaveEpisode(ctx context.Context, in Episode) (*Episode, error) {
	if in.SeriesID <= 0 {
		return nil, errors.New("save episode: series id required")
	}
	if strings.TrimSpace(in.CatalogVID) == "" {
		return nil, errors.New("save episode: catalog vid required")
	}
	if in.VideoWidth <= 0 {
		in.VideoWidth = 720
	}
	if in.VideoHeight <= 0 {
		in.VideoHeight = 1080
	}
	ctx = ensureContext(ctx)
	var saved *Episode
	err := retryOnBusy(ctx, func() error {
		ts := now()
		row := s.db.QueryRowContext(ctx,
			`INSERT INTO episodes (series_id, catalog_vid, title, cover_url, index_sequence, duration,
                 video_width, video_height, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(catalog_vid) DO UPDATE SET
                 series_id = excluded.series_id, title = excluded.title, cover_url = excluded.cover_url,
                 index_sequence = excluded.index_sequence, duration = excluded.duration,
                 video_width = excluded.video_width, video_height = excluded.video_height,
                 updated_at = excluded.updated_at
             RETURNING `+episodeColumns,
			in.SeriesID, in.CatalogVID, in.Title, nullableString(in.CoverURL), in.IndexSequence, in.Duration,
			in.VideoWidth, in.VideoHeight, ts, ts)
		var err error
		saved, err = scanEpisode(row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save episode: %w", err)
	}
	return saved, nil
}

// SeriesByID returns a series or nil.
func (s *Store) SeriesByID(ctx context.Context, id int64) (*Series, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	return series, nil
}

// SeriesByCatalogID returns a series by its catalog id or nil.
func (s *Store) SeriesByCatalogID(ctx context.Context, catalogID string) (*Series, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+seriesColumns+` FROM series WHERE catalog_id = ?`, catalogID)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get series by catalog id: %w", err)
	}
	return series, nil
}

// ListSeries returns every series ordered by id.
func (s *Store) ListSeries(ctx context.Context) ([]*Series, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+seriesColumns+` FROM series ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

// EpisodesBySeries returns a series' episodes in sequence order.
func (s *Store) EpisodesBySeries(ctx context.Context, seriesID int64) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+episodeColumns+` FROM episodes WHERE series_id = ? ORDER BY index_sequence, id`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// EpisodeByID returns an episode or nil.
func (s *Store) EpisodeByID(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// EpisodeBySequence returns the episode at a 1-based position within a series, or nil.
func (s *Store) EpisodeBySequence(ctx context.Context, seriesID int64, index int) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+episodeColumns+` FROM episodes WHERE series_id = ? AND index_sequence = ? ORDER BY id LIMIT 1`,
		seriesID, index)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode by sequence: %w", err)
	}
	return ep, nil
}

// UpdateSeriesLocalCover records the local cover reference of a series.
func (s *Store) UpdateSeriesLocalCover(ctx context.Context, id int64, path string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE series SET local_cover_path = ?, updated_at = ? WHERE id = ?`, nullableString(path), now(), id)
	if err != nil {
		return fmt.Errorf("update series cover: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update series cover: series %d not found", id)
	}
	return nil
}

// UpdateEpisodeLocalPaths records local media references; empty fields are kept.
func (s *Store) UpdateEpisodeLocalPaths(ctx context.Context, id int64, paths EpisodePaths) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE episodes
         SET local_cover_path = COALESCE(?, local_cover_path),
             local_video_path = COALESCE(?, local_video_path),
             updated_at = ?
         WHERE id = ?`,
		nullableString(paths.Cover), nullableString(paths.Video), now(), id)
	if err != nil {
		return fmt.Errorf("update episode paths: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update episode paths: episode %d not found", id)
	}
	return nil
}

// DeleteSeries removes a series; episodes, tasks and publish records cascade.
func (s *Store) DeleteSeries(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete series: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
