package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"reelcast/internal/enrich"
	"reelcast/internal/logging"
	"reelcast/internal/services"
	"reelcast/internal/store"
)

// DetailFetcher is the catalog call the importer needs.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, seriesID string) (*SeriesDetail, error)
}

// SeriesSaver persists imported metadata.
type SeriesSaver interface {
	SaveSeries(ctx context.Context, in store.Series) (*store.Series, error)
	SaveEpisode(ctx context.Context, in store.Episode) (*store.Episode, error)
}

// ImportResult summarizes one import.
type ImportResult struct {
	Series        *store.Series
	EpisodeCount  int
	OriginalTitle string
	OriginalIntro string
}

// Importer saves catalog series into the store.
type Importer struct {
	catalog    DetailFetcher
	store      SeriesSaver
	paraphrase enrich.Paraphraser
	logger     *slog.Logger
}

// NewImporter wires an importer. A nil paraphraser keeps catalog text as is.
func NewImporter(catalog DetailFetcher, st SeriesSaver, paraphraser enrich.Paraphraser, logger *slog.Logger) *Importer {
	if paraphraser == nil {
		paraphraser = enrich.Noop{}
	}
	return &Importer{
		catalog:    catalog,
		store:      st,
		paraphrase: paraphraser,
		logger:     logging.NewComponentLogger(logger, "importer"),
	}
}

// Import fetches a series detail, paraphrases its title and intro, and
// upserts the series with every episode. Re-importing refreshes metadata and
// keeps already downloaded media references.
func (i *Importer) Import(ctx context.Context, catalogID string) (*ImportResult, error) {
	catalogID = strings.TrimSpace(catalogID)
	if catalogID == "" {
		return nil, services.Mark(services.ErrValidation, errors.New("Series ID required"))
	}
	detail, err := i.catalog.FetchDetail(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	title, intro := i.paraphraseSeries(ctx, detail.Title, detail.Intro)

	series, err := i.store.SaveSeries(ctx, store.Series{
		CatalogID:    catalogID,
		Title:        title,
		Intro:        intro,
		CoverURL:     detail.CoverURL,
		EpisodeCount: detail.EpisodeCount,
	})
	if err != nil {
		return nil, fmt.Errorf("save series: %w", err)
	}

	for pos, ep := range detail.Episodes {
		index := ep.Index
		if index <= 0 {
			index = pos + 1
		}
		episodeTitle := strings.TrimSpace(ep.Title)
		if episodeTitle == "" {
			episodeTitle = intro
		}
		if _, err := i.store.SaveEpisode(ctx, store.Episode{
			SeriesID:      series.ID,
			CatalogVID:    ep.VID,
			Title:         episodeTitle,
			CoverURL:      ep.CoverURL,
			IndexSequence: index,
			Duration:      ep.Duration,
			VideoWidth:    ep.Width,
			VideoHeight:   ep.Height,
		}); err != nil {
			return nil, fmt.Errorf("save episode %d: %w", index, err)
		}
	}

	i.logger.Info("series imported",
		logging.String(logging.FieldEventType, "series_imported"),
		logging.Int64(logging.FieldSeriesID, series.ID),
		logging.String("catalog_id", catalogID),
		logging.String("title", series.Title),
		logging.Int("episodes", len(detail.Episodes)),
	)
	return &ImportResult{
		Series:        series,
		EpisodeCount:  len(detail.Episodes),
		OriginalTitle: detail.Title,
		OriginalIntro: detail.Intro,
	}, nil
}

func (i *Importer) paraphraseSeries(ctx context.Context, title, intro string) (string, string) {
	var (
		wg       sync.WaitGroup
		outTitle string
		outIntro string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outTitle = i.paraphrase.Paraphrase(ctx, title, enrich.KindTitle)
	}()
	go func() {
		defer wg.Done()
		outIntro = i.paraphrase.Paraphrase(ctx, intro, enrich.KindDescription)
	}()
	wg.Wait()
	return outTitle, outIntro
}
