package daemon

import (
	"errors"
	"log/slog"

	"reelcast/internal/catalog"
	"reelcast/internal/config"
	"reelcast/internal/downloads"
	"reelcast/internal/enrich"
	"reelcast/internal/media"
	"reelcast/internal/notifications"
	"reelcast/internal/publisher"
	"reelcast/internal/scheduler"
	"reelcast/internal/store"
	"reelcast/internal/uploads"
)

// Services bundles the domain components the daemon drives.
type Services struct {
	Catalog   *catalog.Client
	Importer  *catalog.Importer
	Planner   *downloads.Planner
	Processor *downloads.Processor
	Uploads   *uploads.Service
	Scheduler *scheduler.Scheduler
	Notifier  notifications.Service
}

// BuildServices constructs every component from configuration.
func BuildServices(cfg *config.Config, st *store.Store, logger *slog.Logger) (Services, error) {
	if cfg == nil || st == nil {
		return Services{}, errors.New("services require config and store")
	}
	notifier := notifications.NewService(cfg)
	enricher := enrich.NewFromConfig(cfg, logger)
	catalogClient := catalog.NewFromConfig(cfg, logger)
	fetcher := media.NewFromConfig(cfg, logger)
	pub := publisher.NewFromConfig(cfg, enricher, logger)
	uploadSvc := uploads.NewService(st, pub, fetcher, notifier, logger)

	sched, err := scheduler.New(cfg.Scheduler, st, uploadSvc,
		scheduler.WithLogger(logger),
		scheduler.WithNotifier(notifier),
	)
	if err != nil {
		return Services{}, err
	}
	return Services{
		Catalog:   catalogClient,
		Importer:  catalog.NewImporter(catalogClient, st, enricher, logger),
		Planner:   downloads.NewPlanner(st, catalogClient, logger),
		Processor: downloads.NewProcessor(st, fetcher, notifier, logger),
		Uploads:   uploadSvc,
		Scheduler: sched,
		Notifier:  notifier,
	}, nil
}
