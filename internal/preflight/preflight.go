package preflight

import (
	"context"

	"reelcast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// minMediaFree is the free space below which downloads are likely to fail.
const minMediaFree = 1 << 30

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		CheckFreeSpace("Media free space", cfg.Paths.MediaDir, minMediaFree),
		CheckCatalog(ctx, cfg.Catalog.BaseURL),
		CheckPublisher(ctx, cfg.Publisher.BaseURL, cfg.Publisher.Cookie),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.EnrichmentEnabled() {
		results = append(results, CheckLLM(ctx, "Enrichment LLM", cfg.GetLLM()))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
