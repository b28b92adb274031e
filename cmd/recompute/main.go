// Command recompute rebuilds every company's rating and reviews count from
// its approved reviews. Run it after a bulk import or to repair aggregates
// left stale by RECOMPUTE_ON_DELETE=false.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/murabaat/review-service/internal/app"
	"github.com/murabaat/review-service/internal/config"
	"github.com/murabaat/review-service/internal/service"
	"github.com/murabaat/review-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("review-recompute", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("recompute failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	defer openCancel()

	store, err := app.OpenStore(openCtx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// Cached company documents expire on their own TTL; the CLI does not
	// need a cache connection.
	aggregator := service.NewAggregatorService(store.Companies, store.Reviews, nil, log)
	if cfg.SearchBackend == config.SearchElasticsearch {
		// refresh search documents alongside the aggregates
		if _, es := app.OpenSearchIndex(openCtx, cfg, log); es != nil {
			aggregator.WithSearchIndex(es)
		}
	}

	start := time.Now()
	summary, err := aggregator.RecomputeAllCompanyRatings(ctx)
	if summary != nil {
		log.Info("recompute finished",
			slog.Int("companies", summary.Total),
			slog.Int("recomputed", summary.Recomputed),
			slog.Duration("took", time.Since(start)),
		)
	}
	return err
}
