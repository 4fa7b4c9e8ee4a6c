// One-shot sweep runner. Useful for cron-from-outside setups and for
// kicking a sweep by hand without waiting for the in-process schedule.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"animehub/internal/catalog"
	"animehub/internal/media"
	"animehub/internal/reconcile"
	"animehub/internal/relations"
	"animehub/internal/schedule"
	"animehub/pkg/database"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

func main() {
	sweep := flag.String("sweep", "anime", "which sweep to run: anime | manga | airing | repair")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall sweep timeout")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	repo := media.NewRepo(db)
	graph := relations.NewManager(repo, logger.Named("relations"))
	engine := reconcile.NewEngine(repo, catalog.NewClient(), logger.Named("reconcile"))
	s := schedule.New(utils.LoadScheduleConfig(), repo, engine, graph, nil, logger.Named("schedule"))

	var sum schedule.Summary
	switch *sweep {
	case "anime":
		sum = s.ReconcileSweep(ctx, models.KindAnime)
	case "manga":
		sum = s.ReconcileSweep(ctx, models.KindManga)
	case "airing":
		sum = s.AiringSweep(ctx)
	case "repair":
		sum = s.RepairSweep(ctx)
	default:
		logger.Fatal("unknown sweep", zap.String("sweep", *sweep))
	}

	logger.Info("sweep done",
		zap.String("sweep", sum.Sweep),
		zap.Int("successful", sum.Successful),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("duration", sum.Duration))
}
