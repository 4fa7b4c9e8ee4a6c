// Package schedule runs the background sweeps: per-kind reconciliation
// against the external catalog, airing-time recompute, and reverse-edge
// repair. Each sweep walks its entities sequentially; the reconcile sweeps
// insert a fixed delay between external calls as a throttle against the
// catalog's rate limits, so they must never be parallelized.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"animehub/internal/airing"
	"animehub/pkg/models"
	"animehub/pkg/utils"
)

// ReleasingStatus selects the entities eligible for reconcile sweeps.
const ReleasingStatus = "Currently Releasing"

// Store is the slice of the document store the sweeps need.
type Store interface {
	ListByStatus(ctx context.Context, kind models.MediaKind, status string) ([]models.Media, error)
	ListAiring(ctx context.Context) ([]models.Media, error)
	SetNextAiring(ctx context.Context, id string, na *models.NextAiring) error
}

// Reconciler applies canonical catalog data to one entity. A nil entity with
// nil error means the catalog had nothing and the item was skipped.
type Reconciler interface {
	ApplyCanonical(ctx context.Context, kind models.MediaKind, id string) (*models.Media, error)
}

// Repairer re-derives missing reverse relation edges.
type Repairer interface {
	Repair(ctx context.Context, kind models.MediaKind) (int, error)
}

// Summary is the only aggregate a sweep produces. Per-item failures are
// logged and counted, never surfaced to a caller.
type Summary struct {
	Sweep      string        `json:"sweep"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Observer receives sweep summaries as they complete.
type Observer interface {
	SweepCompleted(s Summary)
}

type Scheduler struct {
	cfg     utils.ScheduleConfig
	store   Store
	engine  Reconciler
	repairs Repairer
	obs     Observer
	log     *zap.Logger
	cron    *cron.Cron
}

func New(cfg utils.ScheduleConfig, store Store, engine Reconciler, repairs Repairer, obs Observer, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		engine:  engine,
		repairs: repairs,
		obs:     obs,
		log:     log,
		cron:    cron.New(),
	}
}

// Start registers the four cron jobs and starts the scheduler. Sweeps run
// until ctx is cancelled; a sweep interrupted mid-flight is simply abandoned
// and the next firing starts a fresh, full pass.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		run  func()
	}{
		{s.cfg.AnimeCron, func() { s.ReconcileSweep(ctx, models.KindAnime) }},
		{s.cfg.MangaCron, func() { s.ReconcileSweep(ctx, models.KindManga) }},
		{s.cfg.AiringCron, func() { s.AiringSweep(ctx) }},
		{s.cfg.RepairCron, func() { s.RepairSweep(ctx) }},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started",
		zap.String("anime_cron", s.cfg.AnimeCron),
		zap.String("manga_cron", s.cfg.MangaCron),
		zap.String("airing_cron", s.cfg.AiringCron),
		zap.String("repair_cron", s.cfg.RepairCron),
		zap.Duration("sweep_delay", s.cfg.SweepDelay))
	return nil
}

// Stop halts the cron loop. Already-running sweeps finish their current item
// and then observe their context.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ReconcileSweep applies canonical data to every currently-releasing entity
// of one kind, one at a time with the configured delay between catalog
// calls. A failing item is counted and logged; the sweep moves on.
func (s *Scheduler) ReconcileSweep(ctx context.Context, kind models.MediaKind) Summary {
	name := "anime_reconcile"
	if kind == models.KindManga {
		name = "manga_reconcile"
	}
	sum := Summary{Sweep: name, StartedAt: time.Now()}

	items, err := s.store.ListByStatus(ctx, kind, ReleasingStatus)
	if err != nil {
		s.log.Error("reconcile sweep: listing failed", zap.String("kind", string(kind)), zap.Error(err))
		return s.finish(sum)
	}

	for i := range items {
		if i > 0 {
			if !s.pause(ctx) {
				s.log.Warn("reconcile sweep cancelled", zap.String("kind", string(kind)))
				return s.finish(sum)
			}
		}

		updated, err := s.engine.ApplyCanonical(ctx, kind, items[i].ID)
		switch {
		case err != nil:
			sum.Failed++
			s.log.Warn("reconcile sweep: item failed",
				zap.String("kind", string(kind)),
				zap.String("id", items[i].ID),
				zap.Int("source_id", items[i].SourceID),
				zap.Error(err))
		case updated == nil:
			sum.Skipped++
		default:
			sum.Successful++
		}
	}
	return s.finish(sum)
}

// AiringSweep recomputes next-occurrence state for every anime that carries
// one. No external calls, so no inter-item delay.
func (s *Scheduler) AiringSweep(ctx context.Context) Summary {
	sum := Summary{Sweep: "airing", StartedAt: time.Now()}

	items, err := s.store.ListAiring(ctx)
	if err != nil {
		s.log.Error("airing sweep: listing failed", zap.Error(err))
		return s.finish(sum)
	}

	now := time.Now()
	for i := range items {
		cur := items[i].NextAiring
		if cur == nil {
			sum.Skipped++
			continue
		}

		next, changed := airing.Recompute(*cur, now, airing.Period)
		if !changed {
			sum.Skipped++
			continue
		}

		if err := s.store.SetNextAiring(ctx, items[i].ID, &next); err != nil {
			sum.Failed++
			s.log.Warn("airing sweep: write failed", zap.String("id", items[i].ID), zap.Error(err))
			continue
		}
		sum.Successful++
	}
	return s.finish(sum)
}

// RepairSweep re-derives missing reverse edges across both kinds.
func (s *Scheduler) RepairSweep(ctx context.Context) Summary {
	sum := Summary{Sweep: "repair", StartedAt: time.Now()}

	for _, kind := range []models.MediaKind{models.KindAnime, models.KindManga} {
		n, err := s.repairs.Repair(ctx, kind)
		if err != nil {
			sum.Failed++
			s.log.Warn("repair sweep failed", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		sum.Successful += n
	}
	return s.finish(sum)
}

func (s *Scheduler) finish(sum Summary) Summary {
	sum.Duration = time.Since(sum.StartedAt)
	s.log.Info("sweep finished",
		zap.String("sweep", sum.Sweep),
		zap.Int("successful", sum.Successful),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("duration", sum.Duration))
	if s.obs != nil {
		s.obs.SweepCompleted(sum)
	}
	return sum
}

// pause waits the configured inter-call delay, returning false if the
// context was cancelled first. This is a scheduled wait, not busy-waiting.
func (s *Scheduler) pause(ctx context.Context) bool {
	if s.cfg.SweepDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.cfg.SweepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
