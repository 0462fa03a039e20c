package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"travel_market/internal/adapters/observability"
	"travel_market/internal/domain"
)

// RecomputeService repairs denormalized ratings from the live review sets.
type RecomputeService struct {
	reviews domain.ReviewRepository
	targets domain.TargetRepository
	cache   domain.Cache
}

func NewRecomputeService(r domain.ReviewRepository, t domain.TargetRepository, c domain.Cache) *RecomputeService {
	return &RecomputeService{reviews: r, targets: t, cache: c}
}

func (s *RecomputeService) RecomputeTarget(ctx context.Context, t domain.Target) (domain.TargetInfo, error) {
	if err := t.Validate(); err != nil {
		return domain.TargetInfo{}, err
	}
	if _, err := s.targets.GetTarget(ctx, t); err != nil {
		return domain.TargetInfo{}, err
	}
	err := recomputeRating(ctx, s.reviews, s.targets, t)
	observability.ObserveRatingRefresh("recompute", err)
	if err != nil {
		return domain.TargetInfo{}, err
	}
	invalidateTarget(ctx, s.cache, t)
	return s.targets.GetTarget(ctx, t)
}

type RecomputeReport struct {
	Targets int
	Failed  int
}

// RecomputeAll fans out over every target with at most workers in flight.
// A failing target is logged and counted; the run continues.
func (s *RecomputeService) RecomputeAll(ctx context.Context, workers int) (RecomputeReport, error) {
	start := time.Now()
	defer func() { observability.ObserveRecompute(time.Since(start)) }()

	if workers <= 0 {
		workers = 1
	}
	refs, err := s.targets.ListTargetRefs(ctx)
	if err != nil {
		return RecomputeReport{}, err
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, t := range refs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return RecomputeReport{Targets: len(refs), Failed: int(failed.Load())}, err
		}
		wg.Add(1)
		go func(t domain.Target) {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := s.RecomputeTarget(ctx, t); err != nil {
				failed.Add(1)
				log.Warn().Str("target", t.String()).Err(err).Msg("recompute failed")
				return
			}
			log.Debug().Str("target", t.String()).Msg("recompute ok")
		}(t)
	}
	wg.Wait()
	return RecomputeReport{Targets: len(refs), Failed: int(failed.Load())}, nil
}
