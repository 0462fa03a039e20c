package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"travel_market/internal/domain"
)

const (
	DefaultReviewLimit = 50
	MaxReviewLimit     = 200
	recentReviewsLimit = 5

	// bounds for target and booking listings
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type QueryService struct {
	reviews  domain.ReviewRepository
	targets  domain.TargetRepository
	cache    domain.Cache
	cacheTTL time.Duration
	guard    Guard
}

func NewQueryService(r domain.ReviewRepository, t domain.TargetRepository, c domain.Cache, ttl time.Duration, g Guard) *QueryService {
	return &QueryService{reviews: r, targets: t, cache: c, cacheTTL: ttl, guard: g}
}

func targetKey(t domain.Target, gen string) string {
	return fmt.Sprintf("target:%s:%s:v%s", t.Kind, t.ID, gen)
}

func analyticsKey(t domain.Target, gen string) string {
	return fmt.Sprintf("analytics:%s:%s:v%s", t.Kind, t.ID, gen)
}

func reviewsKey(t domain.Target, gen string, limit int, sort string) string {
	return fmt.Sprintf("reviews:%s:%s:v%s:%d:%s", t.Kind, t.ID, gen, limit, sort)
}

// generation must be read before the repository so that a write landing
// in between leaves this read's entry under a dead generation.
func (s *QueryService) generation(ctx context.Context, t domain.Target) (string, bool) {
	if s.cacheTTL <= 0 {
		return "", false
	}
	return generation(ctx, s.cache, t)
}

// cacheGet reports a hit only for an entry that decoded cleanly.
func (s *QueryService) cacheGet(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, loading from store")
		return false
	}
	return ok
}

func (s *QueryService) cacheSet(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *QueryService) GetTarget(ctx context.Context, t domain.Target) (domain.TargetInfo, error) {
	if err := t.Validate(); err != nil {
		return domain.TargetInfo{}, err
	}
	gen, cached := s.generation(ctx, t)
	key := targetKey(t, gen)
	var ti domain.TargetInfo
	if cached && s.cacheGet(ctx, key, &ti) {
		return ti, nil
	}
	ti, err := s.targets.GetTarget(ctx, t)
	if err != nil {
		return domain.TargetInfo{}, err
	}
	if cached {
		s.cacheSet(ctx, key, ti)
	}
	return ti, nil
}

func (s *QueryService) ListTargets(ctx context.Context, kind domain.TargetKind, limit int) ([]domain.TargetInfo, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	return s.targets.ListTargets(ctx, kind, limit)
}

func (s *QueryService) ListReviews(ctx context.Context, t domain.Target, pg domain.PageQuery) (domain.ReviewsPage, error) {
	if err := t.Validate(); err != nil {
		return domain.ReviewsPage{}, err
	}
	if pg.Limit <= 0 {
		pg.Limit = DefaultReviewLimit
	}
	if pg.Limit > MaxReviewLimit {
		return domain.ReviewsPage{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, MaxReviewLimit)
	}
	gen, cached := s.generation(ctx, t)
	key := reviewsKey(t, gen, pg.Limit, pg.Sort)
	var out domain.ReviewsPage
	if cached && s.cacheGet(ctx, key, &out) {
		return out, nil
	}
	if _, err := s.targets.GetTarget(ctx, t); err != nil {
		return domain.ReviewsPage{}, err
	}

	rs, err := s.reviews.ListReviews(ctx, t, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := deepCopyReviewsPage(rs)

	if cached {
		// optional size guard
		if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
			s.cacheSet(ctx, key, copyRS)
		}
	}
	return copyRS, nil
}

func (s *QueryService) GetReview(ctx context.Context, id string) (domain.ReviewView, error) {
	r, err := s.reviews.GetReview(ctx, id)
	if err != nil {
		return domain.ReviewView{}, err
	}
	return domain.ReviewView{Review: r, TimeRemaining: s.guard.TimeRemaining(r.CreatedAt)}, nil
}

// ComputeReviewAnalytics aggregates the live review set of t. The target's
// denormalized rating is never consulted.
func (s *QueryService) ComputeReviewAnalytics(ctx context.Context, t domain.Target) (domain.ReviewAnalytics, error) {
	if err := t.Validate(); err != nil {
		return domain.ReviewAnalytics{}, err
	}
	gen, cached := s.generation(ctx, t)
	key := analyticsKey(t, gen)
	var out domain.ReviewAnalytics
	if cached && s.cacheGet(ctx, key, &out) {
		return out, nil
	}
	if _, err := s.targets.GetTarget(ctx, t); err != nil {
		return domain.ReviewAnalytics{}, err
	}
	all, err := s.reviews.ListAllReviews(ctx, t)
	if err != nil {
		return domain.ReviewAnalytics{}, err
	}
	out = domain.ReviewAnalytics{Target: t, RatingStats: Aggregate(all), RecentReviews: recent(all, recentReviewsLimit)}
	if cached {
		s.cacheSet(ctx, key, out)
	}
	return out, nil
}

// recent returns up to n reviews, newest first, without reordering in.
func recent(in []domain.Review, n int) []domain.Review {
	out := make([]domain.Review, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
