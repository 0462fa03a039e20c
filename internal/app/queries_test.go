package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"travel_market/internal/app"
	"travel_market/internal/domain"
)

func TestGetTarget_CacheMissThenHit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// Miss (first time, populates cache)
	ti, err := f.queries.GetTarget(ctx, f.dest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ti.Name != "Lisbon" {
		t.Fatalf("unexpected target: %+v", ti)
	}

	// Mutate store to ensure second read indeed comes from cache
	_ = f.store.SetRatingCache(ctx, f.dest, 1, 42)

	ti2, err := f.queries.GetTarget(ctx, f.dest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ti2.TotalReviews != 0 {
		t.Fatalf("expected cached target, got %+v", ti2)
	}
}

func TestListReviews_CacheAndInvalidation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	pg := domain.PageQuery{Limit: app.DefaultReviewLimit, Sort: "-created_at"}

	if _, err := f.reviews.SubmitReview(ctx, userU.ID, f.dest, app.ReviewInput{Rating: 4, Comment: "Ana"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	out, err := f.queries.ListReviews(ctx, f.dest, pg)
	if err != nil || len(out.Items) != 1 {
		t.Fatalf("list: %d, %v", len(out.Items), err)
	}

	// a write through the service invalidates the cached page
	f.advance(time.Minute)
	if _, err := f.reviews.SubmitReview(ctx, userV.ID, f.dest, app.ReviewInput{Rating: 2, Comment: "Bob"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	out2, _ := f.queries.ListReviews(ctx, f.dest, pg)
	if len(out2.Items) != 2 || out2.Items[0].Comment != "Bob" {
		t.Fatalf("expected fresh page newest first, got %+v", out2.Items)
	}
}

func TestListReviews_DeleteInvalidatesAnyPageSize(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, err := f.reviews.SubmitReview(ctx, userU.ID, f.dest, app.ReviewInput{Rating: 4, Comment: "Ana"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, limit := range []int{5, 7, app.DefaultReviewLimit} {
		out, err := f.queries.ListReviews(ctx, f.dest, domain.PageQuery{Limit: limit, Sort: "-created_at"})
		if err != nil || len(out.Items) != 1 {
			t.Fatalf("limit %d before delete: %d, %v", limit, len(out.Items), err)
		}
	}
	if err := f.reviews.DeleteReview(ctx, userU, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, limit := range []int{5, 7, app.DefaultReviewLimit} {
		out, err := f.queries.ListReviews(ctx, f.dest, domain.PageQuery{Limit: limit, Sort: "-created_at"})
		if err != nil || len(out.Items) != 0 {
			t.Fatalf("limit %d after delete: deleted review still listed (%d items, %v)", limit, len(out.Items), err)
		}
	}
}

// racingReviews runs during once, after the review set was read and
// before the caller gets to cache what it computed from it.
type racingReviews struct {
	domain.ReviewRepository
	during func()
}

func (r *racingReviews) ListAllReviews(ctx context.Context, t domain.Target) ([]domain.Review, error) {
	out, err := r.ReviewRepository.ListAllReviews(ctx, t)
	if d := r.during; d != nil {
		r.during = nil
		d()
	}
	return out, err
}

func TestComputeReviewAnalytics_WriteDuringLoadIsNotCached(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.reviews.SubmitReview(ctx, userU.ID, f.dest, app.ReviewInput{Rating: 5, Comment: "Great"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	repo := &racingReviews{ReviewRepository: f.store, during: func() {
		f.advance(time.Minute)
		if _, err := f.reviews.SubmitReview(ctx, userV.ID, f.dest, app.ReviewInput{Rating: 1, Comment: "Cold"}); err != nil {
			t.Errorf("concurrent submit: %v", err)
		}
	}}
	q := app.NewQueryService(repo, f.store, f.cache, 10*time.Minute, f.guard)

	a, err := q.ComputeReviewAnalytics(ctx, f.dest)
	if err != nil || a.TotalReviews != 1 {
		t.Fatalf("first read works on the snapshot it loaded: %+v, %v", a.RatingStats, err)
	}
	a, err = q.ComputeReviewAnalytics(ctx, f.dest)
	if err != nil || a.TotalReviews != 2 || a.AverageRating != 3 {
		t.Fatalf("stale analytics served after a write: %+v, %v", a.RatingStats, err)
	}
}

func TestGetTarget_CorruptCacheEntryIsAMiss(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.queries.GetTarget(ctx, f.dest); err != nil {
		t.Fatalf("prime: %v", err)
	}
	corrupted := 0
	for k := range f.cache.store {
		if strings.HasPrefix(k, "target:") {
			f.cache.store[k] = []byte(`{"name":`)
			corrupted++
		}
	}
	if corrupted != 1 {
		t.Fatalf("expected one cached target entry, got %d", corrupted)
	}
	_ = f.store.SetRatingCache(ctx, f.dest, 4.5, 2)

	ti, err := f.queries.GetTarget(ctx, f.dest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ti.Name != "Lisbon" || ti.TotalReviews != 2 {
		t.Fatalf("corrupt entry served as a hit: %+v", ti)
	}
}

func TestListReviews_Limits(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.queries.ListReviews(ctx, f.dest, domain.PageQuery{Limit: app.MaxReviewLimit + 1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := f.queries.ListReviews(ctx, domain.Target{Kind: domain.KindDestination, ID: "ghost"}, domain.PageQuery{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReview_TimeRemaining(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, _ := f.reviews.SubmitReview(ctx, userU.ID, f.dest, app.ReviewInput{Rating: 5, Comment: "Great"})

	f.advance(20 * time.Hour)
	v, err := f.queries.GetReview(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.TimeRemaining != "4h 0m left" {
		t.Fatalf("time remaining = %q", v.TimeRemaining)
	}
	f.advance(5 * time.Hour)
	v, _ = f.queries.GetReview(ctx, r.ID)
	if v.TimeRemaining != "Expired" {
		t.Fatalf("time remaining = %q", v.TimeRemaining)
	}
}

func TestCreateTarget_AdminOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	in := domain.TargetInfo{Kind: domain.KindDestination, Name: "Kyoto", AverageRating: 5, TotalReviews: 100}

	if _, err := f.targets.CreateTarget(ctx, userU, in); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.targets.CreateTarget(ctx, admin, domain.TargetInfo{Kind: domain.KindDestination}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	ti, err := f.targets.CreateTarget(ctx, admin, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ti.ID == "" || ti.TotalReviews != 0 || ti.AverageRating != 0 {
		t.Fatalf("caller-supplied rating cache must be reset: %+v", ti)
	}
	list, _ := f.queries.ListTargets(ctx, domain.KindDestination, 0)
	if len(list) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(list))
	}
}
