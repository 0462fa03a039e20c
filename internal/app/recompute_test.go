package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"travel_market/internal/app"
	"travel_market/internal/domain"
)

func TestRecomputeTarget_RepairsDrift(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for i, rating := range []int{5, 4, 3} {
		if _, err := f.reviews.SubmitReview(ctx, fmt.Sprintf("u%d", i), f.dest, app.ReviewInput{Rating: rating, Comment: "x"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	// simulate a lost race on the cached average
	_ = f.store.SetRatingCache(ctx, f.dest, 1.0, 99)

	rs := app.NewRecomputeService(f.store, f.store, f.cache)
	ti, err := rs.RecomputeTarget(ctx, f.dest)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if ti.AverageRating != 4.0 || ti.TotalReviews != 3 {
		t.Fatalf("drift not repaired: %+v", ti)
	}
	if _, err := rs.RecomputeTarget(ctx, domain.Target{Kind: domain.KindPackage, ID: "ghost"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecomputeAll(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("extra-%d", i)
		if err := f.store.InsertTarget(ctx, domain.TargetInfo{ID: id, Kind: domain.KindDestination, Name: id}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		_ = f.store.SetRatingCache(ctx, domain.Target{Kind: domain.KindDestination, ID: id}, 3, 7)
	}
	if _, err := f.reviews.SubmitReview(ctx, userU.ID, f.pkg, app.ReviewInput{Rating: 2, Comment: "x"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rep, err := app.NewRecomputeService(f.store, f.store, f.cache).RecomputeAll(ctx, 2)
	if err != nil {
		t.Fatalf("recompute all: %v", err)
	}
	if rep.Targets != 6 || rep.Failed != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	refs, _ := f.store.ListTargetRefs(ctx)
	for _, ref := range refs {
		ti, _ := f.store.GetTarget(ctx, ref)
		want := 0
		if ref == f.pkg {
			want = 1
		}
		if ti.TotalReviews != want {
			t.Fatalf("%s: total %d, want %d", ref, ti.TotalReviews, want)
		}
	}
}
