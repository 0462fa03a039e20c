//go:build integration || !unit

package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"travel_market/internal/domain"
	mongorepo "travel_market/internal/storage/mongo"
)

func startMongo(t *testing.T) *mongorepo.Store {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7.0",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mongo: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	uri := fmt.Sprintf("mongodb://127.0.0.1:%s", resource.GetPort("27017/tcp"))
	var store *mongorepo.Store
	if err := pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var e error
		store, e = mongorepo.Connect(ctx, uri, "travel_test")
		return e
	}); err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestStore_Mongo_ReviewsTargetsBookings(t *testing.T) {
	store := startMongo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pkg := domain.Target{Kind: domain.KindPackage, ID: "pkg-1"}
	if err := store.InsertTarget(ctx, domain.TargetInfo{ID: pkg.ID, Kind: pkg.Kind, Name: "Alps Week", Price: 100, Duration: "7 days", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("InsertTarget: %v", err)
	}
	if err := store.InsertTarget(ctx, domain.TargetInfo{ID: pkg.ID, Kind: pkg.Kind, Name: "Again", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate target: want ErrConflict, got %v", err)
	}

	r1 := domain.Review{ID: "r1", AuthorID: "u", Target: pkg, Rating: 5, Comment: "Great", CreatedAt: now, UpdatedAt: now}
	r2 := domain.Review{ID: "r2", AuthorID: "v", Target: pkg, Rating: 3, Comment: "Fine", CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)}
	for _, r := range []domain.Review{r1, r2} {
		if err := store.InsertReview(ctx, r); err != nil {
			t.Fatalf("InsertReview %s: %v", r.ID, err)
		}
		if err := store.PushReviewRef(ctx, pkg, r.ID); err != nil {
			t.Fatalf("PushReviewRef: %v", err)
		}
	}
	// pushing twice keeps a single reference
	if err := store.PushReviewRef(ctx, pkg, "r1"); err != nil {
		t.Fatalf("PushReviewRef again: %v", err)
	}

	dup := domain.Review{ID: "r3", AuthorID: "u", Target: pkg, Rating: 1, Comment: "x", CreatedAt: now, UpdatedAt: now}
	if err := store.InsertReview(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate author/target: want ErrConflict, got %v", err)
	}
	// same author, other kind with the same id is a different target
	other := domain.Review{ID: "r4", AuthorID: "u", Target: domain.Target{Kind: domain.KindDestination, ID: "pkg-1"}, Rating: 4, Comment: "y", CreatedAt: now, UpdatedAt: now}
	if err := store.InsertReview(ctx, other); err != nil {
		t.Fatalf("other kind: %v", err)
	}

	all, err := store.ListAllReviews(ctx, pkg)
	if err != nil || len(all) != 2 || all[0].ID != "r2" {
		t.Fatalf("ListAllReviews: %v %+v", err, all)
	}

	r1.Rating, r1.Comment, r1.UpdatedAt = 4, "Still great", now.Add(time.Hour)
	if err := store.UpdateReview(ctx, r1); err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	got, err := store.GetReview(ctx, "r1")
	if err != nil || got.Rating != 4 || !got.CreatedAt.Equal(now) {
		t.Fatalf("GetReview: %v %+v", err, got)
	}

	if err := store.DeleteReview(ctx, "r2"); err != nil {
		t.Fatalf("DeleteReview: %v", err)
	}
	if err := store.PullReviewRef(ctx, pkg, "r2"); err != nil {
		t.Fatalf("PullReviewRef: %v", err)
	}
	if err := store.SetRatingCache(ctx, pkg, 4, 1); err != nil {
		t.Fatalf("SetRatingCache: %v", err)
	}
	if err := store.SetRatingCache(ctx, domain.Target{Kind: domain.KindPackage, ID: "ghost"}, 1, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetRatingCache ghost: want ErrNotFound, got %v", err)
	}

	ti, err := store.GetTarget(ctx, pkg)
	if err != nil {
		t.Fatalf("GetTarget: %v", err)
	}
	if ti.AverageRating != 4 || ti.TotalReviews != 1 || len(ti.ReviewIDs) != 1 || ti.ReviewIDs[0] != "r1" {
		t.Fatalf("target after writes: %+v", ti)
	}

	refs, err := store.ListTargetRefs(ctx)
	if err != nil || len(refs) != 1 || refs[0] != pkg {
		t.Fatalf("ListTargetRefs: %v %+v", err, refs)
	}

	b := domain.Booking{
		ID: "b1", UserID: "u", Target: pkg,
		Snapshot:  &domain.Snapshot{Name: "Alps Week", Price: 100, Duration: "7 days"},
		Travelers: 2, TotalAmount: 200,
		Status: domain.BookingPending, PaymentStatus: domain.PaymentPending,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := store.InsertBooking(ctx, b); err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}
	if err := store.UpdateBookingStatus(ctx, "b1", domain.BookingCancelled); err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if err := store.UpdatePaymentStatus(ctx, "b1", domain.PaymentRefunded); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	gb, err := store.GetBooking(ctx, "b1")
	if err != nil || gb.Status != domain.BookingCancelled || gb.PaymentStatus != domain.PaymentRefunded || gb.Snapshot == nil || gb.Snapshot.Price != 100 {
		t.Fatalf("GetBooking: %v %+v", err, gb)
	}
	list, err := store.ListBookings(ctx, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListBookings: %v %+v", err, list)
	}
	if err := store.DeleteBooking(ctx, "b1"); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if err := store.DeleteBooking(ctx, "b1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}
