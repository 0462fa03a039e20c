package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"travel_market/internal/domain"
	"travel_market/internal/storage/memory"
)

func TestStore_ReviewUniquePerAuthorAndTarget(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	d := domain.Target{Kind: domain.KindDestination, ID: "d1"}
	p := domain.Target{Kind: domain.KindPackage, ID: "d1"}

	if err := s.InsertReview(ctx, domain.Review{ID: "r1", AuthorID: "u1", Target: d, Rating: 5}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := s.InsertReview(ctx, domain.Review{ID: "r2", AuthorID: "u1", Target: d, Rating: 1})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// same id under the other kind is a different target
	if err := s.InsertReview(ctx, domain.Review{ID: "r3", AuthorID: "u1", Target: p, Rating: 4}); err != nil {
		t.Fatalf("package insert: %v", err)
	}
	// deleting frees the slot
	if err := s.DeleteReview(ctx, "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.InsertReview(ctx, domain.Review{ID: "r4", AuthorID: "u1", Target: d, Rating: 2}); err != nil {
		t.Fatalf("re-insert after delete: %v", err)
	}
}

func TestStore_ListAllReviewsNewestFirst(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	d := domain.Target{Kind: domain.KindDestination, ID: "d1"}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		r := domain.Review{ID: id, AuthorID: id, Target: d, Rating: 3, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.InsertReview(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	got, _ := s.ListAllReviews(ctx, d)
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}
	page, _ := s.ListReviews(ctx, d, domain.PageQuery{Limit: 2})
	if len(page.Items) != 2 {
		t.Fatalf("limit not applied: %d", len(page.Items))
	}
}

func TestStore_ReviewRefsAndRatingCache(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ti := domain.TargetInfo{ID: "p1", Kind: domain.KindPackage, Name: "Alps"}
	if err := s.InsertTarget(ctx, ti); err != nil {
		t.Fatalf("insert target: %v", err)
	}
	ref := ti.Ref()
	_ = s.PushReviewRef(ctx, ref, "r1")
	_ = s.PushReviewRef(ctx, ref, "r1")
	_ = s.PushReviewRef(ctx, ref, "r2")
	_ = s.PullReviewRef(ctx, ref, "r1")
	if err := s.SetRatingCache(ctx, ref, 4.5, 2); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	got, err := s.GetTarget(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.ReviewIDs) != 1 || got.ReviewIDs[0] != "r2" {
		t.Fatalf("unexpected refs: %v", got.ReviewIDs)
	}
	if got.AverageRating != 4.5 || got.TotalReviews != 2 {
		t.Fatalf("unexpected cache: %+v", got)
	}
	if _, err := s.GetTarget(ctx, domain.Target{Kind: domain.KindDestination, ID: "p1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other kind, got %v", err)
	}
}
