package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"travel_market/internal/adapters/observability"
	"travel_market/internal/domain"
)

type ReviewInput struct {
	Rating  int
	Comment string
	Images  []string
}

type ReviewService struct {
	reviews  domain.ReviewRepository
	targets  domain.TargetRepository
	bookings domain.BookingRepository
	cache    domain.Cache
	guard    Guard
	newID    func() string
}

func NewReviewService(r domain.ReviewRepository, t domain.TargetRepository, b domain.BookingRepository, c domain.Cache, g Guard) *ReviewService {
	return &ReviewService{reviews: r, targets: t, bookings: b, cache: c, guard: g, newID: uuid.NewString}
}

func requireActor(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: authenticated actor is required", domain.ErrValidation)
	}
	return nil
}

// SubmitReview stores a new review of t by actorID. A second review by the
// same author for the same target fails with ErrConflict from the storage
// unique index.
func (s *ReviewService) SubmitReview(ctx context.Context, actorID string, t domain.Target, in ReviewInput) (domain.Review, error) {
	if err := requireActor(actorID); err != nil {
		return domain.Review{}, err
	}
	if err := t.Validate(); err != nil {
		return domain.Review{}, err
	}
	if err := domain.ValidateRating(in.Rating); err != nil {
		return domain.Review{}, err
	}
	if err := domain.ValidateComment(in.Comment); err != nil {
		return domain.Review{}, err
	}
	if _, err := s.targets.GetTarget(ctx, t); err != nil {
		return domain.Review{}, err
	}

	now := s.guard.now().UTC()
	r := domain.Review{
		ID:        s.newID(),
		AuthorID:  actorID,
		Target:    t,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		Images:    in.Images,
		Verified:  s.hasStayed(ctx, actorID, t),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.InsertReview(ctx, r); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.ObserveReview("conflict")
		}
		return domain.Review{}, err
	}
	observability.ObserveReview("submitted")

	if err := s.targets.PushReviewRef(ctx, t, r.ID); err != nil {
		log.Warn().Err(err).Str("target", t.String()).Str("review", r.ID).Msg("push review ref failed")
	}
	s.refreshRating(ctx, t)
	return r, nil
}

// EditReview changes rating and/or comment. CreatedAt is never touched,
// so editing does not extend the window.
func (s *ReviewService) EditReview(ctx context.Context, actor domain.Actor, reviewID string, rating *int, comment *string) (domain.Review, error) {
	if err := requireActor(actor.ID); err != nil {
		return domain.Review{}, err
	}
	if rating == nil && comment == nil {
		return domain.Review{}, fmt.Errorf("%w: rating or comment is required", domain.ErrValidation)
	}
	r, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if !s.guard.CanMutate(r, actor) {
		observability.ObserveReview("denied")
		return domain.Review{}, errDenied
	}
	if rating != nil {
		if err := domain.ValidateRating(*rating); err != nil {
			return domain.Review{}, err
		}
		r.Rating = *rating
	}
	if comment != nil {
		if err := domain.ValidateComment(*comment); err != nil {
			return domain.Review{}, err
		}
		r.Comment = strings.TrimSpace(*comment)
	}
	r.UpdatedAt = s.guard.now().UTC()
	if err := s.reviews.UpdateReview(ctx, r); err != nil {
		return domain.Review{}, err
	}
	observability.ObserveReview("edited")
	s.refreshRating(ctx, r.Target)
	return r, nil
}

// DeleteReview removes the review and then pulls its id from the target's
// embedded list. The two writes are not atomic.
func (s *ReviewService) DeleteReview(ctx context.Context, actor domain.Actor, reviewID string) error {
	if err := requireActor(actor.ID); err != nil {
		return err
	}
	r, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if !s.guard.CanMutate(r, actor) {
		observability.ObserveReview("denied")
		return errDenied
	}
	if err := s.reviews.DeleteReview(ctx, r.ID); err != nil {
		return err
	}
	observability.ObserveReview("deleted")
	if err := s.targets.PullReviewRef(ctx, r.Target, r.ID); err != nil {
		log.Warn().Err(err).Str("target", r.Target.String()).Str("review", r.ID).Msg("pull review ref failed")
	}
	s.refreshRating(ctx, r.Target)
	return nil
}

// refreshRating rewrites the target's denormalized rating from the live
// review set. Failures are logged and swallowed; concurrent writers race
// and the last one wins until the next recompute.
func (s *ReviewService) refreshRating(ctx context.Context, t domain.Target) {
	err := recomputeRating(ctx, s.reviews, s.targets, t)
	observability.ObserveRatingRefresh("write", err)
	if err != nil {
		log.Warn().Err(err).Str("target", t.String()).Msg("rating cache refresh failed")
	}
	invalidateTarget(ctx, s.cache, t)
}

// hasStayed marks reviews from users holding a confirmed or completed booking.
func (s *ReviewService) hasStayed(ctx context.Context, userID string, t domain.Target) bool {
	if s.bookings == nil {
		return false
	}
	bs, err := s.bookings.ListBookingsByUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("verified-stay lookup failed")
		return false
	}
	for _, b := range bs {
		if b.Target == t && (b.Status == domain.BookingConfirmed || b.Status == domain.BookingCompleted) {
			return true
		}
	}
	return false
}

func recomputeRating(ctx context.Context, reviews domain.ReviewRepository, targets domain.TargetRepository, t domain.Target) error {
	all, err := reviews.ListAllReviews(ctx, t)
	if err != nil {
		return err
	}
	st := Aggregate(all)
	return targets.SetRatingCache(ctx, t, st.AverageRating, st.TotalReviews)
}
