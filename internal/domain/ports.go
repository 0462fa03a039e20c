package domain

import "context"

type ReviewRepository interface {
	// Write paths. InsertReview must return ErrConflict when the
	// (author, target kind, target id) unique constraint rejects the row.
	InsertReview(ctx context.Context, r Review) error
	UpdateReview(ctx context.Context, r Review) error
	DeleteReview(ctx context.Context, id string) error

	// Read paths
	GetReview(ctx context.Context, id string) (Review, error)
	ListReviews(ctx context.Context, t Target, pg PageQuery) (ReviewsPage, error)
	ListAllReviews(ctx context.Context, t Target) ([]Review, error)
}

type TargetRepository interface {
	InsertTarget(ctx context.Context, t TargetInfo) error
	GetTarget(ctx context.Context, t Target) (TargetInfo, error)
	ListTargets(ctx context.Context, kind TargetKind, limit int) ([]TargetInfo, error)
	ListTargetRefs(ctx context.Context) ([]Target, error)

	// SetRatingCache overwrites the denormalized rating fields.
	SetRatingCache(ctx context.Context, t Target, avg float64, total int) error
	PushReviewRef(ctx context.Context, t Target, reviewID string) error
	PullReviewRef(ctx context.Context, t Target, reviewID string) error
}

type BookingRepository interface {
	InsertBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	ListBookings(ctx context.Context, limit int) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, st BookingStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, st PaymentStatus) error
	DeleteBooking(ctx context.Context, id string) error
}

// Store bundles the repositories a storage backend provides.
type Store interface {
	ReviewRepository
	TargetRepository
	BookingRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
