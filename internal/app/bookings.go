package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"travel_market/internal/domain"
)

type BookingService struct {
	bookings domain.BookingRepository
	targets  domain.TargetRepository
	guard    Guard
	newID    func() string
}

func NewBookingService(b domain.BookingRepository, t domain.TargetRepository, g Guard) *BookingService {
	return &BookingService{bookings: b, targets: t, guard: g, newID: uuid.NewString}
}

// CreateBooking records a checkout for actorID. The target must exist; the
// snapshot name defaults to the target's name and the total is computed
// when the caller leaves it at zero.
func (s *BookingService) CreateBooking(ctx context.Context, actorID string, b domain.Booking) (domain.Booking, error) {
	if err := requireActor(actorID); err != nil {
		return domain.Booking{}, err
	}
	b.UserID = actorID
	if err := b.Validate(); err != nil {
		return domain.Booking{}, err
	}
	ti, err := s.targets.GetTarget(ctx, b.Target)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Snapshot != nil {
		snap := *b.Snapshot
		if snap.Name == "" {
			snap.Name = ti.Name
		}
		if snap.Duration == "" {
			snap.Duration = ti.Duration
		}
		b.Snapshot = &snap
	}
	if b.TotalAmount == 0 {
		b.TotalAmount = b.ComputeTotal()
	}
	now := s.guard.now().UTC()
	b.ID = s.newID()
	b.Status = domain.BookingPending
	b.PaymentStatus = domain.PaymentPending
	b.CreatedAt, b.UpdatedAt = now, now
	if err := s.bookings.InsertBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// load fetches a booking the actor owns or, for admins, any booking.
func (s *BookingService) load(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	if err := requireActor(actor.ID); err != nil {
		return domain.Booking{}, err
	}
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.UserID != actor.ID && !actor.IsAdmin() {
		return domain.Booking{}, fmt.Errorf("%w: booking belongs to another user", domain.ErrForbidden)
	}
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, id string) (domain.Booking, error) {
	return s.load(ctx, actor, id)
}

// ListMyBookings is always scoped to the actor; there is no user filter to pass.
func (s *BookingService) ListMyBookings(ctx context.Context, actor domain.Actor) ([]domain.Booking, error) {
	if err := requireActor(actor.ID); err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByUser(ctx, actor.ID)
}

func (s *BookingService) ListAllBookings(ctx context.Context, actor domain.Actor, limit int) ([]domain.Booking, error) {
	if err := requireActor(actor.ID); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: administrators only", domain.ErrForbidden)
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	return s.bookings.ListBookings(ctx, limit)
}

// SetBookingStatus accepts any enumerated status regardless of the current one.
func (s *BookingService) SetBookingStatus(ctx context.Context, actor domain.Actor, id, status string) (domain.Booking, error) {
	st, err := domain.ParseBookingStatus(status)
	if err != nil {
		return domain.Booking{}, err
	}
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.bookings.UpdateBookingStatus(ctx, id, st); err != nil {
		return domain.Booking{}, err
	}
	b.Status = st
	b.UpdatedAt = s.guard.now().UTC()
	return b, nil
}

func (s *BookingService) SetPaymentStatus(ctx context.Context, actor domain.Actor, id, status string) (domain.Booking, error) {
	st, err := domain.ParsePaymentStatus(status)
	if err != nil {
		return domain.Booking{}, err
	}
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.bookings.UpdatePaymentStatus(ctx, id, st); err != nil {
		return domain.Booking{}, err
	}
	b.PaymentStatus = st
	b.UpdatedAt = s.guard.now().UTC()
	return b, nil
}

// DeleteBooking is a hard delete by the owner. Reviews are left alone.
func (s *BookingService) DeleteBooking(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireActor(actor.ID); err != nil {
		return err
	}
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != actor.ID {
		return fmt.Errorf("%w: only the owner can delete a booking", domain.ErrForbidden)
	}
	return s.bookings.DeleteBooking(ctx, id)
}
