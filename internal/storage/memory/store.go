// Package memory is an in-process Store with the same unique constraint as
// the database backends. It backs local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"travel_market/internal/domain"
)

type uniqueKey struct {
	author string
	target domain.Target
}

type Store struct {
	mu       sync.RWMutex
	reviews  map[string]domain.Review
	unique   map[uniqueKey]string
	targets  map[domain.Target]domain.TargetInfo
	bookings map[string]domain.Booking

	// FailRatingCache makes SetRatingCache fail, to exercise best-effort paths.
	FailRatingCache error
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		reviews:  map[string]domain.Review{},
		unique:   map[uniqueKey]string{},
		targets:  map[domain.Target]domain.TargetInfo{},
		bookings: map[string]domain.Booking{},
	}
}

// ---- reviews ----

func (s *Store) InsertReview(ctx context.Context, r domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := uniqueKey{author: r.AuthorID, target: r.Target}
	if _, dup := s.unique[k]; dup {
		return domain.ErrConflict
	}
	if _, dup := s.reviews[r.ID]; dup {
		return domain.ErrConflict
	}
	s.unique[k] = r.ID
	s.reviews[r.ID] = cloneReview(r)
	return nil
}

func (s *Store) UpdateReview(ctx context.Context, r domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Rating, cur.Comment, cur.UpdatedAt = r.Rating, r.Comment, r.UpdatedAt
	s.reviews[r.ID] = cur
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.reviews, id)
	delete(s.unique, uniqueKey{author: r.AuthorID, target: r.Target})
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return cloneReview(r), nil
}

func (s *Store) ListReviews(ctx context.Context, t domain.Target, pg domain.PageQuery) (domain.ReviewsPage, error) {
	all, _ := s.ListAllReviews(ctx, t)
	if pg.Limit > 0 && len(all) > pg.Limit {
		all = all[:pg.Limit]
	}
	return domain.ReviewsPage{Items: all}, nil
}

// ListAllReviews returns newest first, like the database backends.
func (s *Store) ListAllReviews(ctx context.Context, t domain.Target) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.Target == t {
			out = append(out, cloneReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ---- targets ----

func (s *Store) InsertTarget(ctx context.Context, ti domain.TargetInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.targets[ti.Ref()]; dup {
		return domain.ErrConflict
	}
	s.targets[ti.Ref()] = cloneTarget(ti)
	return nil
}

func (s *Store) GetTarget(ctx context.Context, t domain.Target) (domain.TargetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ti, ok := s.targets[t]
	if !ok {
		return domain.TargetInfo{}, domain.ErrNotFound
	}
	return cloneTarget(ti), nil
}

func (s *Store) ListTargets(ctx context.Context, kind domain.TargetKind, limit int) ([]domain.TargetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TargetInfo
	for _, ti := range s.targets {
		if ti.Kind == kind {
			out = append(out, cloneTarget(ti))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListTargetRefs(ctx context.Context) ([]domain.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Target, 0, len(s.targets))
	for t := range s.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *Store) SetRatingCache(ctx context.Context, t domain.Target, avg float64, total int) error {
	if s.FailRatingCache != nil {
		return s.FailRatingCache
	}
	return s.mutateTarget(t, func(ti *domain.TargetInfo) {
		ti.AverageRating, ti.TotalReviews = avg, total
	})
}

func (s *Store) PushReviewRef(ctx context.Context, t domain.Target, reviewID string) error {
	return s.mutateTarget(t, func(ti *domain.TargetInfo) {
		for _, id := range ti.ReviewIDs {
			if id == reviewID {
				return
			}
		}
		ti.ReviewIDs = append(ti.ReviewIDs, reviewID)
	})
}

func (s *Store) PullReviewRef(ctx context.Context, t domain.Target, reviewID string) error {
	return s.mutateTarget(t, func(ti *domain.TargetInfo) {
		kept := ti.ReviewIDs[:0]
		for _, id := range ti.ReviewIDs {
			if id != reviewID {
				kept = append(kept, id)
			}
		}
		ti.ReviewIDs = kept
	})
}

func (s *Store) mutateTarget(t domain.Target, fn func(*domain.TargetInfo)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ok := s.targets[t]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&ti)
	ti.UpdatedAt = time.Now().UTC()
	s.targets[t] = ti
	return nil
}

// ---- bookings ----

func (s *Store) InsertBooking(ctx context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.bookings[b.ID]; dup {
		return domain.ErrConflict
	}
	s.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.listBookings(func(b domain.Booking) bool { return b.UserID == userID }, 0), nil
}

func (s *Store) ListBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	return s.listBookings(func(domain.Booking) bool { return true }, limit), nil
}

func (s *Store) listBookings(keep func(domain.Booking) bool, limit int) []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, st domain.BookingStatus) error {
	return s.mutateBooking(id, func(b *domain.Booking) { b.Status = st })
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, st domain.PaymentStatus) error {
	return s.mutateBooking(id, func(b *domain.Booking) { b.PaymentStatus = st })
}

func (s *Store) mutateBooking(id string, fn func(*domain.Booking)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&b)
	b.UpdatedAt = time.Now().UTC()
	s.bookings[id] = b
	return nil
}

func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

// ---- copies (callers must not alias stored slices) ----

func cloneReview(r domain.Review) domain.Review {
	r.Images = append([]string(nil), r.Images...)
	return r
}

func cloneTarget(ti domain.TargetInfo) domain.TargetInfo {
	ti.Images = append([]string(nil), ti.Images...)
	ti.ReviewIDs = append([]string(nil), ti.ReviewIDs...)
	return ti
}

func cloneBooking(b domain.Booking) domain.Booking {
	if b.Snapshot != nil {
		snap := *b.Snapshot
		b.Snapshot = &snap
	}
	b.Items = append([]domain.LineItem(nil), b.Items...)
	return b
}
