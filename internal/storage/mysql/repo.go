package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"travel_market/internal/domain"
)

// errDupEntry is ER_DUP_ENTRY.
const errDupEntry = 1062

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func valJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

// mapErr turns driver errors the core cares about into domain sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == errDupEntry {
		return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
	}
	return err
}

func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

var _ domain.Store = (*Repo)(nil)

// New expects a DSN opened with parseTime=true.
func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- targets ----

func (r *Repo) InsertTarget(ctx context.Context, ti domain.TargetInfo) error {
	imgs, err := valJSON(ti.Images)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertTargetSQL,
		ti.Kind, ti.ID, ti.Name,
		valStr(ti.Location), valStr(ti.Category), valStr(ti.Description),
		imgs, ti.Price, valStr(ti.Duration),
		ti.AverageRating, ti.TotalReviews,
		ti.CreatedAt.UTC(), ti.UpdatedAt.UTC(),
	)
	return mapErr(err)
}

func scanTarget(s scanner) (domain.TargetInfo, error) {
	var ti domain.TargetInfo
	var location, category, desc, duration sql.NullString
	var imagesJSON []byte
	if err := s.Scan(
		&ti.Kind, &ti.ID, &ti.Name,
		&location, &category, &desc,
		&imagesJSON, &ti.Price, &duration,
		&ti.AverageRating, &ti.TotalReviews,
		&ti.CreatedAt, &ti.UpdatedAt,
	); err != nil {
		return domain.TargetInfo{}, err
	}
	ti.Location, ti.Category, ti.Description, ti.Duration = location.String, category.String, desc.String, duration.String
	if len(imagesJSON) > 0 {
		_ = json.Unmarshal(imagesJSON, &ti.Images)
	}
	return ti, nil
}

func (r *Repo) GetTarget(ctx context.Context, t domain.Target) (domain.TargetInfo, error) {
	ti, err := scanTarget(r.db.QueryRowContext(ctx, getTargetSQL, t.Kind, t.ID))
	if err != nil {
		return domain.TargetInfo{}, mapErr(err)
	}
	rows, err := r.db.QueryContext(ctx, listReviewRefsSQL, t.Kind, t.ID)
	if err != nil {
		return domain.TargetInfo{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.TargetInfo{}, err
		}
		ti.ReviewIDs = append(ti.ReviewIDs, id)
	}
	return ti, rows.Err()
}

func (r *Repo) ListTargets(ctx context.Context, kind domain.TargetKind, limit int) ([]domain.TargetInfo, error) {
	rows, err := r.db.QueryContext(ctx, listTargetsSQL, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TargetInfo
	for rows.Next() {
		ti, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (r *Repo) ListTargetRefs(ctx context.Context) ([]domain.Target, error) {
	rows, err := r.db.QueryContext(ctx, listTargetRefsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Target
	for rows.Next() {
		var t domain.Target
		if err := rows.Scan(&t.Kind, &t.ID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) SetRatingCache(ctx context.Context, t domain.Target, avg float64, total int) error {
	return mustAffect(r.db.ExecContext(ctx, setRatingCacheSQL, avg, total, time.Now().UTC(), t.Kind, t.ID))
}

func (r *Repo) PushReviewRef(ctx context.Context, t domain.Target, reviewID string) error {
	_, err := r.db.ExecContext(ctx, pushReviewRefSQL, t.Kind, t.ID, reviewID)
	return mapErr(err)
}

func (r *Repo) PullReviewRef(ctx context.Context, t domain.Target, reviewID string) error {
	_, err := r.db.ExecContext(ctx, pullReviewRefSQL, t.Kind, t.ID, reviewID)
	return mapErr(err)
}

// ---- reviews ----

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) error {
	imgs, err := valJSON(rv.Images)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID, rv.AuthorID, rv.Target.Kind, rv.Target.ID,
		rv.Rating, rv.Comment, imgs, rv.Verified,
		rv.CreatedAt.UTC(), rv.UpdatedAt.UTC(),
	)
	return mapErr(err)
}

func (r *Repo) UpdateReview(ctx context.Context, rv domain.Review) error {
	imgs, err := valJSON(rv.Images)
	if err != nil {
		return err
	}
	return mustAffect(r.db.ExecContext(ctx, updateReviewSQL, rv.Rating, rv.Comment, imgs, rv.UpdatedAt.UTC(), rv.ID))
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	return mustAffect(r.db.ExecContext(ctx, deleteReviewSQL, id))
}

func scanReview(s scanner) (domain.Review, error) {
	var rv domain.Review
	var imagesJSON []byte
	if err := s.Scan(
		&rv.ID, &rv.AuthorID, &rv.Target.Kind, &rv.Target.ID,
		&rv.Rating, &rv.Comment, &imagesJSON, &rv.Verified,
		&rv.CreatedAt, &rv.UpdatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	if len(imagesJSON) > 0 {
		_ = json.Unmarshal(imagesJSON, &rv.Images)
	}
	return rv, nil
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if err != nil {
		return domain.Review{}, mapErr(err)
	}
	return rv, nil
}

func (r *Repo) queryReviews(ctx context.Context, q string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviews(ctx context.Context, t domain.Target, pg domain.PageQuery) (domain.ReviewsPage, error) {
	out, err := r.queryReviews(ctx, listReviewsSQL, t.Kind, t.ID, pg.Limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: out}, nil
}

func (r *Repo) ListAllReviews(ctx context.Context, t domain.Target) ([]domain.Review, error) {
	return r.queryReviews(ctx, listAllReviewsSQL, t.Kind, t.ID)
}

// ---- bookings ----

func (r *Repo) InsertBooking(ctx context.Context, b domain.Booking) error {
	snap, err := valJSON(b.Snapshot)
	if err != nil {
		return err
	}
	items, err := valJSON(b.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertBookingSQL,
		b.ID, b.UserID, b.Target.Kind, b.Target.ID,
		snap, items, b.Travelers, valTime(b.TravelDate),
		b.TotalAmount, b.Status, b.PaymentStatus,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	return mapErr(err)
}

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var snapJSON, itemsJSON []byte
	var travelDate sql.NullTime
	if err := s.Scan(
		&b.ID, &b.UserID, &b.Target.Kind, &b.Target.ID,
		&snapJSON, &itemsJSON, &b.Travelers, &travelDate,
		&b.TotalAmount, &b.Status, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	if len(snapJSON) > 0 {
		var snap domain.Snapshot
		if err := json.Unmarshal(snapJSON, &snap); err != nil {
			return domain.Booking{}, fmt.Errorf("decode snapshot of booking %s: %w", b.ID, err)
		}
		b.Snapshot = &snap
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &b.Items); err != nil {
			return domain.Booking{}, fmt.Errorf("decode items of booking %s: %w", b.ID, err)
		}
	}
	if travelDate.Valid {
		td := travelDate.Time
		b.TravelDate = &td
	}
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if err != nil {
		return domain.Booking{}, mapErr(err)
	}
	return b, nil
}

func (r *Repo) queryBookings(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.queryBookings(ctx, listBookingsByUserSQL, userID)
}

func (r *Repo) ListBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	return r.queryBookings(ctx, listBookingsSQL, limit)
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, id string, st domain.BookingStatus) error {
	return mustAffect(r.db.ExecContext(ctx, updateBookingStatusSQL, st, time.Now().UTC(), id))
}

func (r *Repo) UpdatePaymentStatus(ctx context.Context, id string, st domain.PaymentStatus) error {
	return mustAffect(r.db.ExecContext(ctx, updatePaymentStatusSQL, st, time.Now().UTC(), id))
}

func (r *Repo) DeleteBooking(ctx context.Context, id string) error {
	return mustAffect(r.db.ExecContext(ctx, deleteBookingSQL, id))
}
