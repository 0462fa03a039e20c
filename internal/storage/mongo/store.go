// Package mongo stores targets, reviews and bookings in MongoDB. Review
// back-references are embedded in the target document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"travel_market/internal/domain"
)

type Store struct {
	client   *mongodrv.Client
	targets  *mongodrv.Collection
	reviews  *mongodrv.Collection
	bookings *mongodrv.Collection
}

var _ domain.Store = (*Store)(nil)

// Connect dials uri, pings the primary and ensures indexes on dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongodrv.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := New(client, client.Database(dbName))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func New(client *mongodrv.Client, db *mongodrv.Database) *Store {
	return &Store{
		client:   client,
		targets:  db.Collection("targets"),
		reviews:  db.Collection("reviews"),
		bookings: db.Collection("bookings"),
	}
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndexes is idempotent. The unique review index is what rejects a
// second review by the same author on the same target.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.reviews.Indexes().CreateMany(ctx, []mongodrv.IndexModel{
		{
			Keys:    bson.D{{Key: "authorId", Value: 1}, {Key: "targetKind", Value: 1}, {Key: "targetId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_reviews_author_target"),
		},
		{
			Keys:    bson.D{{Key: "targetKind", Value: 1}, {Key: "targetId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_reviews_target_created"),
		},
	}); err != nil {
		return fmt.Errorf("reviews indexes: %w", err)
	}
	if _, err := s.targets.Indexes().CreateOne(ctx, mongodrv.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetName("idx_targets_kind_name"),
	}); err != nil {
		return fmt.Errorf("targets indexes: %w", err)
	}
	if _, err := s.bookings.Indexes().CreateOne(ctx, mongodrv.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_bookings_user_created"),
	}); err != nil {
		return fmt.Errorf("bookings indexes: %w", err)
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongodrv.ErrNoDocuments):
		return domain.ErrNotFound
	case mongodrv.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func matched(res *mongodrv.UpdateResult, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func deleted(res *mongodrv.DeleteResult, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// decodeAll drains cur into docs and converts each with conv.
func decodeAll[D any, T any](ctx context.Context, cur *mongodrv.Cursor, conv func(D) T) ([]T, error) {
	defer cur.Close(ctx)
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, conv(d))
	}
	return out, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// ---- targets ----

func (s *Store) InsertTarget(ctx context.Context, ti domain.TargetInfo) error {
	_, err := s.targets.InsertOne(ctx, toTargetDoc(ti))
	return mapErr(err)
}

func (s *Store) GetTarget(ctx context.Context, t domain.Target) (domain.TargetInfo, error) {
	var d targetDoc
	if err := s.targets.FindOne(ctx, bson.M{"_id": targetKey(t)}).Decode(&d); err != nil {
		return domain.TargetInfo{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (s *Store) ListTargets(ctx context.Context, kind domain.TargetKind, limit int) ([]domain.TargetInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.targets.Find(ctx, bson.M{"kind": string(kind)}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur, targetDoc.toDomain)
}

func (s *Store) ListTargetRefs(ctx context.Context) ([]domain.Target, error) {
	opts := options.Find().
		SetProjection(bson.M{"kind": 1, "targetId": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.targets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur, func(d targetDoc) domain.Target {
		return domain.Target{Kind: domain.TargetKind(d.Kind), ID: d.ID}
	})
}

func (s *Store) SetRatingCache(ctx context.Context, t domain.Target, avg float64, total int) error {
	return matched(s.targets.UpdateOne(ctx, bson.M{"_id": targetKey(t)}, bson.M{
		"$set": bson.M{"averageRating": avg, "totalReviews": total, "updatedAt": time.Now().UTC()},
	}))
}

func (s *Store) PushReviewRef(ctx context.Context, t domain.Target, reviewID string) error {
	return matched(s.targets.UpdateOne(ctx, bson.M{"_id": targetKey(t)}, bson.M{
		"$addToSet": bson.M{"reviewIds": reviewID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}))
}

func (s *Store) PullReviewRef(ctx context.Context, t domain.Target, reviewID string) error {
	return matched(s.targets.UpdateOne(ctx, bson.M{"_id": targetKey(t)}, bson.M{
		"$pull": bson.M{"reviewIds": reviewID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}))
}

// ---- reviews ----

func (s *Store) InsertReview(ctx context.Context, r domain.Review) error {
	_, err := s.reviews.InsertOne(ctx, toReviewDoc(r))
	return mapErr(err)
}

// UpdateReview rewrites the mutable fields only; createdAt is never touched.
func (s *Store) UpdateReview(ctx context.Context, r domain.Review) error {
	return matched(s.reviews.UpdateOne(ctx, bson.M{"_id": r.ID}, bson.M{
		"$set": bson.M{"rating": r.Rating, "comment": r.Comment, "images": r.Images, "updatedAt": r.UpdatedAt.UTC()},
	}))
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return deleted(s.reviews.DeleteOne(ctx, bson.M{"_id": id}))
}

func (s *Store) GetReview(ctx context.Context, id string) (domain.Review, error) {
	var d reviewDoc
	if err := s.reviews.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return domain.Review{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func targetFilter(t domain.Target) bson.M {
	return bson.M{"targetKind": string(t.Kind), "targetId": t.ID}
}

func (s *Store) ListReviews(ctx context.Context, t domain.Target, pg domain.PageQuery) (domain.ReviewsPage, error) {
	opts := options.Find().SetSort(newestFirst)
	if pg.Limit > 0 {
		opts.SetLimit(int64(pg.Limit))
	}
	cur, err := s.reviews.Find(ctx, targetFilter(t), opts)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	items, err := decodeAll(ctx, cur, reviewDoc.toDomain)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items}, nil
}

func (s *Store) ListAllReviews(ctx context.Context, t domain.Target) ([]domain.Review, error) {
	cur, err := s.reviews.Find(ctx, targetFilter(t), options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur, reviewDoc.toDomain)
}

// ---- bookings ----

func (s *Store) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := s.bookings.InsertOne(ctx, toBookingDoc(b))
	return mapErr(err)
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	var d bookingDoc
	if err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return domain.Booking{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	cur, err := s.bookings.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur, bookingDoc.toDomain)
}

func (s *Store) ListBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.bookings.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur, bookingDoc.toDomain)
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, st domain.BookingStatus) error {
	return matched(s.bookings.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": string(st), "updatedAt": time.Now().UTC()},
	}))
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, st domain.PaymentStatus) error {
	return matched(s.bookings.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"paymentStatus": string(st), "updatedAt": time.Now().UTC()},
	}))
}

func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	return deleted(s.bookings.DeleteOne(ctx, bson.M{"_id": id}))
}
