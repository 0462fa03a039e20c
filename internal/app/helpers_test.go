package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"travel_market/internal/app"
	"travel_market/internal/domain"
	"travel_market/internal/storage/memory"
)

// ---- fakes ----

// fakeCache round-trips values through JSON like the Redis adapter does.
type fakeCache struct {
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- fixture ----

type fixture struct {
	now      time.Time
	store    *memory.Store
	cache    *fakeCache
	guard    app.Guard
	queries  *app.QueryService
	reviews  *app.ReviewService
	bookings *app.BookingService
	targets  *app.TargetService
	dest     domain.Target
	pkg      domain.Target
}

var (
	userU = domain.Actor{ID: "user-u", Role: domain.RoleUser}
	userV = domain.Actor{ID: "user-v", Role: domain.RoleUser}
	admin = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func newFixture(t *testing.T, allowAdminOverride bool) *fixture {
	t.Helper()
	f := &fixture{
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		store: memory.New(),
		cache: newFakeCache(),
		dest:  domain.Target{Kind: domain.KindDestination, ID: "dest-1"},
		pkg:   domain.Target{Kind: domain.KindPackage, ID: "pkg-1"},
	}
	f.guard = app.Guard{Window: app.DefaultEditWindow, AllowAdminOverride: allowAdminOverride, Now: func() time.Time { return f.now }}
	f.queries = app.NewQueryService(f.store, f.store, f.cache, 10*time.Minute, f.guard)
	f.reviews = app.NewReviewService(f.store, f.store, f.store, f.cache, f.guard)
	f.bookings = app.NewBookingService(f.store, f.store, f.guard)
	f.targets = app.NewTargetService(f.store, f.guard)

	ctx := context.Background()
	if err := f.store.InsertTarget(ctx, domain.TargetInfo{ID: "dest-1", Kind: domain.KindDestination, Name: "Lisbon"}); err != nil {
		t.Fatalf("seed destination: %v", err)
	}
	if err := f.store.InsertTarget(ctx, domain.TargetInfo{ID: "pkg-1", Kind: domain.KindPackage, Name: "Alps Week", Price: 100, Duration: "7 days"}); err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func ptr[T any](v T) *T { return &v }
