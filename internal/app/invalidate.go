package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"travel_market/internal/domain"
)

// Read models of a target are keyed under its current generation. A write
// moves the generation, which orphans every page, analytics and target entry
// cached before it, whatever limit or sort produced them. Orphans expire by TTL.

func genKey(t domain.Target) string { return fmt.Sprintf("gen:%s:%s", t.Kind, t.ID) }

// generation returns t's current cache generation, starting one on a miss.
// ok is false when the cache cannot be used for this read.
func generation(ctx context.Context, c domain.Cache, t domain.Target) (string, bool) {
	if c == nil {
		return "", false
	}
	var gen string
	hit, err := c.Get(ctx, genKey(t), &gen)
	if err != nil {
		log.Warn().Err(err).Str("key", genKey(t)).Msg("cache generation read failed")
		return "", false
	}
	if hit && gen != "" {
		return gen, true
	}
	gen = uuid.NewString()
	if err := c.Set(ctx, genKey(t), gen, 0); err != nil {
		log.Warn().Err(err).Str("key", genKey(t)).Msg("cache generation write failed")
		return "", false
	}
	return gen, true
}

// invalidateTarget drops every cached read model derived from t's reviews.
func invalidateTarget(ctx context.Context, c domain.Cache, t domain.Target) {
	if c == nil {
		return
	}
	err := c.Set(ctx, genKey(t), uuid.NewString(), 0)
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("key", genKey(t)).Msg("cache generation bump failed")
	// without the counter the next read starts a fresh generation
	if err := c.Del(ctx, genKey(t)); err != nil {
		log.Warn().Err(err).Str("key", genKey(t)).Msg("cache invalidation failed")
	}
}
