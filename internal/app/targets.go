package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"travel_market/internal/domain"
)

type TargetService struct {
	targets domain.TargetRepository
	guard   Guard
	newID   func() string
}

func NewTargetService(t domain.TargetRepository, g Guard) *TargetService {
	return &TargetService{targets: t, guard: g, newID: uuid.NewString}
}

// CreateTarget adds a destination or package to the catalogue. Admin only.
func (s *TargetService) CreateTarget(ctx context.Context, actor domain.Actor, ti domain.TargetInfo) (domain.TargetInfo, error) {
	if err := requireActor(actor.ID); err != nil {
		return domain.TargetInfo{}, err
	}
	if !actor.IsAdmin() {
		return domain.TargetInfo{}, fmt.Errorf("%w: only administrators can manage the catalogue", domain.ErrForbidden)
	}
	if ti.Kind != domain.KindDestination && ti.Kind != domain.KindPackage {
		return domain.TargetInfo{}, fmt.Errorf("%w: target kind must be destination or package", domain.ErrValidation)
	}
	ti.Name = strings.TrimSpace(ti.Name)
	if ti.Name == "" {
		return domain.TargetInfo{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if ti.Price < 0 {
		return domain.TargetInfo{}, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	now := s.guard.now().UTC()
	ti.ID = s.newID()
	ti.AverageRating, ti.TotalReviews, ti.ReviewIDs = 0, 0, nil
	ti.CreatedAt, ti.UpdatedAt = now, now
	if err := s.targets.InsertTarget(ctx, ti); err != nil {
		return domain.TargetInfo{}, err
	}
	return ti, nil
}
