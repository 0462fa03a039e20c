package domain

import (
	"fmt"
	"strings"
	"time"
)

type TargetKind string

const (
	KindDestination TargetKind = "destination"
	KindPackage     TargetKind = "package"
)

// ParseTargetKind accepts the singular and plural path forms ("package", "packages").
func ParseTargetKind(s string) (TargetKind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case string(KindDestination):
		return KindDestination, nil
	case string(KindPackage):
		return KindPackage, nil
	}
	return "", fmt.Errorf("%w: unknown target kind %q", ErrValidation, s)
}

// Target is what a review or booking points at.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func (t Target) String() string { return string(t.Kind) + ":" + t.ID }

func (t Target) Validate() error {
	if t.Kind != KindDestination && t.Kind != KindPackage {
		return fmt.Errorf("%w: target kind must be destination or package", ErrValidation)
	}
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: target id is required", ErrValidation)
	}
	return nil
}

// TargetInfo is a destination or package document. AverageRating and
// TotalReviews are a denormalized cache; ReviewAnalytics is authoritative.
type TargetInfo struct {
	ID            string     `json:"id"`
	Kind          TargetKind `json:"kind"`
	Name          string     `json:"name"`
	Location      string     `json:"location,omitempty"`
	Category      string     `json:"category,omitempty"`
	Description   string     `json:"description,omitempty"`
	Images        []string   `json:"images,omitempty"`
	Price         float64    `json:"price,omitempty"`
	Duration      string     `json:"duration,omitempty"`
	AverageRating float64    `json:"averageRating"`
	TotalReviews  int        `json:"totalReviews"`
	ReviewIDs     []string   `json:"reviewIds,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (ti TargetInfo) Ref() Target { return Target{Kind: ti.Kind, ID: ti.ID} }
