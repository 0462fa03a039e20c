package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Target    Target    `json:"target"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Images    []string  `json:"images,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ValidateRating(r int) error {
	if r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	}
	return nil
}

func ValidateComment(c string) error {
	if strings.TrimSpace(c) == "" {
		return fmt.Errorf("%w: comment is required", ErrValidation)
	}
	return nil
}

// RatingStats is the aggregate over a target's live review set.
type RatingStats struct {
	TotalReviews       int         `json:"totalReviews"`
	AverageRating      float64     `json:"averageRating"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

type ReviewAnalytics struct {
	Target Target `json:"target"`
	RatingStats
	RecentReviews []Review `json:"recentReviews"`
}

// ReviewView decorates a review with display-only edit window information.
type ReviewView struct {
	Review
	TimeRemaining string `json:"timeRemaining"`
}

type PageQuery struct {
	Limit  int
	Cursor *string
	Sort   string
}

type ReviewsPage struct {
	Items      []Review `json:"items"`
	NextCursor *string  `json:"nextCursor,omitempty"`
}
