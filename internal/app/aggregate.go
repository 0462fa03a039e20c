package app

import (
	"math"

	"travel_market/internal/domain"
)

// Aggregate computes count, mean and the 1..5 histogram of a review set.
// An empty set yields a zero average rather than an error.
func Aggregate(reviews []domain.Review) domain.RatingStats {
	st := domain.RatingStats{
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	var sum float64
	for _, r := range reviews {
		sum += float64(r.Rating)
		st.RatingDistribution[bucket(float64(r.Rating))]++
	}
	st.TotalReviews = len(reviews)
	if st.TotalReviews > 0 {
		st.AverageRating = sum / float64(st.TotalReviews)
	}
	return st
}

func bucket(rating float64) int {
	b := int(math.Round(rating))
	if b < domain.MinRating {
		return domain.MinRating
	}
	if b > domain.MaxRating {
		return domain.MaxRating
	}
	return b
}
