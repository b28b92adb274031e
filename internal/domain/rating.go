package domain

import "math"

// Aggregate is the denormalized rating of a company.
type Aggregate struct {
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// ComputeAggregate averages ratings rounded to one decimal. An empty slice
// yields the zero aggregate.
func ComputeAggregate(ratings []int) Aggregate {
	if len(ratings) == 0 {
		return Aggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Aggregate{
		Rating:       RoundRating(float64(sum) / float64(len(ratings))),
		ReviewsCount: len(ratings),
	}
}

// RoundRating rounds to one decimal place, halves away from zero.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
