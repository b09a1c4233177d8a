package review

import (
	"errors"
	"math"

	"github.com/safar/go-storefront/internal/models"
)

const (
	MinRating = 1
	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Stars   int     `json:"stars"`
}

// Summarize averages the ratings. Stars is the average rounded half up;
// a product without reviews has zero stars.
func Summarize(reviews []models.Review) Summary {
	if len(reviews) == 0 {
		return Summary{}
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))

	return Summary{
		Count:   len(reviews),
		Average: math.Round(avg*100) / 100,
		Stars:   int(math.Floor(avg + 0.5)),
	}
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}
