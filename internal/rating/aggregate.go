package rating

import (
	"math"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

const (
	MinStars = 1
	MaxStars = 5
)

// ValidStars reports whether stars is an accepted rating value.
func ValidStars(stars int) bool {
	return stars >= MinStars && stars <= MaxStars
}

// ApplyRating returns a copy of doc with userID's rating set to stars.
// An existing record is replaced in place, otherwise a new one is appended.
func ApplyRating(doc domain.PostRating, userID string, stars int, now time.Time) domain.PostRating {
	out := normalize(doc)

	replaced := false
	for i := range out.Ratings {
		if out.Ratings[i].UserID == userID {
			out.Ratings[i].Rating = stars
			replaced = true
			break
		}
	}
	if !replaced {
		out.Ratings = append(out.Ratings, domain.RatingRecord{UserID: userID, Rating: stars})
	}

	out.TotalRatings = len(out.Ratings)
	out.AverageRating = Average(out.Ratings)
	out.LastUpdated = now
	return out
}

// ApplyLikeToggle flips userID's membership in the like set. The returned bool
// is true when the user now likes the post.
func ApplyLikeToggle(doc domain.PostRating, userID string, now time.Time) (domain.PostRating, bool) {
	out := normalize(doc)

	liked := true
	for i, id := range out.Likes {
		if id == userID {
			out.Likes = append(out.Likes[:i], out.Likes[i+1:]...)
			liked = false
			break
		}
	}
	if liked {
		out.Likes = append(out.Likes, userID)
	}

	out.LastUpdated = now
	return out, liked
}

// Average is the mean of the records rounded to one decimal, or 0 when empty.
func Average(records []domain.RatingRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum int
	for _, r := range records {
		sum += r.Rating
	}
	return RoundToOneDecimal(float64(sum) / float64(len(records)))
}

// RoundToOneDecimal rounds half away from zero at the first decimal place.
func RoundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10.0
}

// Summarize derives the display values of doc for viewerID, which may be empty.
// Average and count come from the records, not the stored fields, so a
// document written elsewhere with stale totals still displays correctly.
func Summarize(doc domain.PostRating, viewerID string) domain.RatingSummary {
	summary := domain.RatingSummary{
		AverageRating: Average(doc.Ratings),
		TotalRatings:  len(doc.Ratings),
		LikeCount:     len(doc.Likes),
	}
	if viewerID == "" {
		return summary
	}
	for _, id := range doc.Likes {
		if id == viewerID {
			summary.IsLikedByCurrentUser = true
			break
		}
	}
	for _, r := range doc.Ratings {
		if r.UserID == viewerID {
			stars := r.Rating
			summary.UserRating = &stars
			break
		}
	}
	return summary
}

func normalize(doc domain.PostRating) domain.PostRating {
	out := doc.Clone()
	if out.Ratings == nil {
		out.Ratings = []domain.RatingRecord{}
	}
	if out.Likes == nil {
		out.Likes = []string{}
	}
	return out
}
