package domain

import "time"

// RatingRecord is a single user's star rating for a post.
type RatingRecord struct {
	UserID string `json:"userId" bson:"userId"`
	Rating int    `json:"rating" bson:"rating"`
}

// PostRating is the per-post aggregate document holding every rating and like.
// Version is zero until the document has been persisted for the first time.
type PostRating struct {
	PostID        string         `json:"postId" bson:"_id"`
	Ratings       []RatingRecord `json:"ratings" bson:"ratings"`
	Likes         []string       `json:"likes" bson:"likes"`
	AverageRating float64        `json:"averageRating" bson:"averageRating"`
	TotalRatings  int            `json:"totalRatings" bson:"totalRatings"`
	LastUpdated   time.Time      `json:"lastUpdated" bson:"lastUpdated"`
	Version       int64          `json:"version" bson:"version"`
}

// Exists reports whether the document has ever been written.
func (p PostRating) Exists() bool {
	return p.Version > 0
}

// Clone returns a deep copy so callers can mutate slices freely.
func (p PostRating) Clone() PostRating {
	out := p
	out.Ratings = append([]RatingRecord(nil), p.Ratings...)
	out.Likes = append([]string(nil), p.Likes...)
	return out
}

// RatingSummary holds the values displayed next to a post.
type RatingSummary struct {
	AverageRating        float64 `json:"averageRating"`
	TotalRatings         int     `json:"totalRatings"`
	LikeCount            int     `json:"likeCount"`
	IsLikedByCurrentUser bool    `json:"isLikedByCurrentUser"`
	UserRating           *int    `json:"userRating,omitempty"`
}
