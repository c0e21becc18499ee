package rating

import (
	"math"
	"testing"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestApplyRating_FirstRatingCreatesRecord(t *testing.T) {
	doc := ApplyRating(domain.PostRating{PostID: "p1"}, "user1", 5, epoch)

	if doc.TotalRatings != 1 {
		t.Fatalf("TotalRatings = %d, want 1", doc.TotalRatings)
	}
	if doc.AverageRating != 5.0 {
		t.Fatalf("AverageRating = %v, want 5.0", doc.AverageRating)
	}
	if len(doc.Likes) != 0 || doc.Likes == nil {
		t.Fatalf("Likes = %#v, want empty non-nil slice", doc.Likes)
	}
	if !doc.LastUpdated.Equal(epoch) {
		t.Fatalf("LastUpdated = %v, want %v", doc.LastUpdated, epoch)
	}
}

func TestApplyRating_TwoUsers(t *testing.T) {
	doc := ApplyRating(domain.PostRating{}, "user1", 5, epoch)
	doc = ApplyRating(doc, "user2", 4, epoch)

	if doc.TotalRatings != 2 {
		t.Fatalf("TotalRatings = %d, want 2", doc.TotalRatings)
	}
	if doc.AverageRating != 4.5 {
		t.Fatalf("AverageRating = %v, want 4.5", doc.AverageRating)
	}
}

func TestApplyRating_ResubmitReplacesInPlace(t *testing.T) {
	doc := ApplyRating(domain.PostRating{}, "user1", 5, epoch)
	doc = ApplyRating(doc, "user2", 3, epoch)
	doc = ApplyRating(doc, "user1", 1, epoch)

	if doc.TotalRatings != 2 {
		t.Fatalf("TotalRatings = %d, want 2", doc.TotalRatings)
	}
	if doc.Ratings[0].UserID != "user1" || doc.Ratings[0].Rating != 1 {
		t.Fatalf("first record = %+v, want user1 rated 1", doc.Ratings[0])
	}
	if doc.AverageRating != 2.0 {
		t.Fatalf("AverageRating = %v, want 2.0", doc.AverageRating)
	}
}

func TestApplyRating_DoesNotMutateInput(t *testing.T) {
	original := ApplyRating(domain.PostRating{}, "user1", 2, epoch)
	_ = ApplyRating(original, "user1", 5, epoch)

	if original.Ratings[0].Rating != 2 {
		t.Fatalf("input mutated: %+v", original.Ratings)
	}
}

func TestApplyRating_DistinctUsersProperty(t *testing.T) {
	submissions := []struct {
		user  string
		stars int
	}{
		{"a", 1}, {"b", 2}, {"c", 5}, {"a", 4}, {"d", 3}, {"b", 5}, {"e", 2},
	}

	doc := domain.PostRating{}
	latest := map[string]int{}
	for _, s := range submissions {
		doc = ApplyRating(doc, s.user, s.stars, epoch)
		latest[s.user] = s.stars
	}

	if doc.TotalRatings != len(latest) {
		t.Fatalf("TotalRatings = %d, want %d", doc.TotalRatings, len(latest))
	}
	sum := 0
	for _, v := range latest {
		sum += v
	}
	want := math.Round(float64(sum)/float64(len(latest))*10) / 10
	if doc.AverageRating != want {
		t.Fatalf("AverageRating = %v, want %v", doc.AverageRating, want)
	}
}

func TestApplyLikeToggle_LikeThenUnlike(t *testing.T) {
	start := domain.PostRating{Likes: []string{"user1", "user2"}}

	liked, isLiked := ApplyLikeToggle(start, "user3", epoch)
	if !isLiked {
		t.Fatalf("expected like")
	}
	if len(liked.Likes) != 3 {
		t.Fatalf("Likes = %v, want 3 entries", liked.Likes)
	}

	unliked, isLiked := ApplyLikeToggle(liked, "user3", epoch.Add(time.Second))
	if isLiked {
		t.Fatalf("expected unlike")
	}
	if len(unliked.Likes) != 2 || unliked.Likes[0] != "user1" || unliked.Likes[1] != "user2" {
		t.Fatalf("Likes = %v, want [user1 user2]", unliked.Likes)
	}
	if !unliked.LastUpdated.After(liked.LastUpdated) {
		t.Fatalf("LastUpdated did not advance")
	}
}

func TestApplyLikeToggle_LeavesRatingsAlone(t *testing.T) {
	doc := ApplyRating(domain.PostRating{}, "user1", 4, epoch)
	doc, _ = ApplyLikeToggle(doc, "user1", epoch)

	if doc.TotalRatings != 1 || doc.AverageRating != 4 {
		t.Fatalf("ratings changed by like toggle: %+v", doc)
	}
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []int{3}, 3},
		{"thirds", []int{5, 4, 4}, 4.3},
		{"round-up", []int{1, 2, 2, 2}, 1.8},
		{"half", []int{4, 5}, 4.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]domain.RatingRecord, 0, len(tt.ratings))
			for i, r := range tt.ratings {
				records = append(records, domain.RatingRecord{UserID: string(rune('a' + i)), Rating: r})
			}
			if got := Average(records); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Average(%v) = %v, want %v", tt.ratings, got, tt.want)
			}
		})
	}
}

func TestValidStars(t *testing.T) {
	for _, v := range []int{1, 2, 3, 4, 5} {
		if !ValidStars(v) {
			t.Fatalf("ValidStars(%d) = false", v)
		}
	}
	for _, v := range []int{-1, 0, 6, 10} {
		if ValidStars(v) {
			t.Fatalf("ValidStars(%d) = true", v)
		}
	}
}

func TestSummarize(t *testing.T) {
	doc := domain.PostRating{
		Ratings:       []domain.RatingRecord{{UserID: "user1", Rating: 5}, {UserID: "user2", Rating: 4}},
		Likes:         []string{"user1", "user2"},
		AverageRating: 4.5,
		TotalRatings:  2,
	}

	anon := Summarize(doc, "")
	if anon.IsLikedByCurrentUser || anon.UserRating != nil {
		t.Fatalf("anonymous summary leaked viewer state: %+v", anon)
	}
	if anon.LikeCount != 2 || anon.TotalRatings != 2 || anon.AverageRating != 4.5 {
		t.Fatalf("unexpected summary: %+v", anon)
	}

	viewer := Summarize(doc, "user2")
	if !viewer.IsLikedByCurrentUser {
		t.Fatalf("expected user2 to like the post")
	}
	if viewer.UserRating == nil || *viewer.UserRating != 4 {
		t.Fatalf("UserRating = %v, want 4", viewer.UserRating)
	}

	other := Summarize(doc, "user3")
	if other.IsLikedByCurrentUser {
		t.Fatalf("user3 should not like the post")
	}
}

func TestSummarize_DerivesFromRecords(t *testing.T) {
	doc := domain.PostRating{
		Ratings:       []domain.RatingRecord{{UserID: "a", Rating: 5}, {UserID: "b", Rating: 3}, {UserID: "c", Rating: 3}},
		AverageRating: 1.0,
		TotalRatings:  7,
	}

	got := Summarize(doc, "")
	if got.TotalRatings != 3 || got.AverageRating != 3.7 {
		t.Fatalf("summary = %+v, want 3 ratings averaging 3.7", got)
	}

	empty := Summarize(domain.PostRating{AverageRating: 4, TotalRatings: 2}, "")
	if empty.TotalRatings != 0 || empty.AverageRating != 0 {
		t.Fatalf("summary of record-less document = %+v", empty)
	}
}
