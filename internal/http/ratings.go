package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/rating"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

type ratingRequest struct {
	Rating int `json:"rating"`
}

type ratingResponse struct {
	PostID string `json:"postId"`
	domain.RatingSummary
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

type likeResponse struct {
	ratingResponse
	Liked bool `json:"liked"`
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.requirePost(w, r)
	if !ok {
		return
	}

	doc, err := s.ratings.Get(r.Context(), postID)
	if err != nil {
		s.logger.Printf("fetch rating error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch rating")
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(doc, viewerID(r)))
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.requirePost(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	doc, err := s.ratings.SubmitRating(r.Context(), postID, viewerID(r), req.Rating)
	if err != nil {
		s.respondRatingError(w, err, "Failed to process rating")
		return
	}
	if s.dropOrphanedRating(r.Context(), postID) {
		s.respondNotFound(w)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(doc, viewerID(r)))
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.requirePost(w, r)
	if !ok {
		return
	}

	doc, liked, err := s.ratings.ToggleLike(r.Context(), postID, viewerID(r))
	if err != nil {
		s.respondRatingError(w, err, "Failed to toggle like")
		return
	}
	if s.dropOrphanedRating(r.Context(), postID) {
		s.respondNotFound(w)
		return
	}
	s.respondJSON(w, http.StatusOK, likeResponse{ratingResponse: toRatingResponse(doc, viewerID(r)), Liked: liked})
}

// handleRatingStream pushes the rating summary of a post as it changes.
func (s *Server) handleRatingStream(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.requirePost(w, r)
	if !ok {
		return
	}

	src := newLatest[domain.PostRating]()
	unsubscribe, err := s.ratings.Subscribe(r.Context(), postID, src.set)
	if err != nil {
		s.logger.Printf("subscribe rating %s: %v", postID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to subscribe")
		return
	}
	defer unsubscribe()

	viewer := viewerID(r)
	err = serveEvents(w, r, "rating", src, func(doc domain.PostRating) any {
		return toRatingResponse(doc, viewer)
	})
	if err != nil {
		s.logger.Printf("rating stream %s: %v", postID, err)
	}
}

func (s *Server) respondRatingError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, rating.ErrUnauthenticated):
		s.respondUnauthorized(w)
	case errors.Is(err, rating.ErrInvalidRating):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be an integer between 1 and 5")
	case errors.Is(err, rating.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", "Rating changed concurrently, please retry")
	default:
		s.logger.Printf("rating write error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
	}
}

// requirePost resolves the {id} parameter to an existing post, writing the
// error response itself when it cannot.
func (s *Server) requirePost(w http.ResponseWriter, r *http.Request) (string, bool) {
	postID, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return "", false
	}
	if _, err := s.repo.Posts.GetByID(r.Context(), postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return "", false
		}
		s.logger.Printf("fetch post %s: %v", postID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch post")
		return "", false
	}
	return postID, true
}

// dropOrphanedRating deletes the aggregate document of postID when the post
// was removed while the write was in flight. post_ratings has no foreign key
// to posts, so this runs after every write. It reports whether it dropped one.
func (s *Server) dropOrphanedRating(ctx context.Context, postID string) bool {
	_, err := s.repo.Posts.GetByID(ctx, postID)
	if err == nil {
		return false
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Printf("recheck post %s after rating write: %v", postID, err)
		return false
	}
	if err := s.ratings.Delete(ctx, postID); err != nil {
		s.logger.Printf("drop orphaned rating document %s: %v", postID, err)
	}
	return true
}

func toRatingResponse(doc domain.PostRating, viewer string) ratingResponse {
	resp := ratingResponse{
		PostID:        doc.PostID,
		RatingSummary: rating.Summarize(doc, viewer),
	}
	if doc.Exists() {
		updated := doc.LastUpdated
		resp.LastUpdated = &updated
	}
	return resp
}
