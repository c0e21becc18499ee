package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/Clark-Hu/gymblog/internal/auth"
	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/events"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

const maxCommentLength = 5000

type commentCreateRequest struct {
	Content string `json:"content"`
}

type commentListResponse struct {
	Items []domain.Comment `json:"items"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.requirePost(w, r)
	if !ok {
		return
	}

	comments, err := s.repo.Comments.ListByPost(r.Context(), postID)
	if err != nil {
		s.logger.Printf("list comments error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list comments")
		return
	}
	s.respondJSON(w, http.StatusOK, commentListResponse{Items: comments})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	id, _ := auth.FromContext(r.Context())

	var req commentCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required")
		return
	}
	if len([]rune(content)) > maxCommentLength {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is too long")
		return
	}

	comment, err := s.repo.Comments.Create(r.Context(), repository.CommentCreateParams{
		PostID:     postID,
		Content:    content,
		AuthorID:   id.UserID,
		Author:     id.Email,
		AuthorName: id.DisplayName(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Printf("create comment error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add comment")
		return
	}
	s.metrics.CommentAdded()

	s.broadcastComments(r.Context(), postID)
	if err := s.events.Publish(r.Context(), events.TypeCommentAdded, postID, comment); err != nil {
		s.logger.Printf("publish %s: %v", events.TypeCommentAdded, err)
	}

	s.respondJSON(w, http.StatusCreated, comment)
}

// broadcastComments pushes the post's full comment list to stream subscribers.
func (s *Server) broadcastComments(ctx context.Context, postID string) {
	if s.comments == nil {
		return
	}
	comments, err := s.repo.Comments.ListByPost(ctx, postID)
	if err != nil {
		s.logger.Printf("reload comments for %s: %v", postID, err)
		return
	}
	if err := s.comments.Broadcast(ctx, postID, comments); err != nil {
		s.logger.Printf("broadcast comments for %s: %v", postID, err)
	}
}

// handleCommentStream pushes the comment list of a post on every addition.
func (s *Server) handleCommentStream(w http.ResponseWriter, r *http.Request) {
	postID, ok := s.requirePost(w, r)
	if !ok {
		return
	}
	if s.comments == nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Comment streams are not configured")
		return
	}

	src := newLatest[[]domain.Comment]()
	// Lists only grow while the post exists, so a shorter list than one
	// already delivered is a late broadcast and is dropped.
	var (
		mu   sync.Mutex
		seen = -1
	)
	deliver := func(list []domain.Comment) {
		mu.Lock()
		defer mu.Unlock()
		if len(list) < seen {
			return
		}
		seen = len(list)
		src.set(list)
	}

	unsubscribe := s.comments.Subscribe(postID, deliver)
	defer unsubscribe()

	initial, err := s.repo.Comments.ListByPost(r.Context(), postID)
	if err != nil {
		s.logger.Printf("list comments for stream %s: %v", postID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to subscribe")
		return
	}
	deliver(initial)

	err = serveEvents(w, r, "comments", src, func(list []domain.Comment) any {
		return commentListResponse{Items: list}
	})
	if err != nil {
		s.logger.Printf("comment stream %s: %v", postID, err)
	}
}
