package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/gymblog/internal/auth"
	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/events"
	"github.com/Clark-Hu/gymblog/internal/rating"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

type postCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type postListResponse struct {
	Items      []postResponse `json:"items"`
	NextCursor *string        `json:"nextCursor,omitempty"`
}

type postResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Content     string                `json:"content"`
	ContentHTML string                `json:"contentHtml"`
	AuthorID    string                `json:"authorId"`
	Author      string                `json:"author"`
	AuthorName  string                `json:"authorName"`
	FileName    *string               `json:"fileName,omitempty"`
	FileURL     *string               `json:"fileUrl,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Rating      *domain.RatingSummary `json:"rating,omitempty"`
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filters, err := buildPostFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Posts.List(r.Context(), filters)
	if err != nil {
		s.logger.Printf("list posts error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list posts")
		return
	}

	items := make([]postResponse, 0, len(result.Items))
	for _, post := range result.Items {
		items = append(items, toPostResponse(post))
	}
	s.respondJSON(w, http.StatusOK, postListResponse{Items: items, NextCursor: result.NextCursor})
}

func buildPostFilters(query url.Values) (repository.PostListFilters, error) {
	var filters repository.PostListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("authorId")); val != "" {
		filters.AuthorID = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

// handleCreatePost accepts JSON, or multipart/form-data with an optional "file" part.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var (
		req        postCreateRequest
		attachment *domain.Attachment
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var rerr *requestError
		req, attachment, rerr = s.readMultipartPost(w, r)
		if rerr != nil {
			s.respondError(w, rerr.status, rerr.code, rerr.message)
			return
		}
	} else if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	title, content, valid := normalizePostBody(req)
	if !valid {
		s.removeUpload(r.Context(), attachment)
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title and content are required")
		return
	}

	post, err := s.repo.Posts.Create(r.Context(), repository.PostCreateParams{
		Title:       title,
		Content:     plainText(content),
		ContentHTML: content,
		AuthorID:    id.UserID,
		Author:      id.Email,
		AuthorName:  id.DisplayName(),
		Attachment:  attachment,
	})
	if err != nil {
		s.removeUpload(r.Context(), attachment)
		s.logger.Printf("create post error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create post")
		return
	}

	w.Header().Set("Location", "/posts/"+url.PathEscape(post.ID))
	s.respondJSON(w, http.StatusCreated, toPostResponse(post))
}

// requestError is a client-facing failure produced while reading a request.
type requestError struct {
	status  int
	code    string
	message string
}

func (s *Server) readMultipartPost(w http.ResponseWriter, r *http.Request) (postCreateRequest, *domain.Attachment, *requestError) {
	maxUpload := int64(s.cfg.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+maxRequestBody)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return postCreateRequest{}, nil, &requestError{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload too large"}
		}
		return postCreateRequest{}, nil, &requestError{http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse multipart body"}
	}

	req := postCreateRequest{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, &requestError{http.StatusBadRequest, "VALIDATION_ERROR", "Unable to read file part"}
	}
	defer file.Close()

	if s.uploads == nil {
		return req, nil, &requestError{http.StatusServiceUnavailable, "UPLOADS_DISABLED", "File uploads are not configured"}
	}
	att, err := s.uploads.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		s.logger.Printf("upload attachment error: %v", err)
		return req, nil, &requestError{http.StatusBadGateway, "UPLOAD_FAILED", "Failed to store attachment"}
	}
	return req, &att, nil
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	post, err := s.repo.Posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Printf("fetch post error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch post")
		return
	}

	resp := toPostResponse(post)
	doc, err := s.ratings.Get(r.Context(), postID)
	if err != nil {
		s.logger.Printf("fetch rating for post %s: %v", postID, err)
	} else {
		summary := rating.Summarize(doc, viewerID(r))
		resp.Rating = &summary
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleDeletePost removes a post with its comments, aggregate document and
// attachment. Only the author or an administrator may delete.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadOwnedPost(w, r, "delete")
	if !ok {
		return
	}
	postID := post.ID

	if err := s.repo.Posts.Delete(r.Context(), postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Printf("delete post error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete post")
		return
	}
	if err := s.ratings.Delete(r.Context(), postID); err != nil {
		s.logger.Printf("delete rating document for %s: %v", postID, err)
	}
	s.removeUpload(r.Context(), post.Attachment)
	if err := s.events.Publish(r.Context(), events.TypePostDeleted, postID, map[string]any{
		"postId":    postID,
		"deletedBy": viewerID(r),
	}); err != nil {
		s.logger.Printf("publish %s: %v", events.TypePostDeleted, err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUpdatePost rewrites the title and body of a post. Only the author or
// an administrator may edit.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadOwnedPost(w, r, "edit")
	if !ok {
		return
	}

	var req postCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	title, content, valid := normalizePostBody(req)
	if !valid {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title and content are required")
		return
	}

	updated, err := s.repo.Posts.Update(r.Context(), post.ID, repository.PostUpdateParams{
		Title:       title,
		Content:     plainText(content),
		ContentHTML: content,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Printf("update post error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update post")
		return
	}
	if err := s.events.Publish(r.Context(), events.TypePostUpdated, post.ID, map[string]any{
		"postId":    post.ID,
		"updatedBy": viewerID(r),
	}); err != nil {
		s.logger.Printf("publish %s: %v", events.TypePostUpdated, err)
	}

	s.respondJSON(w, http.StatusOK, toPostResponse(updated))
}

// loadOwnedPost resolves {id} and checks that the caller wrote the post or is
// an administrator. It writes the error response itself when it returns false.
func (s *Server) loadOwnedPost(w http.ResponseWriter, r *http.Request, action string) (domain.Post, bool) {
	postID, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return domain.Post{}, false
	}

	post, err := s.repo.Posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return domain.Post{}, false
		}
		s.logger.Printf("fetch post for %s error: %v", action, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action+" post")
		return domain.Post{}, false
	}

	if post.AuthorID != viewerID(r) {
		admin, err := s.isAdmin(r)
		if err != nil {
			s.logger.Printf("admin check failed: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action+" post")
			return domain.Post{}, false
		}
		if !admin {
			s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Only the author or an administrator can "+action+" this post")
			return domain.Post{}, false
		}
	}
	return post, true
}

// normalizePostBody trims the fields and reports whether both carry text.
// Markup without visible text counts as empty.
func normalizePostBody(req postCreateRequest) (string, string, bool) {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" || plainText(content) == "" {
		return title, content, false
	}
	return title, content, true
}

func (s *Server) removeUpload(ctx context.Context, att *domain.Attachment) {
	if att == nil || s.uploads == nil {
		return
	}
	if err := s.uploads.Remove(ctx, *att); err != nil {
		s.logger.Printf("remove attachment %s: %v", att.FileURL, err)
	}
}

func toPostResponse(post domain.Post) postResponse {
	resp := postResponse{
		ID:          post.ID,
		Title:       post.Title,
		Content:     post.Content,
		ContentHTML: post.ContentHTML,
		AuthorID:    post.AuthorID,
		Author:      post.Author,
		AuthorName:  post.AuthorName,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
	if post.Attachment != nil {
		name, fileURL := post.Attachment.FileName, post.Attachment.FileURL
		resp.FileName = &name
		resp.FileURL = &fileURL
	}
	return resp
}
