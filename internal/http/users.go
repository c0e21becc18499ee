package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Clark-Hu/gymblog/internal/auth"
	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

type profileRequest struct {
	DisplayName *string `json:"displayName"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// handleGetMe returns the caller's profile, creating it on first sight.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	user, err := s.repo.Users.Get(r.Context(), id.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		user, _, err = s.repo.Users.Ensure(r.Context(), id.UserID, id.Email, id.Name)
	}
	if err == nil {
		user, err = s.promoteConfiguredAdmin(r.Context(), user)
	}
	if err != nil {
		s.logger.Printf("load profile %s: %v", id.UserID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load profile")
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

// handlePutMe ensures the caller's profile exists. The body is optional and
// may override the display name carried by the token.
func (s *Server) handlePutMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req profileRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			s.respondDecodeError(w, err)
			return
		}
	}
	name := id.Name
	if req.DisplayName != nil {
		name = strings.TrimSpace(*req.DisplayName)
	}

	user, created, err := s.repo.Users.Ensure(r.Context(), id.UserID, id.Email, name)
	if err == nil {
		user, err = s.promoteConfiguredAdmin(r.Context(), user)
	}
	if err != nil {
		s.logger.Printf("ensure profile %s: %v", id.UserID, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save profile")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, toUserResponse(user))
}

// promoteConfiguredAdmin grants the admin role to accounts listed in
// ADMIN_USER_IDS. Other admins are promoted by an existing admin in SQL.
func (s *Server) promoteConfiguredAdmin(ctx context.Context, user domain.User) (domain.User, error) {
	if user.IsAdmin() || !slices.Contains(s.cfg.AdminUserIDs, user.ID) {
		return user, nil
	}
	if err := s.repo.Users.SetRole(ctx, user.ID, domain.RoleAdmin); err != nil {
		return user, err
	}
	s.logger.Printf("granted admin role to %s from ADMIN_USER_IDS", user.ID)
	user.Role = domain.RoleAdmin
	return user, nil
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsAdmin:     u.IsAdmin(),
		CreatedAt:   u.CreatedAt,
	}
}
