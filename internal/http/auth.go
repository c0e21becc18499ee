package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/gymblog/internal/auth"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

// authenticate attaches the caller's identity when a bearer token is present.
// EventSource clients cannot set headers, so stream routes may pass the token
// as access_token instead. An invalid token is rejected; no token is anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if token := r.URL.Query().Get("access_token"); token != "" {
				header = "Bearer " + token
			}
		}
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := s.verifier.ParseHeader(header)
		if err != nil {
			s.respondUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			s.respondUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin admits callers whose stored profile carries the admin role.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := s.isAdmin(r)
		if err != nil {
			s.logger.Printf("admin check failed: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify permissions")
			return
		}
		if !admin {
			s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (s *Server) isAdmin(r *http.Request) (bool, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return false, nil
	}
	user, err := s.repo.Users.Get(r.Context(), id.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// viewerID is the caller's user id, or empty for anonymous requests.
func viewerID(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}
