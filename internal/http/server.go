package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clark-Hu/gymblog/internal/attachments"
	"github.com/Clark-Hu/gymblog/internal/auth"
	"github.com/Clark-Hu/gymblog/internal/config"
	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/events"
	"github.com/Clark-Hu/gymblog/internal/metrics"
	"github.com/Clark-Hu/gymblog/internal/places"
	"github.com/Clark-Hu/gymblog/internal/rating"
	"github.com/Clark-Hu/gymblog/internal/realtime"
	"github.com/Clark-Hu/gymblog/internal/repository"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CommentFeed pushes the full comment list of a post to its subscribers.
type CommentFeed interface {
	realtime.Broadcaster[[]domain.Comment]
	Subscribe(key string, fn func([]domain.Comment)) func()
}

// Deps are the collaborators the handlers call into. Places, Uploads and
// Gatherer are optional.
type Deps struct {
	Health   HealthChecker
	Repo     *repository.Repository
	Ratings  *rating.Service
	Comments CommentFeed
	Verifier *auth.Verifier
	Places   places.Client
	Uploads  attachments.Uploader
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	health   HealthChecker
	repo     *repository.Repository
	ratings  *rating.Service
	comments CommentFeed
	verifier *auth.Verifier
	places   places.Client
	uploads  attachments.Uploader
	events   events.Publisher
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *log.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}
	if deps.Events == nil {
		deps.Events = events.NewLoggingPublisher(logger)
	}

	s := &Server{
		cfg:      cfg,
		health:   deps.Health,
		repo:     deps.Repo,
		ratings:  deps.Ratings,
		comments: deps.Comments,
		verifier: deps.Verifier,
		places:   deps.Places,
		uploads:  deps.Uploads,
		events:   deps.Events,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, e.g. for wrapping with tracing middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.With(s.requireAuth).Get("/me", s.handleGetMe)
		r.With(s.requireAuth).Put("/me", s.handlePutMe)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.With(s.requireAuth).Post("/", s.handleCreatePost)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPost)
				r.With(s.requireAuth).Put("/", s.handleUpdatePost)
				r.With(s.requireAuth).Delete("/", s.handleDeletePost)

				r.Get("/rating", s.handleGetRating)
				r.Get("/rating/stream", s.handleRatingStream)
				r.With(s.requireAuth).Put("/rating", s.handleSubmitRating)
				r.With(s.requireAuth).Post("/like", s.handleToggleLike)

				r.Get("/comments", s.handleListComments)
				r.With(s.requireAuth).Post("/comments", s.handleCreateComment)
				r.Get("/comments/stream", s.handleCommentStream)
			})
		})

		r.Route("/gyms", func(r chi.Router) {
			r.Get("/", s.handleListGyms)
			r.With(s.requireAdmin).Post("/", s.handleCreateGym)
			r.Get("/{id}", s.handleGetGym)
		})

		r.With(s.requireAdmin).Get("/admin/stats", s.handleAdminStats)
	})
}

// Start boots the HTTP server and blocks until ctx ends or the listener fails.
// wrap, when non-nil, decorates the router (cmd/server adds tracing).
func (s *Server) Start(ctx context.Context, wrap func(http.Handler) http.Handler) error {
	var handler http.Handler = s.router
	if wrap != nil {
		handler = wrap(handler)
	}
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health == nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "store not initialized")
		return
	}
	if err := s.health.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
