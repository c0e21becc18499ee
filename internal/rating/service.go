package rating

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/events"
	"github.com/Clark-Hu/gymblog/internal/metrics"
	"github.com/Clark-Hu/gymblog/internal/realtime"
)

const defaultMaxAttempts = 5

// Subscriptions registers observers of a key. *realtime.Hub satisfies it.
type Subscriptions interface {
	Subscribe(key string, fn func(domain.PostRating)) func()
}

// Options tunes the service. Zero values fall back to sensible defaults.
type Options struct {
	MaxAttempts int
	Clock       func() time.Time
	Events      events.Publisher
	Metrics     *metrics.Metrics
	Logger      *log.Logger
}

// Service owns the per-post aggregate documents. Every mutation is a
// read-modify-write guarded by the document version, retried on conflict.
type Service struct {
	store       Store
	broadcaster realtime.Broadcaster[domain.PostRating]
	subs        Subscriptions
	opts        Options
}

// NewService wires the aggregator to its store and push channel.
func NewService(store Store, broadcaster realtime.Broadcaster[domain.PostRating], subs Subscriptions, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Service{store: store, broadcaster: broadcaster, subs: subs, opts: opts}
}

// SubmitRating records stars from userID for postID, creating the document on
// first use, and returns the updated document.
func (s *Service) SubmitRating(ctx context.Context, postID, userID string, stars int) (domain.PostRating, error) {
	if userID == "" {
		s.opts.Metrics.RatingSubmitted("unauthenticated")
		return domain.PostRating{}, ErrUnauthenticated
	}
	if !ValidStars(stars) {
		s.opts.Metrics.RatingSubmitted("invalid")
		return domain.PostRating{}, ErrInvalidRating
	}

	doc, err := s.mutate(ctx, postID, func(current domain.PostRating) domain.PostRating {
		return ApplyRating(current, userID, stars, s.timestamp(current))
	})
	if err != nil {
		s.opts.Metrics.RatingSubmitted("error")
		return domain.PostRating{}, err
	}
	s.opts.Metrics.RatingSubmitted("ok")

	s.emit(ctx, events.TypeRatingUpdated, postID, map[string]any{
		"postId":        postID,
		"userId":        userID,
		"rating":        stars,
		"averageRating": doc.AverageRating,
		"totalRatings":  doc.TotalRatings,
	})
	return doc, nil
}

// ToggleLike adds userID to the like set of postID, or removes it if present.
// The returned bool reports whether the user likes the post afterwards.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (domain.PostRating, bool, error) {
	if userID == "" {
		return domain.PostRating{}, false, ErrUnauthenticated
	}

	var liked bool
	doc, err := s.mutate(ctx, postID, func(current domain.PostRating) domain.PostRating {
		next, state := ApplyLikeToggle(current, userID, s.timestamp(current))
		liked = state
		return next
	})
	if err != nil {
		return domain.PostRating{}, false, err
	}
	s.opts.Metrics.LikeToggled(liked)

	s.emit(ctx, events.TypeLikeToggled, postID, map[string]any{
		"postId":    postID,
		"userId":    userID,
		"liked":     liked,
		"likeCount": len(doc.Likes),
	})
	return doc, liked, nil
}

// Get returns the current document, or an empty one if none exists yet.
func (s *Service) Get(ctx context.Context, postID string) (domain.PostRating, error) {
	doc, err := s.store.Get(ctx, postID)
	if errors.Is(err, ErrNotFound) {
		return empty(postID), nil
	}
	if err != nil {
		return domain.PostRating{}, fmt.Errorf("load rating document: %w", err)
	}
	return doc, nil
}

// Subscribe delivers the current document to fn, then every later version.
// Versions older than one already delivered are skipped.
func (s *Service) Subscribe(ctx context.Context, postID string, fn func(domain.PostRating)) (func(), error) {
	var (
		mu   sync.Mutex
		last int64 = -1
	)
	deliver := func(doc domain.PostRating) {
		mu.Lock()
		defer mu.Unlock()
		if doc.Version <= last {
			return
		}
		last = doc.Version
		fn(doc)
	}

	unsubscribe := s.subs.Subscribe(postID, deliver)
	current, err := s.Get(ctx, postID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	deliver(current)
	return unsubscribe, nil
}

// Delete drops the document of a removed post.
func (s *Service) Delete(ctx context.Context, postID string) error {
	if err := s.store.Delete(ctx, postID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete rating document: %w", err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, postID string, apply func(domain.PostRating) domain.PostRating) (domain.PostRating, error) {
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		current, err := s.store.Get(ctx, postID)
		var saved domain.PostRating
		switch {
		case errors.Is(err, ErrNotFound):
			saved, err = s.store.Insert(ctx, apply(empty(postID)))
		case err != nil:
			return domain.PostRating{}, fmt.Errorf("load rating document: %w", err)
		default:
			saved, err = s.store.Replace(ctx, apply(current), current.Version)
		}

		if errors.Is(err, ErrConflict) {
			s.opts.Metrics.WriteConflict()
			s.opts.Logger.Printf("rating: version conflict on post %s (attempt %d/%d)", postID, attempt, s.opts.MaxAttempts)
			continue
		}
		if err != nil {
			return domain.PostRating{}, fmt.Errorf("write rating document: %w", err)
		}

		if err := s.broadcaster.Broadcast(ctx, postID, saved); err != nil {
			s.opts.Logger.Printf("rating: broadcast post %s: %v", postID, err)
		}
		return saved, nil
	}
	return domain.PostRating{}, ErrConflict
}

// timestamp returns the clock reading, nudged past the previous write so
// lastUpdated strictly increases even on coarse clocks.
func (s *Service) timestamp(prev domain.PostRating) time.Time {
	now := s.opts.Clock().UTC().Truncate(time.Microsecond)
	if !now.After(prev.LastUpdated) {
		now = prev.LastUpdated.Add(time.Microsecond)
	}
	return now
}

func (s *Service) emit(ctx context.Context, eventType, postID string, data any) {
	if s.opts.Events == nil {
		return
	}
	if err := s.opts.Events.Publish(ctx, eventType, postID, data); err != nil {
		s.opts.Logger.Printf("rating: publish %s for post %s: %v", eventType, postID, err)
	}
}

func empty(postID string) domain.PostRating {
	return domain.PostRating{
		PostID:  postID,
		Ratings: []domain.RatingRecord{},
		Likes:   []string{},
	}
}
