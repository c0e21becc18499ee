package rating

import (
	"context"
	"errors"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

var (
	// ErrNotFound is returned by a Store when no document exists for a post.
	ErrNotFound = errors.New("rating: document not found")
	// ErrConflict signals that the stored version moved since it was read.
	ErrConflict = errors.New("rating: concurrent update conflict")
	// ErrUnauthenticated rejects actions that carry no user identity.
	ErrUnauthenticated = errors.New("rating: authentication required")
	// ErrInvalidRating rejects star values outside [MinStars, MaxStars].
	ErrInvalidRating = errors.New("rating: stars must be between 1 and 5")
)

// Store persists aggregate documents with optimistic versioning.
//
// Insert must fail with ErrConflict when a document already exists, and
// Replace must fail with ErrConflict unless the stored version equals
// expectedVersion. Both return the document as written, with its new version.
type Store interface {
	Get(ctx context.Context, postID string) (domain.PostRating, error)
	Insert(ctx context.Context, doc domain.PostRating) (domain.PostRating, error)
	Replace(ctx context.Context, doc domain.PostRating, expectedVersion int64) (domain.PostRating, error)
	Delete(ctx context.Context, postID string) error
}
