package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the API.
const (
	TypeRatingUpdated = "post.rating.updated"
	TypeLikeToggled   = "post.like.toggled"
	TypeCommentAdded  = "post.comment.added"
	TypePostUpdated   = "post.updated"
	TypePostDeleted   = "post.deleted"
)

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, data any) error
	Close() error
}

// Envelope is the wire format of every event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(eventType, key string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// LoggingPublisher writes events to the log instead of a broker.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher is used when no broker is configured.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(_ context.Context, eventType, key string, data any) error {
	env, err := newEnvelope(eventType, key, data)
	if err != nil {
		return err
	}
	p.logger.Printf("event %s key=%s id=%s bytes=%d", env.Type, env.Key, env.ID, len(env.Data))
	return nil
}

func (p *LoggingPublisher) Close() error { return nil }
