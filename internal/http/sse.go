package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const sseHeartbeat = 25 * time.Second

// latest holds the newest value pushed by a subscription callback. Callbacks
// run on the publisher's goroutine, so set never blocks; the stream loop picks
// up whatever is newest when it wakes.
type latest[T any] struct {
	mu     sync.Mutex
	value  T
	ready  bool
	notify chan struct{}
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{notify: make(chan struct{}, 1)}
}

func (l *latest[T]) set(v T) {
	l.mu.Lock()
	l.value = v
	l.ready = true
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *latest[T]) take() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.value, l.ready
	l.ready = false
	return v, ok
}

// serveEvents streams values from src as Server-Sent Events named event until
// the client goes away. render converts each value to its JSON payload.
func serveEvents[T any](w http.ResponseWriter, r *http.Request, event string, src *latest[T], render func(T) any) error {
	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("flush stream headers: %w", err)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
		case <-src.notify:
			value, ok := src.take()
			if !ok {
				continue
			}
			payload, err := json.Marshal(render(value))
			if err != nil {
				return fmt.Errorf("encode %s event: %w", event, err)
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
				return err
			}
		}
		if err := rc.Flush(); err != nil {
			return err
		}
	}
}
