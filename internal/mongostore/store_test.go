package mongostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/rating"
	"github.com/Clark-Hu/gymblog/internal/realtime"
)

// newTestStore connects to MONGO_URI and uses a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not provided")
	}
	ctx := context.Background()
	db := fmt.Sprintf("gymblog_test_%d", time.Now().UnixNano())
	st, err := Connect(ctx, uri, db)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = st.col.Database().Drop(context.Background())
		_ = st.Close(context.Background())
	})
	return st
}

func TestStore_VersionedWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Get(ctx, "p1"); !errors.Is(err, rating.ErrNotFound) {
		t.Fatalf("Get absent err = %v", err)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := rating.ApplyRating(domain.PostRating{PostID: "p1"}, "u1", 4, now)
	saved, err := st.Insert(ctx, doc)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.Version != 1 || saved.AverageRating != 4 || !saved.LastUpdated.Equal(now) {
		t.Fatalf("saved = %+v", saved)
	}
	if _, err := st.Insert(ctx, doc); !errors.Is(err, rating.ErrConflict) {
		t.Fatalf("duplicate insert err = %v", err)
	}

	next, _ := rating.ApplyLikeToggle(saved, "u2", now.Add(time.Second))
	replaced, err := st.Replace(ctx, next, 1)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.Version != 2 || len(replaced.Likes) != 1 {
		t.Fatalf("replaced = %+v", replaced)
	}
	if _, err := st.Replace(ctx, next, 1); !errors.Is(err, rating.ErrConflict) {
		t.Fatalf("stale replace err = %v", err)
	}

	if err := st.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.Delete(ctx, "p1"); !errors.Is(err, rating.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestStore_ConcurrentSubmissions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	hub := realtime.NewHub[domain.PostRating]()
	svc := rating.NewService(st, hub, hub, rating.Options{
		MaxAttempts: workers,
		Logger:      log.New(io.Discard, "", 0),
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.SubmitRating(ctx, "hot", fmt.Sprintf("u%d", i), 5); err != nil {
				t.Errorf("submit u%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	doc, err := st.Get(ctx, "hot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.TotalRatings != workers || doc.AverageRating != 5 {
		t.Fatalf("doc = %+v", doc)
	}
}
