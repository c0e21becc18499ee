package metrics

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RatingSubmitted("ok")
	m.RatingSubmitted("ok")
	m.RatingSubmitted("invalid")
	m.LikeToggled(true)
	m.LikeToggled(false)
	m.LikeToggled(true)
	m.WriteConflict()
	m.CommentAdded()

	if got := testutil.ToFloat64(m.ratingWrites.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok submissions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.likeToggles.WithLabelValues("like")); got != 2 {
		t.Fatalf("likes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.writeConflicts); got != 1 {
		t.Fatalf("conflicts = %v, want 1", got)
	}

	gauge := m.SubscriberGauge("rating")
	gauge(1)
	gauge(1)
	gauge(-1)
	if got := testutil.ToFloat64(m.subscribers.WithLabelValues("rating")); got != 1 {
		t.Fatalf("subscribers = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RatingSubmitted("ok")
	m.LikeToggled(true)
	m.WriteConflict()
	m.CommentAdded()
	if m.SubscriberGauge("rating") != nil {
		t.Fatalf("nil metrics should return a nil gauge hook")
	}
}

func TestRegisterPoolStats_NilStat(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterPoolStats(reg, func() *pgxpool.Stat { return nil })
	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 4 {
		t.Fatalf("series = %d, want 4", count)
	}
}
