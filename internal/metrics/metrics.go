package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	ratingWrites   *prometheus.CounterVec
	likeToggles    *prometheus.CounterVec
	writeConflicts prometheus.Counter
	subscribers    *prometheus.GaugeVec
	commentsAdded  prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ratingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymblog",
			Name:      "rating_submissions_total",
			Help:      "Rating submissions by outcome.",
		}, []string{"outcome"}),
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymblog",
			Name:      "like_toggles_total",
			Help:      "Like toggles by resulting action.",
		}, []string{"action"}),
		writeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gymblog",
			Name:      "rating_write_conflicts_total",
			Help:      "Optimistic version conflicts on aggregate documents.",
		}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gymblog",
			Name:      "stream_subscribers",
			Help:      "Active push subscriptions by stream.",
		}, []string{"stream"}),
		commentsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gymblog",
			Name:      "comments_added_total",
			Help:      "Comments created.",
		}),
	}
	reg.MustRegister(m.ratingWrites, m.likeToggles, m.writeConflicts, m.subscribers, m.commentsAdded)
	return m
}

func (m *Metrics) RatingSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.ratingWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LikeToggled(liked bool) {
	if m == nil {
		return
	}
	action := "unlike"
	if liked {
		action = "like"
	}
	m.likeToggles.WithLabelValues(action).Inc()
}

func (m *Metrics) WriteConflict() {
	if m == nil {
		return
	}
	m.writeConflicts.Inc()
}

func (m *Metrics) CommentAdded() {
	if m == nil {
		return
	}
	m.commentsAdded.Inc()
}

// SubscriberGauge returns a hook suitable for realtime.Hub.OnSubscriberChange.
func (m *Metrics) SubscriberGauge(stream string) func(delta int) {
	if m == nil {
		return nil
	}
	g := m.subscribers.WithLabelValues(stream)
	return func(delta int) { g.Add(float64(delta)) }
}
