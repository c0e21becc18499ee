package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolStats exports pgxpool statistics read through stat on every scrape.
func RegisterPoolStats(reg prometheus.Registerer, stat func() *pgxpool.Stat) {
	gauge := func(name, help string, read func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gymblog",
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			s := stat()
			if s == nil {
				return 0
			}
			return read(s)
		})
	}
	reg.MustRegister(
		gauge("total_conns", "Connections currently in the pool.", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("acquired_conns", "Connections checked out.", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("idle_conns", "Idle connections.", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("max_conns", "Configured pool size.", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	)
}
