// Package metrics holds the Prometheus collectors and the metrics HTTP server.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the part of *pgxpool.Pool read by the pool gauges.
type PoolStats interface {
	Stat() *pgxpool.Stat
}

// RegisterPoolMetrics exposes connection pool statistics as gauges labelled
// with the pool name.
func RegisterPoolMetrics(reg prometheus.Registerer, name string, pool PoolStats) {
	labels := prometheus.Labels{"pool": name}
	gauge := func(metric, help string, value func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}
	reg.MustRegister(
		gauge("pgxpool_acquired_conns", "Connections currently acquired from the pool",
			(*pgxpool.Stat).AcquiredConns),
		gauge("pgxpool_idle_conns", "Idle connections in the pool",
			(*pgxpool.Stat).IdleConns),
		gauge("pgxpool_total_conns", "Total connections in the pool",
			(*pgxpool.Stat).TotalConns),
		gauge("pgxpool_max_conns", "Configured maximum pool size",
			(*pgxpool.Stat).MaxConns),
	)
}
