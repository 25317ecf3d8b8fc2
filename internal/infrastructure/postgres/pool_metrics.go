package postgres

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

// poolStats is the subset of *pgxpool.Stat exported as metrics.
type poolStats interface {
	TotalConns() int32
	IdleConns() int32
	AcquiredConns() int32
	MaxConns() int32
	AcquireCount() int64
	EmptyAcquireCount() int64
}

// PoolCollector exports connection pool statistics of the render store.
type PoolCollector struct {
	stat func() poolStats

	totalConns    *prometheus.Desc
	idleConns     *prometheus.Desc
	acquiredConns *prometheus.Desc
	maxConns      *prometheus.Desc
	acquires      *prometheus.Desc
	emptyAcquires *prometheus.Desc
}

// Collector returns a prometheus.Collector reading this client's pool stats on scrape.
func (c *Client) Collector() *PoolCollector {
	return newPoolCollector(func() poolStats { return c.pool.Stat() })
}

func newPoolCollector(stat func() poolStats) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metrics.Namespace, "db_pool", name), help, nil, nil)
	}
	return &PoolCollector{
		stat:          stat,
		totalConns:    desc("total_connections", "Connections currently open in the render store pool"),
		idleConns:     desc("idle_connections", "Idle connections in the render store pool"),
		acquiredConns: desc("acquired_connections", "Connections checked out of the render store pool"),
		maxConns:      desc("max_connections", "Maximum size of the render store pool"),
		acquires:      desc("acquires_total", "Total successful connection acquisitions"),
		emptyAcquires: desc("empty_acquires_total", "Acquisitions that waited because the pool was empty"),
	}
}

// Describe implements prometheus.Collector.
func (p *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.totalConns
	ch <- p.idleConns
	ch <- p.acquiredConns
	ch <- p.maxConns
	ch <- p.acquires
	ch <- p.emptyAcquires
}

// Collect implements prometheus.Collector.
func (p *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.stat()
	ch <- prometheus.MustNewConstMetric(p.totalConns, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(p.idleConns, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(p.acquiredConns, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(p.maxConns, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(p.acquires, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(p.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
}
