// Package metrics provides Prometheus instrumentation for the fraud ETL pipeline.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StageRunsTotal counts pipeline stage executions by stage and outcome.
	StageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudetl",
			Name:      "stage_runs_total",
			Help:      "Total pipeline stage executions by stage name and outcome.",
		},
		[]string{"stage", "status"},
	)

	// StageDuration observes stage execution time by stage name.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraudetl",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		},
		[]string{"stage"},
	)

	// RowsProcessed counts table rows handled per stage.
	RowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudetl",
			Name:      "rows_processed_total",
			Help:      "Total rows processed per pipeline stage.",
		},
		[]string{"stage"},
	)

	// PredictionsTotal counts scored transactions by predicted label.
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudetl",
			Name:      "predictions_total",
			Help:      "Total scored transactions by predicted label.",
		},
		[]string{"label"},
	)

	// HighRiskFlagged counts transactions whose rule-based risk score
	// crossed the high-risk threshold during feature engineering.
	HighRiskFlagged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudetl",
		Name:      "high_risk_flagged_total",
		Help:      "Transactions flagged high-risk by the rule-based scorer.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fraudetl", Name: "db_open_connections",
		Help: "Number of open database connections.",
	}, []string{"database"})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fraudetl", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	}, []string{"database"})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fraudetl", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	}, []string{"database"})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fraudetl", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		StageRunsTotal,
		StageDuration,
		RowsProcessed,
		PredictionsTotal,
		HighRiskFlagged,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// Handler returns a gin handler serving the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime
// goroutine count into Prometheus gauges. Call in a goroutine; exits
// when ctx is done.
func StartDBStatsCollector(ctx context.Context, name string, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.WithLabelValues(name).Set(float64(stats.OpenConnections))
			DBIdleConnections.WithLabelValues(name).Set(float64(stats.Idle))
			DBInUseConnections.WithLabelValues(name).Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}
