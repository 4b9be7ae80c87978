package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// SocialEvents counts graph and engagement mutations by outcome, e.g.
	// ("like", "created") or ("follow", "duplicate").
	SocialEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitthon_social_events_total",
		Help: "Follow, like and registration outcomes.",
	}, []string{"event", "outcome"})

	// DatabaseQueryLatency records database statement latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitthon_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// RecordSocialEvent increments the SocialEvents counter.
func RecordSocialEvent(event, outcome string) {
	SocialEvents.WithLabelValues(event, outcome).Inc()
}

const dbStartKey = "observability:query_start"

// RegisterDBMetrics installs GORM callbacks that observe statement latency.
func RegisterDBMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(dbStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(dbStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("observability:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.after("observability:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
