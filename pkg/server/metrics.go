package server

import (
	"errors"
	"time"

	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query operations, used as the "operation" metric label.
const (
	OpCompanyEmployees = "company_employees"
	OpCommonFriends    = "common_friends"
	OpFavouriteFoods   = "favourite_foods"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colony_directory_queries_total",
		Help: "Queries served by operation and outcome",
	}, []string{"operation", "outcome"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "colony_directory_query_duration_seconds",
		Help:    "Query latency by operation",
		Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
	}, []string{"operation"})
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, directory.ErrNotFound):
		return "not_found"
	case errors.Is(err, directory.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err error) {
	queriesTotal.WithLabelValues(op, outcome(err)).Inc()
	queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
