package task

import (
	"errors"
	"time"

	domain "github.com/example/student-task-manager/domain/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_task_operations_total",
			Help: "Task store operations by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskmanager_task_operation_duration_seconds",
			Help:    "Duration of task store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	titleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskmanager_task_title_length_bytes",
			Help:    "Length distribution of created task titles",
			Buckets: []float64{10, 25, 50, 100, 200},
		},
	)
)

// observe records one operation. Call it deferred with a pointer to the
// named error result.
func observe(operation string, start time.Time, errp *error) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	operationCount.WithLabelValues(operation, statusOf(*errp)).Inc()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	case domain.IsValidation(err):
		return "invalid"
	}
	return "error"
}
