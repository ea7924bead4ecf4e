package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskminder"

var (
	once sync.Once

	storeSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_saves_total",
			Help:      "Task store save operations by backend and result.",
		},
		[]string{"backend", "result"},
	)

	storeLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_loads_total",
			Help:      "Task file loads by decode mode (missing, strict, tolerant, failed).",
		},
		[]string{"mode"},
	)

	readRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_read_retries_total",
		Help:      "Failed reads of current state that were retried before a merge.",
	})

	tempSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_temp_files_swept_total",
		Help:      "Stray temporary files removed after successful writes.",
	})

	tasksDue = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_due_total",
		Help:      "Tasks found due by the scheduler.",
	})
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(storeSaves, storeLoads, readRetries, tempSwept, tasksDue)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncSave(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeSaves.WithLabelValues(backend, result).Inc()
}

func IncLoad(mode string) {
	storeLoads.WithLabelValues(mode).Inc()
}

func IncReadRetry() {
	readRetries.Inc()
}

func AddSwept(n int) {
	if n > 0 {
		tempSwept.Add(float64(n))
	}
}

func AddDue(n int) {
	if n > 0 {
		tasksDue.Add(float64(n))
	}
}
