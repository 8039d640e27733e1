// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterReps               *prometheus.CounterVec
	CounterFrames             *prometheus.CounterVec
	CounterSessions           *prometheus.CounterVec

	// gauges
	GaugeRequests       prometheus.Gauge
	GaugeActiveSessions prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
	HistDetectDuration  prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("reptrack", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("reptrack", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps",
		Help:      "The total number of counted repetitions",
	}, []string{"exercise"})
	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames",
		Help:      "The total number of pose frames fed to sessions",
	}, []string{"exercise", "result"})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions",
		Help:      "The total number of started tracking sessions",
	}, []string{"exercise"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Number of tracking sessions that have not been stopped",
	})

	histReqDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		Name:      "request_duration_seconds",
		Help:      "Total duration of requests in seconds",
	})
	histDetectDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.005, 0.01, 0.02, 0.04, 0.066, 0.1, 0.2, 0.5, 1, 5},
		Name:      "pose_detect_duration_seconds",
		Help:      "Duration of a single pose detection call in seconds",
	})

	return &Manager{
		CounterRequests:           counterRequests,
		CounterHandleRequestPanic: counterHandleRequestPanic,
		CounterReps:               counterReps,
		CounterFrames:             counterFrames,
		CounterSessions:           counterSessions,
		GaugeRequests:             gaugeRequests,
		GaugeActiveSessions:       gaugeActiveSessions,
		HistRequestDuration:       histReqDuration,
		HistDetectDuration:        histDetectDuration,
	}
}
