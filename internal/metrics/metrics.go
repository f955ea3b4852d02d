// Package metrics exposes quiz session counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"training-quiz-service/internal/domain"
)

// Recorder implements app.Metrics.
type Recorder struct {
	gatherer prometheus.Gatherer

	sessionsStarted   *prometheus.CounterVec
	sessionsFinalized *prometheus.CounterVec
	scorePercentage   *prometheus.HistogramVec
	persistFailures   *prometheus.CounterVec
	badgesAwarded     *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry that also carries
// the Go and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,
		sessionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sessions_started_total",
				Help: "Quiz sessions created, by module",
			},
			[]string{"module"},
		),
		sessionsFinalized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_sessions_finalized_total",
				Help: "Quiz sessions scored, by module, outcome and trigger",
			},
			[]string{"module", "passed", "expired"},
		),
		scorePercentage: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_score_percentage",
				Help:    "Distribution of quiz percentages",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"module"},
		),
		persistFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_progress_persist_failures_total",
				Help: "Quiz results that could not be written to progress storage",
			},
			[]string{"module"},
		),
		badgesAwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_badges_awarded_total",
				Help: "Badges granted, by badge id",
			},
			[]string{"badge"},
		),
	}
}

func (r *Recorder) SessionStarted(moduleID string) {
	r.sessionsStarted.WithLabelValues(moduleID).Inc()
}

func (r *Recorder) SessionFinalized(result domain.QuizResult) {
	r.sessionsFinalized.WithLabelValues(result.ModuleID, strconv.FormatBool(result.Passed), strconv.FormatBool(result.Expired)).Inc()
	r.scorePercentage.WithLabelValues(result.ModuleID).Observe(float64(result.Percentage))
}

func (r *Recorder) PersistFailed(moduleID string) {
	r.persistFailures.WithLabelValues(moduleID).Inc()
}

func (r *Recorder) BadgesAwarded(badgeIDs []string) {
	for _, id := range badgeIDs {
		r.badgesAwarded.WithLabelValues(id).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
