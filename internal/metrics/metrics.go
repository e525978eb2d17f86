// Package metrics collects per-run counters and writes them in the
// Prometheus text format for a node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"partcat/internal/integrations/llm"
	"partcat/internal/pipeline"
)

type Run struct {
	registry *prometheus.Registry

	RowsClassified *prometheus.CounterVec
	RowsSkipped    *prometheus.CounterVec
	LLMRequests    *prometheus.CounterVec
	LLMTokens      *prometheus.CounterVec
	Checkpoints    prometheus.Counter
	RunDuration    prometheus.Gauge
	LastRun        prometheus.Gauge
}

func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Run{
		registry: reg,
		RowsClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partcat_rows_classified_total",
				Help: "Rows labeled in this run",
			},
			[]string{"mode", "source"},
		),
		RowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partcat_rows_skipped_total",
				Help: "Rows not sent for classification",
			},
			[]string{"reason"},
		),
		LLMRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partcat_llm_requests_total",
				Help: "Classification requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		LLMTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partcat_llm_tokens_total",
				Help: "Tokens reported by the provider",
			},
			[]string{"direction"},
		),
		Checkpoints: factory.NewCounter(prometheus.CounterOpts{
			Name: "partcat_checkpoints_total",
			Help: "Intermediate saves of the output workbook",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "partcat_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "partcat_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// RequestObserver returns a callback for llm.Client.OnRequest.
func (r *Run) RequestObserver(provider string) func(llm.Usage, error) {
	return func(usage llm.Usage, err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(llm.ReasonOf(err))
			if outcome == "" {
				outcome = "error"
			}
		}
		r.LLMRequests.WithLabelValues(provider, outcome).Inc()
		r.LLMTokens.WithLabelValues("input").Add(float64(usage.InputTokens))
		r.LLMTokens.WithLabelValues("output").Add(float64(usage.OutputTokens))
	}
}

// ObserveSummary records the row counters of a finished run.
func (r *Run) ObserveSummary(s pipeline.Summary, elapsed time.Duration, finished time.Time) {
	mode := string(s.Mode)
	r.RowsClassified.WithLabelValues(mode, "model").Add(float64(s.FromModel))
	r.RowsClassified.WithLabelValues(mode, "fallback").Add(float64(s.Fallbacks))
	r.RowsSkipped.WithLabelValues("already_classified").Add(float64(s.AlreadyDone))
	r.RowsSkipped.WithLabelValues("blank").Add(float64(s.Blank))
	r.Checkpoints.Add(float64(s.Checkpoints))
	r.RunDuration.Set(elapsed.Seconds())
	r.LastRun.Set(float64(finished.Unix()))
}

// WriteTextfile replaces path atomically with the current metric values.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
