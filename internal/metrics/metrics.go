// Package metrics records the outcome of a sync run in Prometheus text
// format, for node_exporter's textfile collector to pick up between runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/errors"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

const namespace = "orgsync"

// Recorder collects run metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	lastRun    prometheus.Gauge
	duration   prometheus.Gauge
	success    prometheus.Gauge
	changes    *prometheus.GaugeVec
	extracted  *prometheus.GaugeVec
	rateLimits prometheus.Gauge
	failures   *prometheus.GaugeVec
}

// New creates a Recorder.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the last sync run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_duration_seconds",
			Help: "Wall time of the last sync run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_success",
			Help: "1 if the last sync run completed, 0 otherwise.",
		}),
		changes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_changes",
			Help: "Writes made by the last sync run.",
		}, []string{"entity", "type"}),
		extracted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_extracted",
			Help: "Source records seen by the last sync run.",
		}, []string{"kind"}),
		rateLimits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_rate_limit_retries",
			Help: "Source requests retried after rate limiting in the last run.",
		}),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_failure",
			Help: "1 for the reason the last sync run failed.",
		}, []string{"reason"}),
	}
	r.registry.MustRegister(r.lastRun, r.duration, r.success, r.changes, r.extracted, r.rateLimits, r.failures)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record captures a finished run. result may be nil when the run failed early.
func (r *Recorder) Record(result *pkgsync.Result, runErr error) {
	r.lastRun.Set(float64(time.Now().Unix()))
	if runErr == nil {
		r.success.Set(1)
	} else {
		r.success.Set(0)
		r.failures.WithLabelValues(reason(runErr)).Set(1)
	}
	if result == nil {
		return
	}

	r.duration.Set(result.Duration.Seconds())
	r.rateLimits.Set(float64(result.Extract.RateLimitRetries))

	ex := result.Extract
	r.extracted.WithLabelValues("departments").Set(float64(ex.Departments))
	r.extracted.WithLabelValues("users").Set(float64(ex.Users))
	r.extracted.WithLabelValues("expected_users").Set(float64(ex.ExpectedUsers))
	r.extracted.WithLabelValues("duplicates").Set(float64(ex.Duplicates))
	r.extracted.WithLabelValues("missing_user_id").Set(float64(ex.MissingUserID))
	r.extracted.WithLabelValues("excluded").Set(float64(ex.Excluded))

	if d := result.Departments; d != nil {
		r.setChanges(differ.EntityDepartment, d.Created, d.Updated, d.Disabled, d.Failed)
	}
	if u := result.Users; u != nil {
		r.setChanges(differ.EntityUser, u.Created, u.Updated, u.Disabled, u.Failed)
		r.changes.WithLabelValues(string(differ.EntityUser), "skipped").Set(float64(u.Skipped))
	}
}

func (r *Recorder) setChanges(entity differ.Entity, created, updated, disabled, failed int) {
	e := string(entity)
	r.changes.WithLabelValues(e, string(differ.ChangeTypeCreate)).Set(float64(created))
	r.changes.WithLabelValues(e, string(differ.ChangeTypeUpdate)).Set(float64(updated))
	r.changes.WithLabelValues(e, string(differ.ChangeTypeDisable)).Set(float64(disabled))
	r.changes.WithLabelValues(e, string(differ.ChangeTypeFailed)).Set(float64(failed))
}

// WriteFile writes the registry in text format. The write is atomic.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

func reason(err error) string {
	switch {
	case errors.IsIntegrity(err):
		return "integrity"
	case errors.IsCredentialsError(err):
		return "credentials"
	case errors.IsRateLimited(err):
		return "rate_limited"
	case errors.IsTransient(err), errors.IsUnavailable(err):
		return "unavailable"
	case errors.IsCanceled(err), errors.IsTimeout(err):
		return "canceled"
	default:
		return "other"
	}
}
