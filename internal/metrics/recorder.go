package metrics

import (
	"net/http"
	"time"

	"github.com/bookstore/services/comics/internal/catalog"
	"github.com/bookstore/services/comics/internal/loader"
	"github.com/bookstore/services/comics/internal/synthetic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for records
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Recorder holds the metrics of the loader
type Recorder struct {
	registry *prometheus.Registry

	records     *prometheus.CounterVec
	rows        *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder on its own registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,

		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comics_records_total",
			Help: "Input records read, by stream and validation outcome",
		}, []string{"stream", "outcome"}),

		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comics_rows_written_total",
			Help: "Rows committed, by table",
		}, []string{"table"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comics_runs_total",
			Help: "Completed runs, by mode and status",
		}, []string{"mode", "status"}),

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comics_run_duration_seconds",
			Help:    "Duration of runs, by mode",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		}, []string{"mode"}),
	}

	registry.MustRegister(
		r.records,
		r.rows,
		r.runs,
		r.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveBuild records validation outcomes per stream
func (r *Recorder) ObserveBuild(stats catalog.Stats) {
	for stream, s := range map[string]catalog.StreamStats{
		"authors": stats.Authors,
		"books":   stats.Books,
		"reviews": stats.Reviews,
	} {
		r.records.WithLabelValues(stream, OutcomeAccepted).Add(float64(s.Accepted))
		r.records.WithLabelValues(stream, OutcomeRejected).Add(float64(s.Rejected()))
	}
}

// ObserveLoad records committed catalog rows
func (r *Recorder) ObserveLoad(sum loader.Summary) {
	r.addRows("authors", sum.Authors)
	r.addRows("publishers", sum.Publishers)
	r.addRows("books", sum.Books)
	r.addRows("book_authors", sum.BookAuthors)
	r.addRows("reviews", sum.Reviews)
	r.addRows("book_reviews", sum.BookReviews)
}

// ObserveSeed records committed synthetic rows
func (r *Recorder) ObserveSeed(g *synthetic.Graph) {
	r.addRows("users", len(g.Users))
	r.addRows("addresses", len(g.Addresses))
	r.addRows("user_addresses", len(g.UserAddresses))
	r.addRows("orders", len(g.Orders))
	r.addRows("book_orders", len(g.BookOrders))
}

// ObserveRun records the outcome and duration of a run
func (r *Recorder) ObserveRun(mode string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.runs.WithLabelValues(mode, status).Inc()
	r.runDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

func (r *Recorder) addRows(table string, n int) {
	r.rows.WithLabelValues(table).Add(float64(n))
}
