package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookstore/services/comics/internal/catalog"
	"github.com/bookstore/services/comics/internal/loader"
	"github.com/bookstore/services/comics/internal/synthetic"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBuild(t *testing.T) {
	r := NewRecorder()
	r.ObserveBuild(catalog.Stats{
		Authors: catalog.StreamStats{Read: 5, Accepted: 4},
		Books:   catalog.StreamStats{Read: 3, Accepted: 3},
		Reviews: catalog.StreamStats{Read: 10, Accepted: 7},
	})

	assert.Equal(t, 4.0, testutil.ToFloat64(r.records.WithLabelValues("authors", OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.records.WithLabelValues("authors", OutcomeRejected)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.records.WithLabelValues("books", OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.records.WithLabelValues("reviews", OutcomeRejected)))
}

func TestObserveRows(t *testing.T) {
	r := NewRecorder()
	r.ObserveLoad(loader.Summary{Authors: 2, Books: 3, Reviews: 1, BookReviews: 1})
	r.ObserveSeed(&synthetic.Graph{Users: make([]synthetic.User, 4), Orders: make([]synthetic.Order, 8)})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.rows.WithLabelValues("authors")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rows.WithLabelValues("books")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.rows.WithLabelValues("users")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.rows.WithLabelValues("orders")))
}

func TestObserveRun(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("ingest-catalog", time.Now(), nil)
	r.ObserveRun("ingest-catalog", time.Now(), errors.New("boom"))
	r.ObserveRun("ingest-catalog", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("ingest-catalog", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ingest-catalog", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("clear-test-data", time.Now(), nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `comics_runs_total{mode="clear-test-data",status="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
