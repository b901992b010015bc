package status

import (
	"errors"
	"net/http"
)

var (
	errDatabase = errors.New("database connection failed")
	errBroker   = errors.New("rabbitmq connection failed")
)

// NewMux routes /healthz to the checker and /metrics to the given handler
func NewMux(checker *Checker, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(checker))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

func healthHandler(checker *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.Check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy: " + err.Error()))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	}
}
