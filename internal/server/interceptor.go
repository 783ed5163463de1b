package server

import (
	"net/http"
	"time"

	"github.com/emrgen/suggest/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestTimeMiddleware logs and records the time spent serving each request.
func RequestTimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		reqTime := time.Since(start)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		metrics.RecordHTTPRequest(r.Method, route, sw.status, reqTime)
		logrus.Debugf("request time: %s %s %d: %v", r.Method, route, sw.status, reqTime)
	})
}
