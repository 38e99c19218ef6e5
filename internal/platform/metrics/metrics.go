// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus collectors exported on /metrics.

Collectors are created per [Metrics] value and registered against an explicit
[prometheus.Registerer], so tests can use a private registry.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for auth events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics bundles the API's collectors.
type Metrics struct {
	AuthEvents      *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	EmailDeliveries *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
// Panics if registration fails (following prometheus convention).
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication flow outcomes by event.",
		}, []string{"event", "outcome"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		EmailDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "email_deliveries_total",
			Help: "Outgoing email attempts by notifier mode and outcome.",
		}, []string{"mode", "outcome"}),

		gatherer: reg,
	}

	reg.MustRegister(m.AuthEvents, m.HTTPRequests, m.HTTPDuration, m.EmailDeliveries)
	return m
}

// RecordAuthEvent increments auth_events_total. Safe on a nil receiver.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event, outcome).Inc()
}

// RecordEmailDelivery increments email_deliveries_total. Safe on a nil receiver.
func (m *Metrics) RecordEmailDelivery(mode, outcome string) {
	if m == nil {
		return
	}
	m.EmailDeliveries.WithLabelValues(mode, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (writer *statusWriter) WriteHeader(code int) {
	writer.status = code
	writer.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and latency labelled by the chi route
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		startTime := time.Now()
		wrapped := &statusWriter{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(wrapped, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequests.WithLabelValues(route, request.Method, strconv.Itoa(wrapped.status)).Inc()
		m.HTTPDuration.WithLabelValues(route, request.Method).Observe(time.Since(startTime).Seconds())
	})
}
