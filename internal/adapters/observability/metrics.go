package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinion", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opinion", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ModelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinion", Name: "model_requests_total", Help: "Requests to the remote model server."},
		[]string{"model", "status"},
	)
	ModelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opinion", Name: "model_request_duration_seconds",
			Help:    "Remote model request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	ModelErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinion", Name: "model_transport_errors_total", Help: "Model server requests that got no response, by error type."},
		[]string{"model", "error"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinion", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	SummaryBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "opinion", Name: "summary_builds_total", Help: "Business summary builds by outcome."},
		[]string{"outcome"},
	)
	SummaryBuildLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opinion", Name: "summary_build_duration_seconds",
			Help:    "Business summary build duration seconds.",
			Buckets: []float64{.05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	SummaryAspects = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opinion", Name: "summary_aspects",
			Help:    "Aspects per successful summary.",
			Buckets: prometheus.LinearBuckets(0, 10, 10),
		},
	)
)

// Serve exposes reg on a side listener; an empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ModelRequests, ModelLatency, ModelErrors, CacheEvents,
		SummaryBuilds, SummaryBuildLatency, SummaryAspects)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveModel(model string, status int, dur time.Duration) {
	ModelRequests.WithLabelValues(model, strconv.Itoa(status)).Inc()
	ModelLatency.WithLabelValues(model).Observe(dur.Seconds())
}

// ObserveModelError counts a request that failed before any status came back.
func ObserveModelError(model string, err error) {
	ModelErrors.WithLabelValues(model, LabelErr(err)).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveBuild records one summary build; aspects is only observed for "ok".
func ObserveBuild(outcome string, aspects int, dur time.Duration) {
	SummaryBuilds.WithLabelValues(outcome).Inc()
	SummaryBuildLatency.Observe(dur.Seconds())
	if outcome == "ok" {
		SummaryAspects.Observe(float64(aspects))
	}
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
