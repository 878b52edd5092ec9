// Package metrics holds the service's prometheus collectors
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestTotal counts ingestion attempts by outcome: accepted, auth_failed, invalid, error
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airguard_ingest_total",
		Help: "Ingestion attempts by outcome",
	}, []string{"source", "outcome"})

	// ReconcileTotal counts reconciliations by the path taken: sent, updated, resent, failed
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airguard_reconcile_total",
		Help: "Notification reconciliations by result",
	}, []string{"result"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airguard_sweep_duration_seconds",
		Help:    "Wall time of one sweep iteration",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airguard_sweep_device_failures_total",
		Help: "Per-device failures during sweeps",
	})

	WeatherLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airguard_weather_lookups_total",
		Help: "Weather lookups by outcome: ok, fallback",
	}, []string{"outcome"})

	DevicesInAlert = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airguard_devices_in_alert",
		Help: "Devices whose latest reconciliation was an alert",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airguard_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
)
