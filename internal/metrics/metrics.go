package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick outcomes for LiveTicksTotal
const (
	OutcomeDetected        = "detected"
	OutcomeSkippedBusy     = "skipped_busy"
	OutcomeSkippedNotReady = "skipped_not_ready"
	OutcomeError           = "error"
)

// Detection modes
const (
	ModeImage = "image"
	ModeLive  = "live"
)

// Webhook delivery outcomes for WebhookDeliveriesTotal
const (
	DeliveryDelivered = "delivered"
	DeliveryRetried   = "retried"
	DeliveryFailed    = "failed"
	DeliveryDropped   = "dropped"
)

// Gauges
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "facewatch_active_sessions",
		Help: "Number of running live detection sessions (0 or 1)",
	})
	ModelState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "facewatch_model_state",
		Help: "Detector model state: 0 unloaded, 1 loading, 2 ready, -1 failed",
	})
)

// Counters
var (
	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_sessions_started_total",
		Help: "Total live sessions that reached the running state",
	})
	LiveTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_live_ticks_total",
		Help: "Live loop ticks by outcome",
	}, []string{"outcome"})
	FacesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_faces_detected_total",
		Help: "Faces rendered after confidence filtering, by mode",
	}, []string{"mode"})
	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_webhook_deliveries_total",
		Help: "Outbound webhook delivery attempts by outcome",
	}, []string{"outcome"})
)

// Histograms
var (
	DetectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facewatch_detection_duration_seconds",
		Help:    "Detector call duration by mode",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"mode"})
)
