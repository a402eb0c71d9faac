/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laicafm_api_requests_total",
		Help: "Total number of HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "laicafm_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "laicafm_api_active_connections",
		Help: "Number of in-flight HTTP requests.",
	})

	// ListenersConnected gauges registered websocket listeners.
	ListenersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "laicafm_listeners_connected",
		Help: "Number of connected websocket listeners.",
	})

	// BroadcastFailures counts listener sends that failed during fan-out.
	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "laicafm_broadcast_failures_total",
		Help: "Total listener sends that failed and triggered unregistration.",
	})

	// ChatMessagesTotal counts persisted chat messages.
	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "laicafm_chat_messages_total",
		Help: "Total chat messages persisted.",
	})

	// SongsUploadedTotal counts accepted song uploads.
	SongsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "laicafm_songs_uploaded_total",
		Help: "Total songs accepted by the upload endpoint.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
