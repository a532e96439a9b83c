// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BridgeMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splatview_bridge_messages_total",
			Help: "XR bridge messages by direction and type",
		},
		[]string{"direction", "type"},
	)

	BridgeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "splatview_bridge_clients",
			Help: "Connected XR bridge clients",
		},
	)

	ARSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splatview_ar_sessions_total",
			Help: "AR session lifecycle transitions",
		},
		[]string{"event"},
	)

	TurntableFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splatview_turntable_frames_total",
			Help: "Turntable frames rendered by status",
		},
		[]string{"status"},
	)

	TurntableFrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "splatview_turntable_frame_seconds",
			Help:    "Time to render and encode one turntable frame",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)
