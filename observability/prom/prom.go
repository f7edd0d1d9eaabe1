package prom

import (
	"net/http"
	"time"

	"github.com/floegence/safechat/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ClientObserver exports session metrics to Prometheus.
type ClientObserver struct {
	framesSent       *prometheus.CounterVec
	framesReceived   *prometheus.CounterVec
	bytesSent        prometheus.Counter
	bytesReceived    prometheus.Counter
	keepalives       prometheus.Counter
	handshakes       *prometheus.CounterVec
	handshakeLatency prometheus.Histogram
	transfers        *prometheus.CounterVec
	transferBytes    *prometheus.CounterVec
}

// NewClientObserver registers session metrics on the registry.
func NewClientObserver(reg *prometheus.Registry) *ClientObserver {
	o := &ClientObserver{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_frames_sent_total",
			Help: "Frames written to the relay by command.",
		}, []string{"command"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_frames_received_total",
			Help: "Frames read from the relay by command.",
		}, []string{"command"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safechat_bytes_sent_total",
			Help: "Frame payload bytes written to the relay.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safechat_bytes_received_total",
			Help: "Frame payload bytes read from the relay.",
		}),
		keepalives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safechat_keepalives_total",
			Help: "Keepalive probes sent by the idle watchdog.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_handshakes_total",
			Help: "Key exchanges by role and result.",
		}, []string{"role", "result"}),
		handshakeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "safechat_handshake_seconds",
			Help:    "Key exchange duration including parameter generation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_transfers_total",
			Help: "File transfers by direction and result.",
		}, []string{"direction", "result"}),
		transferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safechat_transfer_bytes_total",
			Help: "File bytes moved by direction.",
		}, []string{"direction"}),
	}
	reg.MustRegister(
		o.framesSent,
		o.framesReceived,
		o.bytesSent,
		o.bytesReceived,
		o.keepalives,
		o.handshakes,
		o.handshakeLatency,
		o.transfers,
		o.transferBytes,
	)
	return o
}

func (o *ClientObserver) FrameSent(command string, bytes int) {
	o.framesSent.WithLabelValues(command).Inc()
	o.bytesSent.Add(float64(bytes))
}

func (o *ClientObserver) FrameReceived(command string, bytes int) {
	o.framesReceived.WithLabelValues(command).Inc()
	o.bytesReceived.Add(float64(bytes))
}

func (o *ClientObserver) Keepalive() {
	o.keepalives.Inc()
}

func (o *ClientObserver) Handshake(role observability.HandshakeRole, result observability.HandshakeResult, d time.Duration) {
	o.handshakes.WithLabelValues(string(role), string(result)).Inc()
	o.handshakeLatency.Observe(d.Seconds())
}

func (o *ClientObserver) Transfer(direction observability.TransferDirection, result observability.TransferResult, bytes int64) {
	o.transfers.WithLabelValues(string(direction), string(result)).Inc()
	if bytes > 0 {
		o.transferBytes.WithLabelValues(string(direction)).Add(float64(bytes))
	}
}
