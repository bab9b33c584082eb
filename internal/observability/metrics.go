package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kshitizb/talk/internal/bus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_http_requests_total",
			Help: "Total number of HTTP requests processed by the daemon.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talk_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_messages_sent_total",
			Help: "Total number of messages appended to conversation logs.",
		},
		[]string{"kind"},
	)
	conversationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk_conversations_total",
			Help: "Total number of conversation registry operations.",
		},
		[]string{"op"},
	)
	decodeSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talk_decode_skipped_records_total",
			Help: "Total number of malformed store records skipped during decode.",
		},
	)
	wsActiveStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talk_ws_active_streams",
			Help: "Number of active websocket watch streams.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		messagesSentTotal,
		conversationsTotal,
		decodeSkippedTotal,
		wsActiveStreams,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncStream(kind string) {
	wsActiveStreams.WithLabelValues(kind).Inc()
}

func DecStream(kind string) {
	wsActiveStreams.WithLabelValues(kind).Dec()
}

// Recorder folds bus events into counters. Stop the returned func to detach.
func Recorder(b *bus.Bus) func() {
	events, unsub := b.Subscribe("", 64)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt bus.Event
			select {
			case evt = <-events:
			case <-stop:
				return
			}
			switch evt.Kind {
			case bus.KindMessageSent:
				kind := "unknown"
				if p, ok := evt.Payload.(bus.MessageEvent); ok {
					kind = p.Kind
				}
				messagesSentTotal.WithLabelValues(kind).Inc()
			case bus.KindConversationCreated:
				conversationsTotal.WithLabelValues("created").Inc()
			case bus.KindConversationDeleted:
				conversationsTotal.WithLabelValues("deleted").Inc()
			case bus.KindDecodeSkipped:
				if p, ok := evt.Payload.(bus.DecodeSkipEvent); ok {
					decodeSkippedTotal.Add(float64(p.Skipped))
				}
			}
		}
	}()
	return func() {
		unsub()
		close(stop)
		<-done
	}
}
