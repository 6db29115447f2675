package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docker_graph"

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	events        *prometheus.CounterVec
	flushes       *prometheus.CounterVec
	flushDuration prometheus.Histogram
	graphNodes    prometheus.Gauge
	graphLinks    prometheus.Gauge
	renders       *prometheus.HistogramVec

	connections *prometheus.CounterVec
	connected   prometheus.Gauge
	messages    *prometheus.CounterVec
	subscribers prometheus.Gauge

	cache *prometheus.CounterVec
	bytes prometheus.Counter
}

// NewPrometheus creates the collectors and registers them with reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events processed, by type and whether they changed the graph.",
		}, []string{"type", "changed"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Debounced graph flushes, by outcome.",
		}, []string{"outcome"}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent handing a snapshot to the sinks.",
			Buckets:   prometheus.DefBuckets,
		}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the last flushed snapshot.",
		}),
		graphLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_links",
			Help:      "Links in the last flushed snapshot.",
		}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Render duration, by output formats.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"formats", "outcome"}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_disconnects_total",
			Help:      "Event stream disconnections, by cause.",
		}, []string{"cause"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 while the event stream client is connected.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Event stream messages received, by validity.",
		}, []string{"valid"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Connected event stream subscribers.",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Render cache operations, by key type and result.",
		}, []string{"key_type", "result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the render cache.",
		}),
	}

	reg.MustRegister(
		p.events, p.flushes, p.flushDuration, p.graphNodes, p.graphLinks, p.renders,
		p.connections, p.connected, p.messages, p.subscribers,
		p.cache, p.bytes,
	)
	return p
}

// Install registers p as the pipeline, stream and cache hooks.
func (p *Prometheus) Install() {
	SetPipelineHooks(p)
	SetStreamHooks(p)
	SetCacheHooks(p)
}

func (p *Prometheus) OnEvent(_ context.Context, eventType string, changed bool) {
	p.events.WithLabelValues(eventType, strconv.FormatBool(changed)).Inc()
}

func (p *Prometheus) OnFlush(_ context.Context, nodes, links int, d time.Duration, err error) {
	p.flushes.WithLabelValues(outcome(err)).Inc()
	p.flushDuration.Observe(d.Seconds())
	p.graphNodes.Set(float64(nodes))
	p.graphLinks.Set(float64(links))
}

func (p *Prometheus) OnRenderStart(context.Context, []string) {}

func (p *Prometheus) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	p.renders.WithLabelValues(strings.Join(formats, ","), outcome(err)).Observe(d.Seconds())
}

func (p *Prometheus) OnConnect(context.Context, string) {
	p.connected.Set(1)
}

func (p *Prometheus) OnDisconnect(_ context.Context, _ string, err error) {
	p.connected.Set(0)
	cause := "eof"
	if err != nil {
		cause = "error"
	}
	p.connections.WithLabelValues(cause).Inc()
}

func (p *Prometheus) OnMessage(_ context.Context, valid bool) {
	p.messages.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

func (p *Prometheus) OnSubscriber(_ context.Context, delta int) {
	p.subscribers.Add(float64(delta))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cache.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cache.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cache.WithLabelValues(keyType, "set").Inc()
	p.bytes.Add(float64(size))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
