package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StepSample is the per-step measurement handed to SimCollector. It is
// built by the runner from an engine step result.
type StepSample struct {
	Nodes    int
	LinksUp  int
	LossDB   []float64      // loss of every off-diagonal pair
	Quality  map[string]int // up-link count per quality bucket
	Duration time.Duration
}

// SimCollector bundles Prometheus metrics for the network engine.
type SimCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal   prometheus.Counter
	StepDuration prometheus.Histogram
	Nodes        prometheus.Gauge
	LinksUp      prometheus.Gauge
	LinkLoss     prometheus.Histogram
	LinkQuality  *prometheus.CounterVec
}

// NewSimCollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registering twice against the same registry reuses the existing
// collectors.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsn_steps_total",
		Help: "Total number of simulation steps executed.",
	}), "wsn_steps_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wsn_step_duration_seconds",
		Help:    "Wall-clock time spent computing one simulation step.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "wsn_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsn_nodes",
		Help: "Number of sensor nodes in the simulated network.",
	}), "wsn_nodes")
	if err != nil {
		return nil, err
	}
	linksUp, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsn_links_up",
		Help: "Number of directed links that were up in the last step.",
	}), "wsn_links_up")
	if err != nil {
		return nil, err
	}

	loss, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wsn_link_loss_db",
		Help:    "Path loss of every evaluated link, in dB.",
		Buckets: prometheus.LinearBuckets(40, 10, 12),
	}), "wsn_link_loss_db")
	if err != nil {
		return nil, err
	}

	quality := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsn_link_quality_total",
		Help: "Up links observed per step, labeled by margin quality bucket.",
	}, []string{"quality"})
	quality, err = registerCounterVec(reg, quality, "wsn_link_quality_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:     gatherer,
		StepsTotal:   steps,
		StepDuration: duration,
		Nodes:        nodes,
		LinksUp:      linksUp,
		LinkLoss:     loss,
		LinkQuality:  quality,
	}, nil
}

// ObserveStep records one step. It is a no-op on a nil collector.
func (c *SimCollector) ObserveStep(s StepSample) {
	if c == nil {
		return
	}
	c.StepsTotal.Inc()
	c.StepDuration.Observe(s.Duration.Seconds())
	c.Nodes.Set(float64(s.Nodes))
	c.LinksUp.Set(float64(s.LinksUp))
	for _, l := range s.LossDB {
		c.LinkLoss.Observe(l)
	}
	for q, n := range s.Quality {
		c.LinkQuality.WithLabelValues(q).Add(float64(n))
	}
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
