package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TopologyCollector exposes connectivity-graph metrics derived from the
// last analysed step.
type TopologyCollector struct {
	Components       prometheus.Gauge
	LargestComponent prometheus.Gauge
	IsolatedNodes    prometheus.Gauge
	AnalysisDuration prometheus.Histogram
}

// NewTopologyCollector registers topology metrics against the provided
// registerer.
func NewTopologyCollector(reg prometheus.Registerer) (*TopologyCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	components, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsn_components",
		Help: "Number of connected components over bidirectional links.",
	}), "wsn_components")
	if err != nil {
		return nil, err
	}
	largest, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsn_largest_component_nodes",
		Help: "Size of the largest connected component.",
	}), "wsn_largest_component_nodes")
	if err != nil {
		return nil, err
	}
	isolated, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsn_isolated_nodes",
		Help: "Nodes without any bidirectional link.",
	}), "wsn_isolated_nodes")
	if err != nil {
		return nil, err
	}
	analysis, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wsn_topology_analysis_duration_seconds",
		Help:    "Duration of connectivity graph construction and analysis.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "wsn_topology_analysis_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &TopologyCollector{
		Components:       components,
		LargestComponent: largest,
		IsolatedNodes:    isolated,
		AnalysisDuration: analysis,
	}, nil
}

// SetComponents updates the gauges from a component partition.
func (c *TopologyCollector) SetComponents(components [][]int) {
	if c == nil {
		return
	}
	largest, isolated := 0, 0
	for _, comp := range components {
		if len(comp) > largest {
			largest = len(comp)
		}
		if len(comp) == 1 {
			isolated++
		}
	}
	c.Components.Set(float64(len(components)))
	c.LargestComponent.Set(float64(largest))
	c.IsolatedNodes.Set(float64(isolated))
}

// ObserveAnalysis records how long a topology analysis took.
func (c *TopologyCollector) ObserveAnalysis(d time.Duration) {
	if c == nil || c.AnalysisDuration == nil {
		return
	}
	c.AnalysisDuration.Observe(d.Seconds())
}
