package sim

import (
	"math"
	"slices"
	"sync"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/model"
)

// NodeTelemetry is the per-node view of the most recent step plus
// counters accumulated over the run.
type NodeTelemetry struct {
	NodeID   int
	Position model.Position

	// Heard is the number of transmitters the node received in the last
	// step; Reaches the number of receivers that heard it.
	Heard   int
	Reaches int

	// BestMarginDB is the strongest inbound margin of the last step, or
	// -Inf when nothing was heard.
	BestMarginDB float64

	Steps          uint64
	ConnectedSteps uint64 // steps with at least one inbound link
}

// Availability is the share of steps in which the node heard anyone.
func (n NodeTelemetry) Availability() float64 {
	if n.Steps == 0 {
		return 0
	}
	return float64(n.ConnectedSteps) / float64(n.Steps)
}

// TelemetryState is a concurrency-safe store of node telemetry.
type TelemetryState struct {
	mu     sync.RWMutex
	byNode map[int]*NodeTelemetry
}

// NewTelemetryState creates an empty store.
func NewTelemetryState() *TelemetryState {
	return &TelemetryState{byNode: make(map[int]*NodeTelemetry)}
}

// Update folds a step result into the store.
func (t *TelemetryState) Update(res *core.StepResult) {
	if res == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := res.Size()
	for i := 0; i < n; i++ {
		m, ok := t.byNode[i]
		if !ok {
			m = &NodeTelemetry{NodeID: i}
			t.byNode[i] = m
		}
		m.Position = res.Positions[i]
		m.Heard, m.Reaches = 0, 0
		m.BestMarginDB = math.Inf(-1)
		for j := 0; j < n; j++ {
			if res.Status[i][j] == model.LinkUp {
				m.Heard++
				m.BestMarginDB = math.Max(m.BestMarginDB, res.Margin[i][j])
			}
			if res.Status[j][i] == model.LinkUp {
				m.Reaches++
			}
		}
		m.Steps++
		if m.Heard > 0 {
			m.ConnectedSteps++
		}
	}
}

// Get returns a copy of node id's telemetry, or nil when unknown.
func (t *TelemetryState) Get(id int) *NodeTelemetry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.byNode[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// ListAll returns copies of every entry ordered by node ID.
func (t *TelemetryState) ListAll() []NodeTelemetry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]NodeTelemetry, 0, len(t.byNode))
	for _, v := range t.byNode {
		out = append(out, *v)
	}
	slices.SortFunc(out, func(a, b NodeTelemetry) int { return a.NodeID - b.NodeID })
	return out
}
