package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Scenario summarises what LoadScenario applied to an engine.
type Scenario struct {
	Placed    []int // nodes whose position was set
	Retuned   []int // nodes whose tx power was set
	NodeCount int
}

// internal JSON shapes, unexported so the document can evolve.
type scenarioJSON struct {
	Nodes []scenarioNodeJSON `json:"nodes"`
}

type scenarioNodeJSON struct {
	ID      int      `json:"id"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	TxPower *float64 `json:"tx_power"`
}

// LoadScenario reads a JSON placement document from r and applies the
// explicit positions and transmit powers it lists to e's nodes:
//
//	{"nodes": [{"id": 0, "x": 1.5, "y": 2, "tx_power": 5}]}
//
// Entries may omit either the coordinates or the tx power. The whole
// document is validated before any node is touched, so a failed load
// leaves the engine unchanged.
func LoadScenario(e *NetworkEngine, r io.Reader) (*Scenario, error) {
	if e == nil {
		return nil, fmt.Errorf("LoadScenario: engine is nil")
	}

	var payload scenarioJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	seen := make(map[int]bool, len(payload.Nodes))
	for _, jn := range payload.Nodes {
		n := e.Node(jn.ID)
		if n == nil {
			return nil, fmt.Errorf("LoadScenario: unknown node id %d (have %d nodes)", jn.ID, len(e.nodes))
		}
		if seen[jn.ID] {
			return nil, fmt.Errorf("LoadScenario: node %d listed twice", jn.ID)
		}
		seen[jn.ID] = true
		if (jn.X == nil) != (jn.Y == nil) {
			return nil, fmt.Errorf("LoadScenario: node %d: x and y must be given together", jn.ID)
		}
		if jn.TxPower != nil && !n.profile.InTxRange(*jn.TxPower) {
			return nil, fmt.Errorf("LoadScenario: %w", &OutOfRangeError{
				NodeID: jn.ID,
				Value:  *jn.TxPower,
				Min:    n.profile.MinTxPowerDBm,
				Max:    n.profile.MaxTxPowerDBm,
			})
		}
	}

	result := &Scenario{NodeCount: len(e.nodes)}
	for _, jn := range payload.Nodes {
		n := e.nodes[jn.ID]
		if jn.X != nil {
			n.SetPosition(model.Position{X: *jn.X, Y: *jn.Y})
			result.Placed = append(result.Placed, jn.ID)
		}
		if jn.TxPower != nil {
			if err := n.SetTxPower(*jn.TxPower); err != nil {
				return nil, fmt.Errorf("LoadScenario: %w", err)
			}
			result.Retuned = append(result.Retuned, jn.ID)
		}
	}
	return result, nil
}
