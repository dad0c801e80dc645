package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/wsn-simulator/model"
)

func newScenarioEngine(t *testing.T) *NetworkEngine {
	t.Helper()
	e, err := NewNetworkEngine(EngineConfig{NodeCount: 3, Dimensions: square15, Seed: 4}, WithMobility(Static{}))
	if err != nil {
		t.Fatalf("NewNetworkEngine: %v", err)
	}
	return e
}

func TestLoadScenario_AppliesPlacement(t *testing.T) {
	e := newScenarioEngine(t)
	before := e.Node(1).Position()

	scenario, err := LoadScenario(e, strings.NewReader(`{
  "nodes": [
    {"id": 0, "x": 1.5, "y": 2, "tx_power": 5},
    {"id": 2, "x": 6, "y": 2},
    {"id": 1, "tx_power": -15}
  ]
}`))
	if err != nil {
		t.Fatalf("LoadScenario returned error: %v", err)
	}

	if scenario.NodeCount != 3 {
		t.Fatalf("NodeCount = %d, want 3", scenario.NodeCount)
	}
	if len(scenario.Placed) != 2 || scenario.Placed[0] != 0 || scenario.Placed[1] != 2 {
		t.Fatalf("Placed = %v, want [0 2]", scenario.Placed)
	}
	if len(scenario.Retuned) != 2 || scenario.Retuned[0] != 0 || scenario.Retuned[1] != 1 {
		t.Fatalf("Retuned = %v, want [0 1]", scenario.Retuned)
	}

	if p := e.Node(0).Position(); p != (model.Position{X: 1.5, Y: 2}) {
		t.Fatalf("node 0 at %v", p)
	}
	if e.Node(0).TxPower() != 5 || e.Node(1).TxPower() != -15 || e.Node(2).TxPower() != 27 {
		t.Fatalf("tx powers = %v/%v/%v", e.Node(0).TxPower(), e.Node(1).TxPower(), e.Node(2).TxPower())
	}
	if e.Node(1).Position() != before {
		t.Fatalf("node 1 should keep its position")
	}

	res := e.Step()
	if res.Positions[2] != (model.Position{X: 6, Y: 2}) {
		t.Fatalf("step should start from loaded positions, got %v", res.Positions[2])
	}
}

func TestLoadScenario_RejectsWithoutSideEffects(t *testing.T) {
	cases := map[string]string{
		"unknown id":    `{"nodes": [{"id": 0, "x": 1, "y": 1}, {"id": 7, "x": 1, "y": 1}]}`,
		"duplicate id":  `{"nodes": [{"id": 0, "x": 1, "y": 1}, {"id": 0, "x": 2, "y": 2}]}`,
		"half position": `{"nodes": [{"id": 0, "x": 1, "y": 1}, {"id": 1, "x": 1}]}`,
		"unknown field": `{"nodes": [{"id": 0, "x": 1, "y": 1, "z": 3}]}`,
		"malformed":     `{"nodes": [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			e := newScenarioEngine(t)
			before := e.Node(0).Position()
			if _, err := LoadScenario(e, strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error")
			}
			if e.Node(0).Position() != before {
				t.Fatalf("failed load moved node 0")
			}
		})
	}
}

func TestLoadScenario_OutOfRangeTxPower(t *testing.T) {
	e := newScenarioEngine(t)
	_, err := LoadScenario(e, strings.NewReader(`{"nodes": [{"id": 0, "tx_power": 10}, {"id": 1, "tx_power": 40}]}`))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}
	var oor *OutOfRangeError
	if !errors.As(err, &oor) || oor.NodeID != 1 {
		t.Fatalf("error detail = %#v", err)
	}
	if e.Node(0).TxPower() != 27 {
		t.Fatalf("node 0 tx power changed to %v", e.Node(0).TxPower())
	}
}

func TestLoadScenario_NilEngine(t *testing.T) {
	if _, err := LoadScenario(nil, strings.NewReader(`{}`)); err == nil {
		t.Fatalf("expected error for nil engine")
	}
}
