package sim

import (
	"math"
	"testing"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/model"
)

func TestTelemetryState_Update(t *testing.T) {
	ts := NewTelemetryState()
	if ts.Get(0) != nil {
		t.Fatalf("expected no telemetry before the first update")
	}

	e, err := core.NewNetworkEngine(core.EngineConfig{NodeCount: 3, Dimensions: model.Dimensions{Width: 50, Height: 50}},
		core.WithMobility(core.Static{}))
	if err != nil {
		t.Fatalf("NewNetworkEngine: %v", err)
	}
	e.Node(0).SetPosition(model.Position{X: 0, Y: 0})
	e.Node(1).SetPosition(model.Position{X: 4, Y: 0})
	e.Node(2).SetPosition(model.Position{X: 40, Y: 0})

	ts.Update(e.Step())
	if err := e.Node(1).SetTxPower(-15); err != nil {
		t.Fatalf("SetTxPower: %v", err)
	}
	ts.Update(e.Step())

	first := ts.Get(0)
	if first.Heard != 0 || first.Reaches != 1 {
		t.Fatalf("node 0 heard/reaches = %d/%d, want 0/1", first.Heard, first.Reaches)
	}
	if !math.IsInf(first.BestMarginDB, -1) {
		t.Fatalf("node 0 best margin = %v, want -Inf", first.BestMarginDB)
	}
	if first.Steps != 2 || first.Availability() != 0.5 {
		t.Fatalf("node 0 steps/availability = %d/%v, want 2/0.5", first.Steps, first.Availability())
	}

	second := ts.Get(1)
	if second.Heard != 1 || second.BestMarginDB <= 0 {
		t.Fatalf("node 1 = %+v", second)
	}

	isolated := ts.Get(2)
	if isolated.Availability() != 0 || isolated.Position != (model.Position{X: 40, Y: 0}) {
		t.Fatalf("node 2 = %+v", isolated)
	}

	all := ts.ListAll()
	if len(all) != 3 || all[0].NodeID != 0 || all[2].NodeID != 2 {
		t.Fatalf("ListAll = %+v", all)
	}

	// Returned entries are copies.
	first.Heard = 99
	if ts.Get(0).Heard == 99 {
		t.Fatalf("Get leaked internal state")
	}

	ts.Update(nil)
	if (NodeTelemetry{}).Availability() != 0 {
		t.Fatalf("zero telemetry should report zero availability")
	}
}
