package core

import (
	"context"
	"iter"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/kb"
	"github.com/signalsfoundry/wsn-simulator/model"
)

// seedStream is the PCG stream selector paired with EngineConfig.Seed.
const seedStream = 0x9e3779b97f4a7c15

// EngineConfig holds the construction parameters of a NetworkEngine.
// Distances are kilometres.
type EngineConfig struct {
	NodeCount  int
	Dimensions model.Dimensions

	Loss  string  // "FSPL" (default) or "LNPL"
	Sigma float64 // LNPL shadowing, dB
	Gamma float64 // LNPL exponent, 0 means DefaultGamma
	D0    float64 // LNPL reference distance, 0 means DefaultD0Km

	Radio string // registry profile name, "" means kb.ProfileDefault

	// Seed seeds placement and shadowing when no WithSource option is
	// given.
	Seed uint64
}

// EngineOption customises a NetworkEngine.
type EngineOption func(*NetworkEngine)

// WithMobility replaces the default fixed-displacement policy.
func WithMobility(m MobilityPolicy) EngineOption {
	return func(e *NetworkEngine) {
		if m != nil {
			e.mobility = m
		}
	}
}

// WithSource supplies the random source used for node placement and
// shadowing draws. It takes precedence over EngineConfig.Seed.
func WithSource(src rand.Source) EngineOption {
	return func(e *NetworkEngine) { e.src = src }
}

// WithRegistry resolves EngineConfig.Radio against reg instead of
// kb.Default().
func WithRegistry(reg *kb.Registry) EngineOption {
	return func(e *NetworkEngine) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// WithLogger attaches a logger for construction and per-step debug
// records.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *NetworkEngine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStepListener registers fn to be called with every published
// result, in registration order.
func WithStepListener(fn func(*StepResult)) EngineOption {
	return func(e *NetworkEngine) {
		if fn != nil {
			e.listeners = append(e.listeners, fn)
		}
	}
}

// NetworkEngine owns a fixed set of sensor nodes and advances them one
// step at a time. Step is the only writer; Latest may be read from any
// goroutine.
type NetworkEngine struct {
	stepMu sync.Mutex

	nodes        []*SensorNode
	dims         model.Dimensions
	model        PropagationModel
	connectivity *ConnectivityService
	mobility     MobilityPolicy
	registry     *kb.Registry
	src          rand.Source
	log          logging.Logger
	listeners    []func(*StepResult)

	steps  atomic.Int64
	latest atomic.Pointer[StepResult]
}

// NewNetworkEngine validates cfg and places cfg.NodeCount nodes
// uniformly at random inside the area, each transmitting at its
// profile's maximum power.
func NewNetworkEngine(cfg EngineConfig, opts ...EngineOption) (*NetworkEngine, error) {
	e := &NetworkEngine{
		dims:     cfg.Dimensions,
		mobility: DefaultMobility(),
		registry: kb.Default(),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.NodeCount < 0 {
		return nil, &ConfigurationError{Field: "node_count", Value: cfg.NodeCount, Reason: "must be >= 0"}
	}
	if !validExtent(cfg.Dimensions.Width) || !validExtent(cfg.Dimensions.Height) {
		return nil, &ConfigurationError{
			Field:  "dimensions",
			Value:  [2]float64{cfg.Dimensions.Width, cfg.Dimensions.Height},
			Reason: "width and height must be finite and > 0",
		}
	}

	radio := cfg.Radio
	if strings.TrimSpace(radio) == "" {
		radio = kb.ProfileDefault
	}
	profile, err := e.registry.Lookup(radio)
	if err != nil {
		return nil, &ConfigurationError{Field: "radio", Value: radio, Err: err}
	}

	if e.src == nil {
		e.src = rand.NewPCG(cfg.Seed, seedStream)
	}

	loss := cfg.Loss
	if strings.TrimSpace(loss) == "" {
		loss = ModelFreeSpace
	}
	pm, err := NewPropagationModel(loss, PropagationParams{Sigma: cfg.Sigma, Gamma: cfg.Gamma, D0: cfg.D0}, e.src)
	if err != nil {
		return nil, err
	}
	e.model = pm
	e.connectivity = NewConnectivityService(pm)

	rng := rand.New(e.src)
	e.nodes = make([]*SensorNode, cfg.NodeCount)
	for i := range e.nodes {
		e.nodes[i] = NewSensorNode(i, profile, randomPosition(rng, cfg.Dimensions))
		e.log.Debug(context.Background(), "node placed",
			logging.Node(i), logging.Position("position", e.nodes[i].Position()))
	}

	e.log.Info(context.Background(), "network engine initialised",
		logging.Int("nodes", cfg.NodeCount),
		logging.Float64("width_km", cfg.Dimensions.Width),
		logging.Float64("height_km", cfg.Dimensions.Height),
		logging.String("loss", pm.Name()),
		logging.String("radio", profile.Name),
	)
	return e, nil
}

func validExtent(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Step moves every node under the mobility policy, then recomputes the
// full link matrix from the post-move state and publishes it. Step
// listeners run after the step lock is released, so a listener may
// advance the engine itself.
func (e *NetworkEngine) Step() *StepResult {
	res := e.advance()
	for _, fn := range e.listeners {
		fn(res)
	}
	return res
}

func (e *NetworkEngine) advance() *StepResult {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()

	start := time.Now()
	for _, n := range e.nodes {
		n.SetPosition(e.mobility.Move(n.id, n.Position(), e.dims))
	}

	states := make([]radioState, len(e.nodes))
	res := &StepResult{
		Step:      int(e.steps.Load()),
		Positions: make([]model.Position, len(e.nodes)),
	}
	for i, n := range e.nodes {
		states[i] = captureRadioState(n)
		res.Positions[i] = states[i].position
	}
	e.connectivity.UpdateConnectivity(res, states)

	e.latest.Store(res)
	e.steps.Add(1)

	e.log.Debug(context.Background(), "step complete",
		logging.Step(res.Step),
		logging.Int("links_up", res.UpLinks()),
		logging.Duration("duration", time.Since(start)),
	)
	return res
}

// Steps returns the engine as an unbounded sequence of step results.
// Every pull advances the simulation; the sequence cannot be rewound
// and ends only when the consumer stops ranging.
func (e *NetworkEngine) Steps() iter.Seq2[int, *StepResult] {
	return func(yield func(int, *StepResult) bool) {
		for {
			res := e.Step()
			if !yield(res.Step, res) {
				return
			}
		}
	}
}

// Latest returns the most recently published result, or nil before the
// first step.
func (e *NetworkEngine) Latest() *StepResult { return e.latest.Load() }

// StepCount returns the number of completed steps.
func (e *NetworkEngine) StepCount() int { return int(e.steps.Load()) }

// Nodes returns the engine's nodes in ID order. The slice is a copy; the
// nodes are shared.
func (e *NetworkEngine) Nodes() []*SensorNode {
	out := make([]*SensorNode, len(e.nodes))
	copy(out, e.nodes)
	return out
}

// Node returns node i, or nil when i is out of range.
func (e *NetworkEngine) Node(i int) *SensorNode {
	if i < 0 || i >= len(e.nodes) {
		return nil
	}
	return e.nodes[i]
}

func (e *NetworkEngine) Dimensions() model.Dimensions { return e.dims }

func (e *NetworkEngine) Model() PropagationModel { return e.model }

func (e *NetworkEngine) Mobility() MobilityPolicy { return e.mobility }
