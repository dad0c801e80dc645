package core

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Names of the built-in mobility policies.
const (
	MobilityFixed      = "fixed"
	MobilityStatic     = "static"
	MobilityRandomWalk = "random-walk"
)

// MobilityNames lists the mobility policies NewMobilityPolicy accepts.
var MobilityNames = []string{MobilityFixed, MobilityStatic, MobilityRandomWalk}

// DefaultDisplacementKm is the per-axis step of the default policy.
const DefaultDisplacementKm = 0.1

// MobilityPolicy computes a node's next position once per step.
type MobilityPolicy interface {
	Move(id int, pos model.Position, bounds model.Dimensions) model.Position
}

// FixedDisplacement shifts every node by the same vector on every step.
// It ignores the area bounds.
type FixedDisplacement struct {
	DX, DY float64
}

// DefaultMobility returns the engine's default policy.
func DefaultMobility() FixedDisplacement {
	return FixedDisplacement{DX: DefaultDisplacementKm, DY: DefaultDisplacementKm}
}

func (m FixedDisplacement) Move(_ int, pos model.Position, _ model.Dimensions) model.Position {
	return model.Position{X: pos.X + m.DX, Y: pos.Y + m.DY}
}

// Static leaves every node where it is.
type Static struct{}

func (Static) Move(_ int, pos model.Position, _ model.Dimensions) model.Position { return pos }

// UniformSource yields uniform variates on (0,1). *rngstream.RngStream
// satisfies it; RandU01 adapts a math/rand/v2 generator.
type UniformSource interface {
	RandU01() float64
}

type randAdapter struct{ r *rand.Rand }

func (a randAdapter) RandU01() float64 { return a.r.Float64() }

// RandU01 adapts r to a UniformSource.
func RandU01(r *rand.Rand) UniformSource { return randAdapter{r: r} }

// RandomWalk moves each node by a uniformly distributed distance in
// [0, MaxStepKm] along a uniformly distributed heading, mirroring moves
// that would leave the area back inside it.
type RandomWalk struct {
	MaxStepKm float64

	src UniformSource
}

// NewRandomWalk builds a random walk drawing from src.
func NewRandomWalk(maxStepKm float64, src UniformSource) *RandomWalk {
	return &RandomWalk{MaxStepKm: maxStepKm, src: src}
}

func (m *RandomWalk) Move(_ int, pos model.Position, bounds model.Dimensions) model.Position {
	heading := 2 * math.Pi * m.src.RandU01()
	step := m.MaxStepKm * m.src.RandU01()
	return model.Position{
		X: reflect(pos.X+step*math.Cos(heading), bounds.Width),
		Y: reflect(pos.Y+step*math.Sin(heading), bounds.Height),
	}
}

// MobilityParams configures NewMobilityPolicy.
type MobilityParams struct {
	DX, DY    float64 // FixedDisplacement step, km
	MaxStepKm float64 // RandomWalk step bound, km
}

// NewMobilityPolicy chooses a policy by name. An empty name selects the
// default fixed displacement. src is required for the random walk.
func NewMobilityPolicy(name string, params MobilityParams, src UniformSource) (MobilityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MobilityFixed:
		if params.DX == 0 && params.DY == 0 {
			return DefaultMobility(), nil
		}
		return FixedDisplacement{DX: params.DX, DY: params.DY}, nil
	case MobilityStatic:
		return Static{}, nil
	case MobilityRandomWalk:
		if params.MaxStepKm <= 0 {
			return nil, &ConfigurationError{Field: "mobility.max_step", Value: params.MaxStepKm, Reason: "must be > 0"}
		}
		if src == nil {
			return nil, &ConfigurationError{Field: "mobility", Value: name, Reason: "random walk requires a random source"}
		}
		return NewRandomWalk(params.MaxStepKm, src), nil
	default:
		return nil, &ConfigurationError{
			Field:  "mobility",
			Value:  name,
			Valid:  MobilityNames,
			Reason: "unsupported mobility policy",
		}
	}
}
