package core

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Distance returns the Euclidean distance between two positions, in
// kilometres.
func Distance(a, b model.Position) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// randomPosition draws a point uniformly inside [0,Width) x [0,Height).
func randomPosition(rng *rand.Rand, dims model.Dimensions) model.Position {
	return model.Position{
		X: rng.Float64() * dims.Width,
		Y: rng.Float64() * dims.Height,
	}
}

// reflect folds v back into [0, limit] by mirroring at both edges.
func reflect(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	period := 2 * limit
	v = math.Mod(v, period)
	if v < 0 {
		v += period
	}
	if v > limit {
		v = period - v
	}
	return v
}
