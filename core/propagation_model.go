package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Names of the supported propagation models.
const (
	ModelFreeSpace   = "FSPL"
	ModelLogDistance = "LNPL"
)

// ModelNames lists the closed set of propagation model names.
var ModelNames = []string{ModelFreeSpace, ModelLogDistance}

const (
	// MinLoss is returned for degenerate, near-zero link distances.
	MinLoss = 0.0

	// minDistanceKm is the distance at or below which free-space loss
	// collapses to MinLoss instead of diverging to -Inf.
	minDistanceKm = 0.01

	// fsplConstantDB is the Friis constant for kilometres and megahertz.
	fsplConstantDB = 32.44

	DefaultGamma = 2.0
	DefaultD0Km  = 1.0
)

// PropagationModel maps a link distance and carrier frequency to a path
// loss. Distances are in kilometres, frequencies in Hz, losses in dB.
type PropagationModel interface {
	Name() string
	Loss(distanceKm, frequencyHz float64) float64
}

// PropagationParams configures the log-distance model. Zero Gamma and
// D0 select DefaultGamma and DefaultD0Km. FreeSpace ignores them.
type PropagationParams struct {
	Sigma float64 // shadowing standard deviation, dB
	Gamma float64 // path-loss exponent
	D0    float64 // reference distance, km
}

// NewPropagationModel builds the model registered under name (matched
// case-insensitively). params are validated for every model. src feeds
// the shadowing draws of the log-distance model and is required when
// Sigma > 0.
func NewPropagationModel(name string, params PropagationParams, src rand.Source) (PropagationModel, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case ModelFreeSpace:
		if _, err := params.validate(); err != nil {
			return nil, err
		}
		return FreeSpace{}, nil
	case ModelLogDistance:
		return NewLogDistance(params, src)
	default:
		return nil, &ConfigurationError{
			Field:  "loss",
			Value:  name,
			Valid:  ModelNames,
			Reason: "unsupported propagation model",
		}
	}
}

// FreeSpace is the Friis free-space path loss model:
//
//	L = 32.44 + 20 log10(f_MHz) + 20 log10(d_km)
type FreeSpace struct{}

func (FreeSpace) Name() string { return ModelFreeSpace }

// Loss returns MinLoss for distances at or below 10 m.
func (FreeSpace) Loss(distanceKm, frequencyHz float64) float64 {
	return freeSpaceLoss(distanceKm, frequencyHz)
}

func freeSpaceLoss(distanceKm, frequencyHz float64) float64 {
	if distanceKm <= minDistanceKm {
		return MinLoss
	}
	return fsplConstantDB + 20*math.Log10(frequencyHz/1e6) + 20*math.Log10(distanceKm)
}

// LogDistance is the log-normal shadowing model:
//
//	L = FSPL(d0, f) + 10 gamma log10(d/d0) + N(0, sigma)   for d > d0
//	L = FSPL(d, f)                                          otherwise
//
// With Sigma > 0 every call consumes a fresh normal draw, so Loss is
// neither deterministic nor idempotent unless the source is seeded.
type LogDistance struct {
	D0    float64
	Gamma float64
	Sigma float64

	shadow distuv.Normal
}

func (p PropagationParams) validate() (PropagationParams, error) {
	if p.Gamma == 0 {
		p.Gamma = DefaultGamma
	}
	if p.D0 == 0 {
		p.D0 = DefaultD0Km
	}
	switch {
	case !(p.Sigma >= 0) || math.IsInf(p.Sigma, 1):
		return p, &ConfigurationError{Field: "sigma", Value: p.Sigma, Reason: "must be finite and >= 0"}
	case !(p.Gamma > 0) || math.IsInf(p.Gamma, 1):
		return p, &ConfigurationError{Field: "gamma", Value: p.Gamma, Reason: "must be finite and > 0"}
	case !(p.D0 > 0) || math.IsInf(p.D0, 1):
		return p, &ConfigurationError{Field: "d0", Value: p.D0, Reason: "must be finite and > 0"}
	}
	return p, nil
}

// NewLogDistance validates params and binds the shadowing source.
func NewLogDistance(params PropagationParams, src rand.Source) (*LogDistance, error) {
	params, err := params.validate()
	if err != nil {
		return nil, err
	}
	if params.Sigma > 0 && src == nil {
		return nil, &ConfigurationError{Field: "sigma", Value: params.Sigma, Reason: "shadowing requires a random source"}
	}

	return &LogDistance{
		D0:     params.D0,
		Gamma:  params.Gamma,
		Sigma:  params.Sigma,
		shadow: distuv.Normal{Mu: 0, Sigma: params.Sigma, Src: src},
	}, nil
}

func (m *LogDistance) Name() string { return ModelLogDistance }

func (m *LogDistance) Loss(distanceKm, frequencyHz float64) float64 {
	if distanceKm <= m.D0 {
		return freeSpaceLoss(distanceKm, frequencyHz)
	}
	loss := freeSpaceLoss(m.D0, frequencyHz) + 10*m.Gamma*math.Log10(distanceKm/m.D0)
	if m.Sigma > 0 {
		loss += m.shadow.Rand()
	}
	return loss
}

func (m *LogDistance) String() string {
	return fmt.Sprintf("%s(d0=%g km, gamma=%g, sigma=%g dB)", ModelLogDistance, m.D0, m.Gamma, m.Sigma)
}

// PathLossTable evaluates m at every distance of a sweep for a single
// carrier frequency.
func PathLossTable(m PropagationModel, distancesKm []float64, frequencyHz float64) []float64 {
	out := make([]float64, len(distancesKm))
	for i, d := range distancesKm {
		out[i] = m.Loss(d, frequencyHz)
	}
	return out
}
