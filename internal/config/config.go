// Package config loads simulator settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/iti/rngstream"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/kb"
	"github.com/signalsfoundry/wsn-simulator/model"
)

// Run modes accepted by RunConfig.Mode.
const (
	ModeRealTime    = "realtime"
	ModeAccelerated = "accelerated"
)

// Config is the on-disk description of a simulation.
type Config struct {
	Nodes int              `yaml:"nodes" json:"nodes"`
	Area  model.Dimensions `yaml:"area" json:"area"`

	Loss  string  `yaml:"loss" json:"loss"`
	Sigma float64 `yaml:"sigma" json:"sigma"`
	Gamma float64 `yaml:"gamma" json:"gamma"`
	D0    float64 `yaml:"d0" json:"d0"`

	Radio  string               `yaml:"radio" json:"radio"`
	Radios []model.RadioProfile `yaml:"radios,omitempty" json:"radios,omitempty"`

	// Seed fixes placement and shadowing. Nil picks one from the clock.
	Seed *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	Mobility MobilityConfig              `yaml:"mobility" json:"mobility"`
	Run      RunConfig                   `yaml:"run" json:"run"`
	Tracing  observability.TracingConfig `yaml:"tracing" json:"tracing"`
}

// MobilityConfig selects and parameterises the mobility policy.
type MobilityConfig struct {
	Policy  string  `yaml:"policy" json:"policy"`
	DX      float64 `yaml:"dx,omitempty" json:"dx,omitempty"`
	DY      float64 `yaml:"dy,omitempty" json:"dy,omitempty"`
	MaxStep float64 `yaml:"max_step,omitempty" json:"max_step,omitempty"`
	// Stream names the random number stream of the random walk.
	Stream string `yaml:"stream,omitempty" json:"stream,omitempty"`
}

// RunConfig controls the runner.
type RunConfig struct {
	Steps    int    `yaml:"steps" json:"steps"` // 0 runs until interrupted
	Tick     string `yaml:"tick" json:"tick"`   // wall-clock pacing in realtime mode
	Mode     string `yaml:"mode" json:"mode"`
	LogEvery int    `yaml:"log_every" json:"log_every"`
}

// Default returns the configuration of the reference 15 km field with
// 20 DEFAULT radios under free-space loss.
func Default() Config {
	return Config{
		Nodes:    20,
		Area:     model.Dimensions{Width: 15, Height: 15},
		Loss:     core.ModelFreeSpace,
		Gamma:    core.DefaultGamma,
		D0:       core.DefaultD0Km,
		Radio:    kb.ProfileDefault,
		Mobility: MobilityConfig{Policy: core.MobilityFixed, Stream: "mobility"},
		Run: RunConfig{
			Steps:    100,
			Tick:     "100ms",
			Mode:     ModeAccelerated,
			LogEvery: 10,
		},
		Tracing: observability.DefaultTracingConfig(),
	}
}

func useYAML(filename string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Load reads filename over the defaults. Serialization is selected by
// extension: .yaml and .yml are YAML, anything else JSON.
func Load(filename string) (Config, error) {
	dict, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(dict, useYAML(filename))
}

// Parse decodes a configuration document over the defaults and
// validates it.
func Parse(dict []byte, asYAML bool) (Config, error) {
	cfg := Default()
	var err error
	if asYAML {
		err = yaml.Unmarshal(dict, &cfg)
	} else {
		err = json.Unmarshal(dict, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteToFile stores the configuration in filename, as YAML or JSON by
// extension.
func (c Config) WriteToFile(filename string) error {
	var (
		data []byte
		err  error
	)
	if useYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "\t")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var errs []error
	if c.Nodes < 0 {
		errs = append(errs, fmt.Errorf("nodes must be >= 0, got %d", c.Nodes))
	}
	if c.Area.Width <= 0 || c.Area.Height <= 0 {
		errs = append(errs, fmt.Errorf("area must be positive, got %gx%g km", c.Area.Width, c.Area.Height))
	}
	if !slices.Contains(core.ModelNames, strings.ToUpper(strings.TrimSpace(c.Loss))) {
		errs = append(errs, fmt.Errorf("loss %q is not one of %s", c.Loss, strings.Join(core.ModelNames, ", ")))
	}
	if !(c.Sigma >= 0) || math.IsInf(c.Sigma, 1) {
		errs = append(errs, fmt.Errorf("sigma must be finite and >= 0, got %g", c.Sigma))
	}
	if !(c.Gamma >= 0) || !(c.D0 >= 0) || math.IsInf(c.Gamma, 1) || math.IsInf(c.D0, 1) {
		errs = append(errs, fmt.Errorf("gamma and d0 must be finite and > 0, got %g and %g", c.Gamma, c.D0))
	}
	if p := strings.ToLower(strings.TrimSpace(c.Mobility.Policy)); p != "" && !slices.Contains(core.MobilityNames, p) {
		errs = append(errs, fmt.Errorf("mobility policy %q is not one of %s", c.Mobility.Policy, strings.Join(core.MobilityNames, ", ")))
	}
	if c.Run.Steps < 0 {
		errs = append(errs, fmt.Errorf("run.steps must be >= 0, got %d", c.Run.Steps))
	}
	if c.Run.LogEvery < 0 {
		errs = append(errs, fmt.Errorf("run.log_every must be >= 0, got %d", c.Run.LogEvery))
	}
	if _, err := c.Run.TickDuration(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Run.Mode) {
	case "", ModeRealTime, ModeAccelerated:
	default:
		errs = append(errs, fmt.Errorf("run.mode %q is not one of %s, %s", c.Run.Mode, ModeRealTime, ModeAccelerated))
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", core.ErrConfiguration, errors.Join(errs...))
}

// TickDuration parses Tick. An empty tick means no pacing.
func (r RunConfig) TickDuration() (time.Duration, error) {
	if r.Tick == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Tick)
	if err != nil {
		return 0, fmt.Errorf("run.tick: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("run.tick must be >= 0, got %s", r.Tick)
	}
	return d, nil
}

// Accelerated reports whether the run ignores wall-clock pacing.
func (r RunConfig) Accelerated() bool {
	return strings.ToLower(r.Mode) != ModeRealTime
}

// SeedValue returns the configured seed, or one derived from now.
func (c Config) SeedValue(now time.Time) uint64 {
	if c.Seed != nil {
		return *c.Seed
	}
	return uint64(now.UnixNano())
}

// EngineConfig converts c into core construction parameters.
func (c Config) EngineConfig(seed uint64) core.EngineConfig {
	return core.EngineConfig{
		NodeCount:  c.Nodes,
		Dimensions: c.Area,
		Loss:       c.Loss,
		Sigma:      c.Sigma,
		Gamma:      c.Gamma,
		D0:         c.D0,
		Radio:      c.Radio,
		Seed:       seed,
	}
}

// Registry returns the builtin radio profiles extended with c.Radios.
func (c Config) Registry() (*kb.Registry, error) {
	reg := kb.NewRegistryWithBuiltins()
	for _, p := range c.Radios {
		if err := reg.Add(p); err != nil {
			return nil, fmt.Errorf("radios: %w", err)
		}
	}
	return reg, nil
}

// MobilityPolicy builds the configured policy. The random walk draws
// from its own named rngstream stream so it never perturbs placement or
// shadowing.
func (c Config) MobilityPolicy() (core.MobilityPolicy, error) {
	var src core.UniformSource
	if strings.EqualFold(strings.TrimSpace(c.Mobility.Policy), core.MobilityRandomWalk) {
		name := c.Mobility.Stream
		if name == "" {
			name = "mobility"
		}
		src = rngstream.New(name)
	}
	return core.NewMobilityPolicy(c.Mobility.Policy, core.MobilityParams{
		DX:        c.Mobility.DX,
		DY:        c.Mobility.DY,
		MaxStepKm: c.Mobility.MaxStep,
	}, src)
}

// EngineOptions assembles the registry, mobility and logger options for
// core.NewNetworkEngine.
func (c Config) EngineOptions(log logging.Logger) ([]core.EngineOption, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	mobility, err := c.MobilityPolicy()
	if err != nil {
		return nil, err
	}
	return []core.EngineOption{
		core.WithRegistry(reg),
		core.WithMobility(mobility),
		core.WithLogger(log),
	}, nil
}
