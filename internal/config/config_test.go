package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/kb"
	"github.com/signalsfoundry/wsn-simulator/model"
)

const yamlDoc = `
nodes: 12
area: {width: 5, height: 3}
loss: lnpl
sigma: 0
gamma: 3
radio: cc1101
seed: 99
radios:
  - name: cc1101
    min_tx_power: -30
    max_tx_power: 10
    rx_sensitivity: -104
    frequency: 868000000
mobility:
  policy: random-walk
  max_step: 0.25
  stream: walk
run:
  steps: 7
  tick: 0s
  mode: accelerated
  log_every: 2
tracing:
  exporter: otlp
  endpoint: collector:4317
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 20, cfg.Nodes)
	require.Equal(t, core.ModelFreeSpace, cfg.Loss)
	require.True(t, cfg.Run.Accelerated())
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "sim.yaml", yamlDoc))
	require.NoError(t, err)

	require.Equal(t, 12, cfg.Nodes)
	require.Equal(t, 5.0, cfg.Area.Width)
	require.Equal(t, 3.0, cfg.Gamma)
	require.Equal(t, core.DefaultD0Km, cfg.D0, "unset fields keep their defaults")
	require.Equal(t, uint64(99), cfg.SeedValue(time.Now()))
	require.Equal(t, 7, cfg.Run.Steps)
	require.Len(t, cfg.Radios, 1)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "otlp", cfg.Tracing.Exporter)
	require.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	require.Equal(t, 1.0, cfg.Tracing.SampleRatio, "unset tracing fields keep their defaults")

	ec := cfg.EngineConfig(cfg.SeedValue(time.Now()))
	require.Equal(t, 12, ec.NodeCount)
	require.Equal(t, "lnpl", ec.Loss)
	require.Equal(t, uint64(99), ec.Seed)

	opts, err := cfg.EngineOptions(logging.Noop())
	require.NoError(t, err)

	e, err := core.NewNetworkEngine(ec, opts...)
	require.NoError(t, err)
	require.Equal(t, "CC1101", e.Node(0).Profile().Name)
	require.Equal(t, 868e6, e.Node(0).Frequency())
	require.IsType(t, &core.RandomWalk{}, e.Mobility())

	for i := 0; i < 5; i++ {
		res := e.Step()
		for _, p := range res.Positions {
			require.True(t, p.X >= 0 && p.X <= 5 && p.Y >= 0 && p.Y <= 3, "position %v", p)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "sim.json", `{"nodes": 4, "loss": "FSPL", "mobility": {"policy": "static"}, "run": {"mode": "realtime", "tick": "250ms"}}`))
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Nodes)
	require.Equal(t, 15.0, cfg.Area.Height)
	require.Nil(t, cfg.Seed)
	require.False(t, cfg.Run.Accelerated())

	tick, err := cfg.Run.TickDuration()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, tick)

	policy, err := cfg.MobilityPolicy()
	require.NoError(t, err)
	require.Equal(t, core.Static{}, policy)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.json", `{"nodes": "many"}`))
	require.ErrorContains(t, err, "decode config")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Nodes = -2
	cfg.Area.Width = 0
	cfg.Loss = "OKUMURA"
	cfg.Sigma = -1
	cfg.Mobility.Policy = "teleport"
	cfg.Run.Tick = "soon"
	cfg.Run.Mode = "turbo"
	cfg.Gamma = math.Inf(1)
	cfg.Tracing.SampleRatio = 2

	err := cfg.Validate()
	require.ErrorIs(t, err, core.ErrConfiguration)
	for _, want := range []string{"nodes", "area", "OKUMURA", "sigma", "gamma", "teleport", "run.tick", "turbo", "tracing.sample_ratio"} {
		require.ErrorContains(t, err, want)
	}
}

func TestValidateAgreesWithEngine(t *testing.T) {
	cfg := Default()
	cfg.Loss = core.ModelFreeSpace
	cfg.Gamma = -1

	require.ErrorIs(t, cfg.Validate(), core.ErrConfiguration)
	_, err := core.NewNetworkEngine(cfg.EngineConfig(1))
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestRegistryRejectsBadProfiles(t *testing.T) {
	cfg := Default()
	cfg.Radios = []model.RadioProfile{kbProfile("default")}

	_, err := cfg.Registry()
	require.ErrorIs(t, err, kb.ErrProfileExists)

	cfg.Radios = []model.RadioProfile{{Name: "broken", MinTxPowerDBm: 5, MaxTxPowerDBm: 1, FrequencyHz: 1}}
	_, err = cfg.Registry()
	require.ErrorIs(t, err, kb.ErrProfileInvalid)
}

func TestWriteToFileRoundTrip(t *testing.T) {
	seed := uint64(5)
	cfg := Default()
	cfg.Seed = &seed
	cfg.Radio = "esp32-wroom-32u"

	for _, name := range []string{"out.yaml", "out.json"} {
		p := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.WriteToFile(p))

		got, err := Load(p)
		require.NoError(t, err)
		require.Equal(t, cfg, got, name)
	}
}

func kbProfile(name string) model.RadioProfile {
	return model.RadioProfile{Name: name, MinTxPowerDBm: 0, MaxTxPowerDBm: 1, FrequencyHz: 1}
}
