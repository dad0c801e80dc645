package core

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

const mhz933 = 933e6

func TestFreeSpaceReferenceValue(t *testing.T) {
	got := FreeSpace{}.Loss(10, mhz933)
	if scalar.Round(got, 2) != 111.84 {
		t.Fatalf("FSPL(10 km, 933 MHz) = %.4f, want 111.84", got)
	}
}

func TestFreeSpaceMinimumDistance(t *testing.T) {
	for _, d := range []float64{0, 0.005, 0.01} {
		if got := (FreeSpace{}).Loss(d, mhz933); got != MinLoss {
			t.Errorf("FSPL(%v km) = %v, want MinLoss", d, got)
		}
	}
	if got := (FreeSpace{}).Loss(0.0101, mhz933); got <= MinLoss {
		t.Errorf("FSPL just above the threshold should be positive, got %v", got)
	}
}

func TestFreeSpaceMonotonic(t *testing.T) {
	fs := FreeSpace{}

	prev := fs.Loss(0.02, mhz933)
	for d := 0.05; d <= 50; d += 0.37 {
		cur := fs.Loss(d, mhz933)
		if cur < prev {
			t.Fatalf("loss decreased with distance at %v km: %v < %v", d, cur, prev)
		}
		prev = cur
	}

	prev = fs.Loss(1, 100e6)
	for f := 150e6; f <= 6e9; f += 97e6 {
		cur := fs.Loss(1, f)
		if cur < prev {
			t.Fatalf("loss decreased with frequency at %v Hz: %v < %v", f, cur, prev)
		}
		prev = cur
	}
}

func TestLogDistanceWithoutShadowing(t *testing.T) {
	m, err := NewLogDistance(PropagationParams{Gamma: 2.2, D0: 1}, nil)
	if err != nil {
		t.Fatalf("NewLogDistance error: %v", err)
	}

	want := FreeSpace{}.Loss(1, mhz933) + 22
	for i := 0; i < 3; i++ {
		if got := m.Loss(10, mhz933); math.Abs(got-want) > 1e-9 {
			t.Fatalf("LNPL(10 km) = %v, want %v", got, want)
		}
	}
	if scalar.Round(m.Loss(10, mhz933), 2) != 113.84 {
		t.Fatalf("LNPL(10 km, gamma 2.2) = %v, want 113.84", m.Loss(10, mhz933))
	}

	// Inside the reference distance the model falls back to free space.
	if got, want := m.Loss(0.5, mhz933), (FreeSpace{}).Loss(0.5, mhz933); got != want {
		t.Fatalf("LNPL(0.5 km) = %v, want FSPL %v", got, want)
	}
}

func TestLogDistanceGammaTwoMatchesFreeSpace(t *testing.T) {
	m, err := NewPropagationModel("lnpl", PropagationParams{}, nil)
	if err != nil {
		t.Fatalf("NewPropagationModel error: %v", err)
	}
	for _, d := range []float64{1.5, 4, 10, 37} {
		if got, want := m.Loss(d, mhz933), (FreeSpace{}).Loss(d, mhz933); math.Abs(got-want) > 1e-9 {
			t.Errorf("LNPL(gamma=2, %v km) = %v, want %v", d, got, want)
		}
	}
}

func TestLogDistanceShadowingIsSeeded(t *testing.T) {
	params := PropagationParams{Sigma: 4, Gamma: 2.5, D0: 1}
	a, err := NewLogDistance(params, rand.NewPCG(7, 11))
	if err != nil {
		t.Fatalf("NewLogDistance error: %v", err)
	}
	b, _ := NewLogDistance(params, rand.NewPCG(7, 11))

	mean := (FreeSpace{}).Loss(1, mhz933) + 25*math.Log10(5)
	var sum float64
	const draws = 2000
	varied := false
	for i := 0; i < draws; i++ {
		la, lb := a.Loss(5, mhz933), b.Loss(5, mhz933)
		if la != lb {
			t.Fatalf("draw %d differs between identically seeded models: %v vs %v", i, la, lb)
		}
		if la != mean {
			varied = true
		}
		sum += la
	}
	if !varied {
		t.Fatalf("sigma > 0 should perturb the loss")
	}
	if avg := sum / draws; math.Abs(avg-mean) > 0.5 {
		t.Fatalf("shadowed mean = %v, want about %v", avg, mean)
	}
}

func TestNewPropagationModelErrors(t *testing.T) {
	cases := []struct {
		name   string
		model  string
		params PropagationParams
		src    rand.Source
		field  string
	}{
		{"unknown model", "OKUMURA", PropagationParams{}, nil, "loss"},
		{"negative sigma", "LNPL", PropagationParams{Sigma: -1}, nil, "sigma"},
		{"negative gamma", "LNPL", PropagationParams{Gamma: -2}, nil, "gamma"},
		{"negative d0", "LNPL", PropagationParams{D0: -1}, nil, "d0"},
		{"shadowing without source", "LNPL", PropagationParams{Sigma: 2}, nil, "sigma"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPropagationModel(tc.model, tc.params, tc.src)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tc.field {
				t.Fatalf("error = %#v, want field %q", err, tc.field)
			}
		})
	}

	_, err := NewPropagationModel("OKUMURA", PropagationParams{}, nil)
	if msg := err.Error(); !strings.Contains(msg, "OKUMURA") || !strings.Contains(msg, "FSPL, LNPL") {
		t.Fatalf("error should name the value and valid set, got %q", msg)
	}
}

func TestNewPropagationModelNames(t *testing.T) {
	for _, name := range []string{"FSPL", "fspl", " Fspl "} {
		m, err := NewPropagationModel(name, PropagationParams{}, nil)
		if err != nil || m.Name() != ModelFreeSpace {
			t.Errorf("NewPropagationModel(%q) = %v, %v", name, m, err)
		}
	}
	m, err := NewPropagationModel("LNPL", PropagationParams{Sigma: 1}, rand.NewPCG(1, 1))
	if err != nil || m.Name() != ModelLogDistance {
		t.Fatalf("NewPropagationModel(LNPL) = %v, %v", m, err)
	}
	if s := m.(*LogDistance).String(); !strings.Contains(s, "gamma=2") || !strings.Contains(s, "d0=1") {
		t.Fatalf("defaults not applied: %s", s)
	}
}

func TestPathLossTable(t *testing.T) {
	dists := []float64{0.01, 1, 10}
	got := PathLossTable(FreeSpace{}, dists, mhz933)
	if len(got) != len(dists) {
		t.Fatalf("len = %d, want %d", len(got), len(dists))
	}
	if got[0] != MinLoss || scalar.Round(got[2], 2) != 111.84 {
		t.Fatalf("unexpected table %v", got)
	}
	if got[1] >= got[2] {
		t.Fatalf("table not increasing: %v", got)
	}
}
