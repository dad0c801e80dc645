package core

import (
	"math/rand/v2"
	"testing"

	"github.com/signalsfoundry/wsn-simulator/model"
)

func TestDistance(t *testing.T) {
	a := model.Position{X: 1, Y: 1}
	b := model.Position{X: 4, Y: 5}
	if got := Distance(a, b); got != 5 {
		t.Fatalf("Distance = %v, want 5", got)
	}
	if got := Distance(b, a); got != 5 {
		t.Fatalf("Distance should be symmetric, got %v", got)
	}
	if got := Distance(a, a); got != 0 {
		t.Fatalf("Distance to self = %v, want 0", got)
	}
}

func TestReflect(t *testing.T) {
	cases := []struct {
		v, limit, want float64
	}{
		{5, 10, 5},
		{-1, 10, 1},
		{12, 10, 8},
		{25, 10, 5},
		{-13, 10, 7},
		{3, 0, 0},
	}
	for _, tc := range cases {
		if got := reflect(tc.v, tc.limit); got != tc.want {
			t.Errorf("reflect(%v, %v) = %v, want %v", tc.v, tc.limit, got, tc.want)
		}
	}
}

func TestRandomPositionWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	dims := model.Dimensions{Width: 15, Height: 2}
	for i := 0; i < 1000; i++ {
		if p := randomPosition(rng, dims); !dims.Contains(p) {
			t.Fatalf("position %v outside %+v", p, dims)
		}
	}
}
