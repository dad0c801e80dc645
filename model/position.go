package model

import "gonum.org/v1/gonum/spatial/r2"

// Position is a planar coordinate in kilometres.
type Position = r2.Vec

// Dimensions bounds the rectangular simulation area [0,Width) x [0,Height),
// in kilometres.
type Dimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Contains reports whether p lies inside the area.
func (d Dimensions) Contains(p Position) bool {
	return p.X >= 0 && p.X < d.Width && p.Y >= 0 && p.Y < d.Height
}
