package core

import "github.com/signalsfoundry/wsn-simulator/model"

// StepResult is the published output of one engine step. Matrices are
// indexed [receiver][transmitter]. A StepResult is never modified after
// it has been returned by the engine.
type StepResult struct {
	// Step is the zero-based index of the step that produced the result.
	Step int

	Positions []model.Position
	Status    [][]model.LinkStatus
	Loss      [][]float64 // dB
	RxPower   [][]float64 // dBm
	Margin    [][]float64 // dB above receiver sensitivity
}

// Size returns the number of nodes covered by the result.
func (r *StepResult) Size() int { return len(r.Positions) }

// Link reassembles the (rx, tx) entry of the matrices.
func (r *StepResult) Link(rx, tx int) Link {
	if rx == tx {
		return selfLink(rx)
	}
	margin := r.Margin[rx][tx]
	return Link{
		Receiver:    rx,
		Transmitter: tx,
		DistanceKm:  Distance(r.Positions[rx], r.Positions[tx]),
		LossDB:      r.Loss[rx][tx],
		RxPowerDBm:  r.RxPower[rx][tx],
		MarginDB:    margin,
		Status:      r.Status[rx][tx],
		Quality:     model.ClassifyMargin(margin),
	}
}

// UpLinks counts the directed links that are up.
func (r *StepResult) UpLinks() int {
	up := 0
	for _, row := range r.Status {
		for _, s := range row {
			if s == model.LinkUp {
				up++
			}
		}
	}
	return up
}

// StatusMatrix returns the link matrix in its 0/1 integer encoding.
func (r *StepResult) StatusMatrix() [][]int {
	out := make([][]int, len(r.Status))
	for i, row := range r.Status {
		out[i] = make([]int, len(row))
		for j, s := range row {
			out[i][j] = int(s)
		}
	}
	return out
}
