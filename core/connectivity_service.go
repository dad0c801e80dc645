package core

import "github.com/signalsfoundry/wsn-simulator/model"

// ConnectivityService evaluates the complete directed link matrix of a
// network. Entry [i][j] describes reception at node i of node j's
// transmission; the diagonal is always down with zero loss.
type ConnectivityService struct {
	Model PropagationModel
}

func NewConnectivityService(pm PropagationModel) *ConnectivityService {
	return &ConnectivityService{Model: pm}
}

// UpdateConnectivity recomputes every ordered pair from the captured
// node states and fills the link matrices of res. Positions must
// already reflect this step's mobility.
func (cs *ConnectivityService) UpdateConnectivity(res *StepResult, states []radioState) {
	n := len(states)
	res.Status = make([][]model.LinkStatus, n)
	res.Loss = make([][]float64, n)
	res.RxPower = make([][]float64, n)
	res.Margin = make([][]float64, n)

	for i := range states {
		res.Status[i] = make([]model.LinkStatus, n)
		res.Loss[i] = make([]float64, n)
		res.RxPower[i] = make([]float64, n)
		res.Margin[i] = make([]float64, n)

		for j := range states {
			var link Link
			if i == j {
				link = selfLink(states[i].id)
			} else {
				link = evaluateLink(states[i], states[j], cs.Model)
			}
			res.Status[i][j] = link.Status
			res.Loss[i][j] = link.LossDB
			res.RxPower[i][j] = link.RxPowerDBm
			res.Margin[i][j] = link.MarginDB
		}
	}
}

// Evaluate returns every link of the given nodes, diagonal included,
// in row-major order.
func (cs *ConnectivityService) Evaluate(nodes []*SensorNode) []Link {
	states := make([]radioState, len(nodes))
	for i, n := range nodes {
		states[i] = captureRadioState(n)
	}
	links := make([]Link, 0, len(nodes)*len(nodes))
	for i := range states {
		for j := range states {
			if i == j {
				links = append(links, selfLink(states[i].id))
				continue
			}
			links = append(links, evaluateLink(states[i], states[j], cs.Model))
		}
	}
	return links
}
