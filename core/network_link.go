package core

import "github.com/signalsfoundry/wsn-simulator/model"

// Link is the directed radio relationship between a transmitter and a
// receiver at one instant. Links are derived from node state on every
// step and never cached.
type Link struct {
	Receiver    int
	Transmitter int

	DistanceKm float64
	LossDB     float64
	RxPowerDBm float64
	// MarginDB is the received power above the receiver sensitivity.
	MarginDB float64

	Status  model.LinkStatus
	Quality model.LinkQuality
}

// IsSelf reports whether the link is a node's diagonal entry.
func (l Link) IsSelf() bool { return l.Receiver == l.Transmitter }

// radioState is a consistent capture of the node fields a link
// evaluation reads.
type radioState struct {
	id            int
	position      model.Position
	txPowerDBm    float64
	rxSensitivity float64
	frequencyHz   float64
}

func captureRadioState(n *SensorNode) radioState {
	pos, tx := n.radioState()
	return radioState{
		id:            n.id,
		position:      pos,
		txPowerDBm:    tx,
		rxSensitivity: n.profile.RxSensitivityDBm,
		frequencyHz:   n.profile.FrequencyHz,
	}
}

// EvaluateLink computes the link from tx to rx under pm using the nodes'
// current state. A node never links to itself: the self pair is down
// with zero loss.
func EvaluateLink(rx, tx *SensorNode, pm PropagationModel) Link {
	if rx == tx {
		return selfLink(rx.id)
	}
	return evaluateLink(captureRadioState(rx), captureRadioState(tx), pm)
}

func selfLink(id int) Link {
	return Link{
		Receiver:    id,
		Transmitter: id,
		Status:      model.LinkDown,
		Quality:     model.LinkQualityDown,
	}
}

// evaluateLink applies the link budget: the loss is computed at the
// transmitter's frequency and compared against the receiver's
// sensitivity.
func evaluateLink(rx, tx radioState, pm PropagationModel) Link {
	dist := Distance(rx.position, tx.position)
	loss := pm.Loss(dist, tx.frequencyHz)
	rxPower := tx.txPowerDBm - loss
	margin := rxPower - rx.rxSensitivity

	status := model.LinkDown
	if rxPower >= rx.rxSensitivity {
		status = model.LinkUp
	}

	return Link{
		Receiver:    rx.id,
		Transmitter: tx.id,
		DistanceKm:  dist,
		LossDB:      loss,
		RxPowerDBm:  rxPower,
		MarginDB:    margin,
		Status:      status,
		Quality:     model.ClassifyMargin(margin),
	}
}
