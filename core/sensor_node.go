package core

import (
	"sync"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// SensorNode is a radio node of the simulated network. Its profile is
// fixed at construction; position and transmit power are mutable.
//
// All methods are safe for concurrent use, but only the engine is
// expected to move nodes while a simulation is running.
type SensorNode struct {
	mu sync.RWMutex

	id       int
	profile  model.RadioProfile
	position model.Position
	txPower  float64
}

// NewSensorNode creates a node transmitting at the profile's maximum
// power.
func NewSensorNode(id int, profile model.RadioProfile, pos model.Position) *SensorNode {
	return &SensorNode{
		id:       id,
		profile:  profile,
		position: pos,
		txPower:  profile.MaxTxPowerDBm,
	}
}

// ID returns the node's index inside its network.
func (n *SensorNode) ID() int { return n.id }

// Profile returns the radio profile the node was built with.
func (n *SensorNode) Profile() model.RadioProfile { return n.profile }

// Position returns the current position in kilometres.
func (n *SensorNode) Position() model.Position {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

// SetPosition moves the node. Positions are not constrained to the
// simulation area.
func (n *SensorNode) SetPosition(p model.Position) {
	n.mu.Lock()
	n.position = p
	n.mu.Unlock()
}

// TxPower returns the configured transmit power in dBm.
func (n *SensorNode) TxPower() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.txPower
}

// SetTxPower configures the transmit power. Values outside the radio's
// [min, max] range are rejected with an *OutOfRangeError and leave the
// node unchanged. Links pick up the new power on the next engine step.
func (n *SensorNode) SetTxPower(dBm float64) error {
	if !n.profile.InTxRange(dBm) {
		return &OutOfRangeError{
			NodeID: n.id,
			Value:  dBm,
			Min:    n.profile.MinTxPowerDBm,
			Max:    n.profile.MaxTxPowerDBm,
		}
	}
	n.mu.Lock()
	n.txPower = dBm
	n.mu.Unlock()
	return nil
}

// RxSensitivity returns the receiver sensitivity in dBm.
func (n *SensorNode) RxSensitivity() float64 { return n.profile.RxSensitivityDBm }

// Frequency returns the carrier frequency in Hz.
func (n *SensorNode) Frequency() float64 { return n.profile.FrequencyHz }

// radioState returns position and tx power under a single lock.
func (n *SensorNode) radioState() (model.Position, float64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position, n.txPower
}
