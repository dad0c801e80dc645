package model

// RadioProfile describes the RF capabilities of a family of sensor
// radios. Powers are in dBm and the operating frequency in Hz.
type RadioProfile struct {
	Name string `json:"name" yaml:"name"`

	MinTxPowerDBm    float64 `json:"min_tx_power" yaml:"min_tx_power"`
	MaxTxPowerDBm    float64 `json:"max_tx_power" yaml:"max_tx_power"`
	RxSensitivityDBm float64 `json:"rx_sensitivity" yaml:"rx_sensitivity"`

	// FrequencyHz is the carrier frequency used when this radio
	// transmits.
	FrequencyHz float64 `json:"frequency" yaml:"frequency"`
}

// InTxRange reports whether p is an admissible transmit power.
func (rp RadioProfile) InTxRange(p float64) bool {
	return p >= rp.MinTxPowerDBm && p <= rp.MaxTxPowerDBm
}
