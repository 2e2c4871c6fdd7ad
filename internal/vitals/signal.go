// Package vitals implements the vital-signs pipeline: sample generation, the rolling
// history window, threshold alerting, table records and their CSV/XLSX export.
package vitals

import "fmt"

// Signal identifies one vital sign
type Signal string

const (
	HeartRate       Signal = "heartRate"
	OxygenLevel     Signal = "oxygenLevel"
	Systolic        Signal = "systolic"
	Diastolic       Signal = "diastolic"
	Temperature     Signal = "temperature"
	RespiratoryRate Signal = "respiratoryRate"
)

// Signals lists every vital sign in canonical order
var Signals = []Signal{HeartRate, OxygenLevel, Systolic, Diastolic, Temperature, RespiratoryRate}

// ParseSignal converts a wire name into a Signal
func ParseSignal(name string) (Signal, error) {
	for _, s := range Signals {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown vital sign: %q", name)
}

// VitalSample is one reading of all six signals
type VitalSample struct {
	HeartRate       float64 `json:"heartRate"`
	OxygenLevel     float64 `json:"oxygenLevel"`
	Systolic        float64 `json:"systolic"`
	Diastolic       float64 `json:"diastolic"`
	Temperature     float64 `json:"temperature"`
	RespiratoryRate float64 `json:"respiratoryRate"`
}

// Value returns the reading for a signal
func (s VitalSample) Value(sig Signal) float64 {
	switch sig {
	case HeartRate:
		return s.HeartRate
	case OxygenLevel:
		return s.OxygenLevel
	case Systolic:
		return s.Systolic
	case Diastolic:
		return s.Diastolic
	case Temperature:
		return s.Temperature
	case RespiratoryRate:
		return s.RespiratoryRate
	}
	return 0
}

// Series maps each signal to its values, oldest first
type Series map[Signal][]float64

// MaxLen returns the length of the longest sequence
func (s Series) MaxLen() int {
	n := 0
	for _, values := range s {
		if len(values) > n {
			n = len(values)
		}
	}
	return n
}
