package vitals

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ThresholdRange is the inclusive normal range of one signal
type ThresholdRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside [Min, Max]
func (r ThresholdRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ThresholdTable holds one range per signal. It is passed by value and never
// mutated after Validate.
type ThresholdTable struct {
	HeartRate       ThresholdRange `json:"heartRate" yaml:"heartRate"`
	OxygenLevel     ThresholdRange `json:"oxygenLevel" yaml:"oxygenLevel"`
	Systolic        ThresholdRange `json:"systolic" yaml:"systolic"`
	Diastolic       ThresholdRange `json:"diastolic" yaml:"diastolic"`
	Temperature     ThresholdRange `json:"temperature" yaml:"temperature"`
	RespiratoryRate ThresholdRange `json:"respiratoryRate" yaml:"respiratoryRate"`
}

// DefaultThresholds returns the adult field-care normal ranges
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		HeartRate:       ThresholdRange{Min: 60, Max: 100},
		OxygenLevel:     ThresholdRange{Min: 95, Max: 100},
		Systolic:        ThresholdRange{Min: 90, Max: 120},
		Diastolic:       ThresholdRange{Min: 60, Max: 80},
		Temperature:     ThresholdRange{Min: 36, Max: 37.5},
		RespiratoryRate: ThresholdRange{Min: 12, Max: 20},
	}
}

// Range returns the normal range for a signal
func (t ThresholdTable) Range(sig Signal) ThresholdRange {
	switch sig {
	case HeartRate:
		return t.HeartRate
	case OxygenLevel:
		return t.OxygenLevel
	case Systolic:
		return t.Systolic
	case Diastolic:
		return t.Diastolic
	case Temperature:
		return t.Temperature
	case RespiratoryRate:
		return t.RespiratoryRate
	}
	return ThresholdRange{}
}

// Violates reports whether v is outside the normal range of sig
func (t ThresholdTable) Violates(sig Signal, v float64) bool {
	return !t.Range(sig).Contains(v)
}

// Validate checks that every range is finite and ordered
func (t ThresholdTable) Validate() error {
	for _, sig := range Signals {
		r := t.Range(sig)
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
			return fmt.Errorf("threshold for %s must be finite", sig)
		}
		if r.Min >= r.Max {
			return fmt.Errorf("threshold for %s: min %.2f must be below max %.2f", sig, r.Min, r.Max)
		}
	}
	return nil
}

// LoadThresholds reads a YAML override on top of the defaults. Signals missing from
// the file keep their default range; unknown keys are rejected.
func LoadThresholds(path string) (ThresholdTable, error) {
	table := DefaultThresholds()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ThresholdTable{}, fmt.Errorf("failed to read thresholds file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil && !errors.Is(err, io.EOF) {
		return ThresholdTable{}, fmt.Errorf("failed to parse thresholds file: %w", err)
	}

	if err := table.Validate(); err != nil {
		return ThresholdTable{}, err
	}
	return table, nil
}
