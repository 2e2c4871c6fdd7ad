package vitals

import (
	"fmt"
	"strconv"
)

// Alert describes one out-of-range condition at the latest sample
type Alert struct {
	Signal  Signal `json:"signal"`
	Message string `json:"message"`
}

// EvaluatorOptions tunes the live alert rules
type EvaluatorOptions struct {
	// AllSignals adds temperature and respiratory-rate rules after the
	// heart-rate, oxygen and blood-pressure rules.
	AllSignals bool
}

// Evaluator checks a single sample against a threshold table
type Evaluator struct {
	thresholds ThresholdTable
	opts       EvaluatorOptions
}

// NewEvaluator creates an evaluator bound to a validated table
func NewEvaluator(thresholds ThresholdTable, opts EvaluatorOptions) *Evaluator {
	return &Evaluator{thresholds: thresholds, opts: opts}
}

// Evaluate returns the alerts for one sample in fixed rule order
func (e *Evaluator) Evaluate(sample VitalSample) []Alert {
	return evaluate(sample, e.thresholds, e.opts)
}

// Evaluate checks sample against thresholds with the default rule set
// (heart rate, oxygen, blood pressure). History plays no part.
func Evaluate(sample VitalSample, thresholds ThresholdTable) []Alert {
	return evaluate(sample, thresholds, EvaluatorOptions{})
}

func evaluate(sample VitalSample, t ThresholdTable, opts EvaluatorOptions) []Alert {
	alerts := []Alert{}

	if t.Violates(HeartRate, sample.HeartRate) {
		alerts = append(alerts, Alert{
			Signal:  HeartRate,
			Message: fmt.Sprintf("heart rate out of range (%s BPM)", formatNumber(sample.HeartRate)),
		})
	}

	// Oxygen only alarms low; saturation cannot exceed the max.
	if sample.OxygenLevel < t.OxygenLevel.Min {
		alerts = append(alerts, Alert{
			Signal:  OxygenLevel,
			Message: fmt.Sprintf("low oxygen level (%s%%)", formatNumber(sample.OxygenLevel)),
		})
	}

	if t.Violates(Systolic, sample.Systolic) || t.Violates(Diastolic, sample.Diastolic) {
		alerts = append(alerts, Alert{
			Signal: Systolic,
			Message: fmt.Sprintf("blood pressure out of range (%s/%s)",
				formatNumber(sample.Systolic), formatNumber(sample.Diastolic)),
		})
	}

	if !opts.AllSignals {
		return alerts
	}

	if t.Violates(Temperature, sample.Temperature) {
		alerts = append(alerts, Alert{
			Signal:  Temperature,
			Message: fmt.Sprintf("temperature out of range (%s°C)", formatNumber(sample.Temperature)),
		})
	}
	if t.Violates(RespiratoryRate, sample.RespiratoryRate) {
		alerts = append(alerts, Alert{
			Signal:  RespiratoryRate,
			Message: fmt.Sprintf("respiratory rate out of range (%s/min)", formatNumber(sample.RespiratoryRate)),
		})
	}

	return alerts
}

// AlertTracker remembers the last distinct alert message of one session so that
// repeated identical alerts across ticks fire the audible side effect once.
type AlertTracker struct {
	last string
}

// Observe records the alerts of a tick and reports whether the last one is new.
// A tick without alerts leaves the memory untouched.
func (t *AlertTracker) Observe(alerts []Alert) bool {
	if len(alerts) == 0 {
		return false
	}
	msg := alerts[len(alerts)-1].Message
	if msg == t.last {
		return false
	}
	t.last = msg
	return true
}

// Last returns the last distinct alert message seen
func (t *AlertTracker) Last() string {
	return t.last
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
