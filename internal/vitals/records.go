package vitals

import "time"

// TreatmentRecord is one row of the table/export view. Values missing at an index
// are nil, never zero.
type TreatmentRecord struct {
	Time                 time.Time `json:"time"`
	HeartRate            *float64  `json:"heartRate"`
	OxygenLevel          *float64  `json:"oxygenLevel"`
	Systolic             *float64  `json:"systolic"`
	Diastolic            *float64  `json:"diastolic"`
	Temperature          *float64  `json:"temperature"`
	RespiratoryRate      *float64  `json:"respiratoryRate"`
	HeartRateAlert       bool      `json:"heartRateAlert"`
	OxygenLevelAlert     bool      `json:"oxygenLevelAlert"`
	SystolicAlert        bool      `json:"systolicAlert"`
	DiastolicAlert       bool      `json:"diastolicAlert"`
	TemperatureAlert     bool      `json:"temperatureAlert"`
	RespiratoryRateAlert bool      `json:"respiratoryRateAlert"`
}

// Value returns the value of sig, nil when absent
func (r TreatmentRecord) Value(sig Signal) *float64 {
	switch sig {
	case HeartRate:
		return r.HeartRate
	case OxygenLevel:
		return r.OxygenLevel
	case Systolic:
		return r.Systolic
	case Diastolic:
		return r.Diastolic
	case Temperature:
		return r.Temperature
	case RespiratoryRate:
		return r.RespiratoryRate
	}
	return nil
}

// Alerted returns the alert flag of sig
func (r TreatmentRecord) Alerted(sig Signal) bool {
	switch sig {
	case HeartRate:
		return r.HeartRateAlert
	case OxygenLevel:
		return r.OxygenLevelAlert
	case Systolic:
		return r.SystolicAlert
	case Diastolic:
		return r.DiastolicAlert
	case Temperature:
		return r.TemperatureAlert
	case RespiratoryRate:
		return r.RespiratoryRateAlert
	}
	return false
}

func (r *TreatmentRecord) set(sig Signal, v *float64, alert bool) {
	switch sig {
	case HeartRate:
		r.HeartRate, r.HeartRateAlert = v, alert
	case OxygenLevel:
		r.OxygenLevel, r.OxygenLevelAlert = v, alert
	case Systolic:
		r.Systolic, r.SystolicAlert = v, alert
	case Diastolic:
		r.Diastolic, r.DiastolicAlert = v, alert
	case Temperature:
		r.Temperature, r.TemperatureAlert = v, alert
	case RespiratoryRate:
		r.RespiratoryRate, r.RespiratoryRateAlert = v, alert
	}
}

// Format aligns the series into one record per index, up to the longest series.
// Record i is stamped start + i*period. Alert flags apply the min/max check to
// all six signals, unlike the live banner.
func Format(series Series, thresholds ThresholdTable, start time.Time, period time.Duration) []TreatmentRecord {
	n := series.MaxLen()
	records := make([]TreatmentRecord, n)

	for i := 0; i < n; i++ {
		rec := TreatmentRecord{Time: start.Add(time.Duration(i) * period)}
		for _, sig := range Signals {
			values := series[sig]
			if i >= len(values) {
				continue
			}
			v := values[i]
			rec.set(sig, &v, thresholds.Violates(sig, v))
		}
		records[i] = rec
	}

	return records
}
