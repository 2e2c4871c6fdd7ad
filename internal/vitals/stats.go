package vitals

// Stats summarizes one signal over the window
type Stats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Trend float64 `json:"trend"`
}

// Summarize returns min, max, mean and last-minus-first of values, or nil when empty
func Summarize(values []float64) *Stats {
	if len(values) == 0 {
		return nil
	}

	s := &Stats{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Avg = sum / float64(len(values))
	s.Trend = values[len(values)-1] - values[0]
	return s
}

// SummarizeAll returns the summary of every signal present in the series
func SummarizeAll(series Series) map[Signal]*Stats {
	out := make(map[Signal]*Stats, len(series))
	for _, sig := range Signals {
		if st := Summarize(series[sig]); st != nil {
			out[sig] = st
		}
	}
	return out
}
