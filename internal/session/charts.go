package session

import "github.com/rescuemind/rescuemind/internal/vitals"

type chartSpec struct {
	signal vitals.Signal
	he, en string
	color  string
}

var chartSpecs = []chartSpec{
	{vitals.HeartRate, "דופק", "Heart Rate", "rgba(255,99,132,1)"},
	{vitals.OxygenLevel, "חמצן", "Oxygen Level", "rgba(75,192,192,1)"},
	{vitals.Systolic, "סיסטולי", "Systolic", "rgba(54,162,235,1)"},
}

// Charts returns the heart rate, oxygen and systolic chart payloads keyed by signal
func (s *Session) Charts(locale string, newestFirst bool) map[vitals.Signal]vitals.Chart {
	series := s.History()
	charts := make(map[vitals.Signal]vitals.Chart, len(chartSpecs))
	for _, spec := range chartSpecs {
		label := spec.he
		if locale == "en" {
			label = spec.en
		}
		charts[spec.signal] = vitals.ChartData(series[spec.signal], label, spec.color, newestFirst)
	}
	return charts
}

// Stats summarizes every signal of the retained window
func (s *Session) Stats() map[vitals.Signal]*vitals.Stats {
	return vitals.SummarizeAll(s.History())
}
