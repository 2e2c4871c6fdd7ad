package vitals

// ChartDataset is one plotted line
type ChartDataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	BorderColor string    `json:"borderColor"`
	Tension     float64   `json:"tension"`
	Fill        bool      `json:"fill"`
}

// Chart is the payload consumed by the chart widget
type Chart struct {
	Labels   []int          `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartData adapts an oldest-first series for plotting. With newestFirst both the
// index labels and the values are reversed.
func ChartData(values []float64, label, color string, newestFirst bool) Chart {
	n := len(values)
	labels := make([]int, n)
	data := make([]float64, n)
	for i := 0; i < n; i++ {
		if newestFirst {
			labels[i] = n - 1 - i
			data[i] = values[n-1-i]
		} else {
			labels[i] = i
			data[i] = values[i]
		}
	}

	return Chart{
		Labels: labels,
		Datasets: []ChartDataset{{
			Label:       label,
			Data:        data,
			BorderColor: color,
			Tension:     0.1,
		}},
	}
}
