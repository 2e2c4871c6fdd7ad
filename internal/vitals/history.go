package vitals

// DefaultCapacity is the number of samples kept per signal
const DefaultCapacity = 120

// RollingHistory is a fixed-capacity window of recent samples. Appending past
// capacity overwrites the oldest sample. It is owned by a single session and
// is not safe for concurrent use on its own.
type RollingHistory struct {
	buf     []VitalSample
	head    int // index of the oldest sample
	size    int
	dropped int
}

// NewRollingHistory creates an empty window. Non-positive capacity falls back
// to DefaultCapacity.
func NewRollingHistory(capacity int) *RollingHistory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RollingHistory{buf: make([]VitalSample, capacity)}
}

// Append adds a sample, evicting the oldest one when full
func (h *RollingHistory) Append(sample VitalSample) {
	if h.size < len(h.buf) {
		h.buf[(h.head+h.size)%len(h.buf)] = sample
		h.size++
		return
	}
	h.buf[h.head] = sample
	h.head = (h.head + 1) % len(h.buf)
	h.dropped++
}

// Len returns the number of retained samples
func (h *RollingHistory) Len() int {
	return h.size
}

// Cap returns the window capacity
func (h *RollingHistory) Cap() int {
	return len(h.buf)
}

// Dropped returns how many samples have been evicted so far
func (h *RollingHistory) Dropped() int {
	return h.dropped
}

// Latest returns the newest sample
func (h *RollingHistory) Latest() (VitalSample, bool) {
	if h.size == 0 {
		return VitalSample{}, false
	}
	return h.buf[(h.head+h.size-1)%len(h.buf)], true
}

// Samples returns a copy of the retained samples, oldest first
func (h *RollingHistory) Samples() []VitalSample {
	out := make([]VitalSample, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Snapshot returns a per-signal copy of the window, oldest first
func (h *RollingHistory) Snapshot() Series {
	series := make(Series, len(Signals))
	for _, sig := range Signals {
		series[sig] = make([]float64, h.size)
	}
	for i := 0; i < h.size; i++ {
		sample := h.buf[(h.head+i)%len(h.buf)]
		for _, sig := range Signals {
			series[sig][i] = sample.Value(sig)
		}
	}
	return series
}
