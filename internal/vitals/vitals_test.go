package vitals

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(v float64) *float64 { return &v }

func inRangeSample() VitalSample {
	return VitalSample{
		HeartRate:       75,
		OxygenLevel:     98,
		Systolic:        115,
		Diastolic:       75,
		Temperature:     36.8,
		RespiratoryRate: 16,
	}
}

func TestGeneratorRanges(t *testing.T) {
	gen := NewSeededGenerator(42)

	for i := 0; i < 2000; i++ {
		s := gen.Generate()
		assert.GreaterOrEqual(t, s.HeartRate, 60.0)
		assert.LessOrEqual(t, s.HeartRate, 100.0)
		assert.GreaterOrEqual(t, s.OxygenLevel, 95.0)
		assert.LessOrEqual(t, s.OxygenLevel, 100.0)
		assert.GreaterOrEqual(t, s.Systolic, 110.0)
		assert.LessOrEqual(t, s.Systolic, 140.0)
		assert.GreaterOrEqual(t, s.Diastolic, 70.0)
		assert.LessOrEqual(t, s.Diastolic, 90.0)
		assert.GreaterOrEqual(t, s.Temperature, 36.5)
		assert.LessOrEqual(t, s.Temperature, 37.5)
		assert.GreaterOrEqual(t, s.RespiratoryRate, 12.0)
		assert.LessOrEqual(t, s.RespiratoryRate, 20.0)
	}
}

type fixedSource uint64

func (f fixedSource) Uint64() uint64 { return uint64(f) }

func TestGeneratorBounds(t *testing.T) {
	tests := []struct {
		name string
		src  fixedSource
		want VitalSample
	}{
		{"bottom of draw", 0, VitalSample{
			HeartRate: 60, OxygenLevel: 95, Systolic: 110, Diastolic: 70, Temperature: 36.5, RespiratoryRate: 12,
		}},
		{"top of draw", fixedSource(^uint64(0)), VitalSample{
			HeartRate: 100, OxygenLevel: 100, Systolic: 140, Diastolic: 90, Temperature: 37.5, RespiratoryRate: 20,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewGenerator(tt.src).Generate())
		})
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(rand.NewPCG(1, 2))
	b := NewGenerator(rand.NewPCG(1, 2))
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Generate(), b.Generate())
	}
}

func TestRollingHistoryKeepsNewest(t *testing.T) {
	gen := NewSeededGenerator(7)
	h := NewRollingHistory(DefaultCapacity)

	var all []VitalSample
	for n := 1; n <= 300; n++ {
		s := gen.Generate()
		all = append(all, s)
		h.Append(s)

		want := n
		if want > DefaultCapacity {
			want = DefaultCapacity
		}
		require.Equal(t, want, h.Len())

		snap := h.Snapshot()
		for _, sig := range Signals {
			require.Len(t, snap[sig], want)
		}
	}

	assert.Equal(t, all[len(all)-DefaultCapacity:], h.Samples())
	assert.Equal(t, 300-DefaultCapacity, h.Dropped())

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, all[len(all)-1], latest)
}

func TestRollingHistoryEvictsOldestAt121(t *testing.T) {
	h := NewRollingHistory(DefaultCapacity)
	for i := 0; i < DefaultCapacity; i++ {
		s := inRangeSample()
		s.HeartRate = float64(1000 + i)
		h.Append(s)
	}
	assert.Equal(t, 1000.0, h.Snapshot()[HeartRate][0])

	s := inRangeSample()
	s.HeartRate = 5000
	h.Append(s)

	snap := h.Snapshot()
	assert.NotContains(t, snap[HeartRate], 1000.0)
	assert.Equal(t, 1001.0, snap[HeartRate][0])
	assert.Equal(t, 5000.0, snap[HeartRate][DefaultCapacity-1])

	records := Format(snap, DefaultThresholds(), time.Unix(0, 0), 5*time.Second)
	require.Len(t, records, DefaultCapacity)
	for _, rec := range records {
		assert.NotEqual(t, 1000.0, *rec.HeartRate)
	}
}

func TestRollingHistorySnapshotIsCopy(t *testing.T) {
	h := NewRollingHistory(3)
	h.Append(inRangeSample())

	snap := h.Snapshot()
	snap[HeartRate][0] = -1

	assert.Equal(t, 75.0, h.Snapshot()[HeartRate][0])
}

func TestRollingHistoryFallbackCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewRollingHistory(0).Cap())
	assert.Equal(t, DefaultCapacity, NewRollingHistory(-3).Cap())

	_, ok := NewRollingHistory(5).Latest()
	assert.False(t, ok)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		sample VitalSample
		want   []Alert
	}{
		{
			name:   "high heart rate",
			sample: VitalSample{HeartRate: 120, OxygenLevel: 98, Systolic: 115, Diastolic: 75},
			want:   []Alert{{Signal: HeartRate, Message: "heart rate out of range (120 BPM)"}},
		},
		{
			name:   "low oxygen",
			sample: VitalSample{HeartRate: 75, OxygenLevel: 90, Systolic: 115, Diastolic: 75},
			want:   []Alert{{Signal: OxygenLevel, Message: "low oxygen level (90%)"}},
		},
		{
			name:   "diastolic alone triggers blood pressure",
			sample: VitalSample{HeartRate: 75, OxygenLevel: 98, Systolic: 115, Diastolic: 85},
			want:   []Alert{{Signal: Systolic, Message: "blood pressure out of range (115/85)"}},
		},
		{
			name:   "boundaries are normal",
			sample: VitalSample{HeartRate: 100, OxygenLevel: 95, Systolic: 90, Diastolic: 80},
			want:   []Alert{},
		},
		{
			name:   "fixed rule order",
			sample: VitalSample{HeartRate: 50, OxygenLevel: 80, Systolic: 150, Diastolic: 95},
			want: []Alert{
				{Signal: HeartRate, Message: "heart rate out of range (50 BPM)"},
				{Signal: OxygenLevel, Message: "low oxygen level (80%)"},
				{Signal: Systolic, Message: "blood pressure out of range (150/95)"},
			},
		},
		{
			name:   "temperature and respiration ignored by default",
			sample: VitalSample{HeartRate: 75, OxygenLevel: 98, Systolic: 115, Diastolic: 75, Temperature: 40, RespiratoryRate: 30},
			want:   []Alert{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.sample, DefaultThresholds()))
		})
	}
}

func TestEvaluatorAllSignals(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds(), EvaluatorOptions{AllSignals: true})

	sample := inRangeSample()
	sample.HeartRate = 130
	sample.Temperature = 38.2
	sample.RespiratoryRate = 25

	alerts := ev.Evaluate(sample)
	require.Len(t, alerts, 3)
	assert.Equal(t, "heart rate out of range (130 BPM)", alerts[0].Message)
	assert.Equal(t, "temperature out of range (38.2°C)", alerts[1].Message)
	assert.Equal(t, "respiratory rate out of range (25/min)", alerts[2].Message)

	assert.Empty(t, ev.Evaluate(inRangeSample()))
}

func TestAlertTracker(t *testing.T) {
	var tracker AlertTracker
	hr := []Alert{{Signal: HeartRate, Message: "heart rate out of range (120 BPM)"}}
	ox := []Alert{{Signal: OxygenLevel, Message: "low oxygen level (90%)"}}

	assert.True(t, tracker.Observe(hr))
	assert.False(t, tracker.Observe(hr), "repeated alert across ticks fires once")
	assert.False(t, tracker.Observe(nil))
	assert.False(t, tracker.Observe(hr), "a quiet tick does not reset the memory")
	assert.True(t, tracker.Observe(ox))
	assert.Equal(t, "low oxygen level (90%)", tracker.Last())
}

func TestFormatAlertFlags(t *testing.T) {
	series := Series{
		HeartRate:       {70, 130, 72},
		OxygenLevel:     {97, 97, 97},
		Systolic:        {110, 110, 110},
		Diastolic:       {70, 70, 70},
		Temperature:     {36.6, 36.6, 36.6},
		RespiratoryRate: {16, 16, 16},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	records := Format(series, DefaultThresholds(), start, 5*time.Second)

	require.Len(t, records, 3)
	assert.False(t, records[0].HeartRateAlert)
	assert.True(t, records[1].HeartRateAlert)
	assert.False(t, records[2].HeartRateAlert)
	assert.Equal(t, start.Add(10*time.Second), records[2].Time)
	for _, rec := range records {
		assert.False(t, rec.OxygenLevelAlert)
		assert.False(t, rec.TemperatureAlert)
	}
}

func TestFormatMissingValuesAreNull(t *testing.T) {
	series := Series{
		HeartRate:   {70, 71, 72},
		Temperature: {39},
	}

	records := Format(series, DefaultThresholds(), time.Unix(0, 0).UTC(), time.Second)

	require.Len(t, records, 3)
	assert.Equal(t, ptr(39), records[0].Temperature)
	assert.True(t, records[0].TemperatureAlert, "table view checks temperature")
	assert.Nil(t, records[1].Temperature)
	assert.False(t, records[1].TemperatureAlert)
	assert.Nil(t, records[2].OxygenLevel)
	assert.False(t, records[2].OxygenLevelAlert)
}

func TestFormatOxygenAboveMaxFlagged(t *testing.T) {
	records := Format(Series{OxygenLevel: {101}}, DefaultThresholds(), time.Time{}, time.Second)
	require.Len(t, records, 1)
	assert.True(t, records[0].OxygenLevelAlert)
}

func TestFormatIdempotent(t *testing.T) {
	gen := NewSeededGenerator(99)
	h := NewRollingHistory(DefaultCapacity)
	for i := 0; i < 150; i++ {
		h.Append(gen.Generate())
	}
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	first := Format(h.Snapshot(), DefaultThresholds(), start, 5*time.Second)
	second := Format(h.Snapshot(), DefaultThresholds(), start, 5*time.Second)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("records differ (-first +second):\n%s", diff)
	}

	tf := TimeFormat{Location: time.UTC}
	a, err := ToCSV(first, Columns("he"), tf)
	require.NoError(t, err)
	b, err := ToCSV(second, Columns("he"), tf)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestToCSVSingleRecord(t *testing.T) {
	rec := TreatmentRecord{
		Time:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		HeartRate:       ptr(80),
		OxygenLevel:     ptr(97),
		Systolic:        ptr(110),
		Diastolic:       ptr(70),
		Temperature:     ptr(36.6),
		RespiratoryRate: ptr(16),
	}

	out, err := ToCSV([]TreatmentRecord{rec}, Columns("he"), TimeFormat{Location: time.UTC})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "זמן,דופק,חמצן,לחץ דם סיסטולי,לחץ דם דיאסטולי,טמפרטורה,קצב נשימה", lines[0])
	assert.Equal(t, "2024-01-01 00:00:00,80,97,110,70,36.6,16", lines[1])
}

func TestToCSVNullAndLocale(t *testing.T) {
	rec := TreatmentRecord{Time: time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC), HeartRate: ptr(80)}
	jerusalem := time.FixedZone("IST", 2*60*60)

	out, err := ToCSV([]TreatmentRecord{rec}, Columns("en"), TimeFormat{Layout: "02/01/2006 15:04", Location: jerusalem})
	require.NoError(t, err)
	assert.Equal(t,
		"Time,Heart Rate,Oxygen Level,Systolic,Diastolic,Temperature,Respiratory Rate\n"+
			"01/01/2024 14:30,80,,,,,\n", out)
}

func TestToCSVUnknownColumn(t *testing.T) {
	_, err := ToCSV([]TreatmentRecord{{}}, []Column{{Field: "pulse", Header: "Pulse"}}, TimeFormat{})
	assert.Error(t, err)
}

// Exports apply RFC 4180 quoting instead of joining raw values with commas.
func TestWriteTableQuotesEmbeddedSeparators(t *testing.T) {
	out, err := WriteTable([]string{"notes", "medication"}, [][]string{{"bleeding, left leg", `said "ok"`}})
	require.NoError(t, err)
	assert.Equal(t, "notes,medication\n\"bleeding, left leg\",\"said \"\"ok\"\"\"\n", string(out))
}

func TestToXLSX(t *testing.T) {
	rec := TreatmentRecord{
		Time:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		HeartRate:      ptr(130),
		HeartRateAlert: true,
		OxygenLevel:    ptr(97),
	}

	data, err := ToXLSX([]TreatmentRecord{rec}, Columns("en"), TimeFormat{Location: time.UTC})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(sheetName, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Heart Rate", header)

	ts, err := f.GetCellValue(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 00:00:00", ts)

	hr, err := f.GetCellValue(sheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "130", hr)

	empty, err := f.GetCellValue(sheetName, "D2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChartData(t *testing.T) {
	chart := ChartData([]float64{1, 2, 3}, "דופק", "rgb(255, 99, 132)", true)
	assert.Equal(t, []int{2, 1, 0}, chart.Labels)
	require.Len(t, chart.Datasets, 1)
	assert.Equal(t, []float64{3, 2, 1}, chart.Datasets[0].Data)
	assert.Equal(t, "rgb(255, 99, 132)", chart.Datasets[0].BorderColor)

	chart = ChartData([]float64{1, 2, 3}, "x", "red", false)
	assert.Equal(t, []int{0, 1, 2}, chart.Labels)
	assert.Equal(t, []float64{1, 2, 3}, chart.Datasets[0].Data)
}

func TestSummarize(t *testing.T) {
	assert.Nil(t, Summarize(nil))

	st := Summarize([]float64{70, 130, 72})
	require.NotNil(t, st)
	assert.Equal(t, 70.0, st.Min)
	assert.Equal(t, 130.0, st.Max)
	assert.InDelta(t, 90.666, st.Avg, 0.001)
	assert.Equal(t, 2.0, st.Trend)

	all := SummarizeAll(Series{HeartRate: {1, 2}})
	assert.Len(t, all, 1)
	assert.Contains(t, all, HeartRate)
}

func TestLoadThresholds(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path uses defaults", func(t *testing.T) {
		table, err := LoadThresholds("")
		require.NoError(t, err)
		assert.Equal(t, DefaultThresholds(), table)
	})

	t.Run("partial override", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("heartRate:\n  min: 50\n  max: 110\n"), 0o600))

		table, err := LoadThresholds(path)
		require.NoError(t, err)
		assert.Equal(t, ThresholdRange{Min: 50, Max: 110}, table.HeartRate)
		assert.Equal(t, DefaultThresholds().OxygenLevel, table.OxygenLevel)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		table, err := LoadThresholds(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultThresholds(), table)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pulse:\n  min: 1\n  max: 2\n"), 0o600))

		_, err := LoadThresholds(path)
		assert.Error(t, err)
	})

	t.Run("inverted range", func(t *testing.T) {
		path := filepath.Join(dir, "inverted.yaml")
		require.NoError(t, os.WriteFile(path, []byte("systolic:\n  min: 120\n  max: 90\n"), 0o600))

		_, err := LoadThresholds(path)
		assert.ErrorContains(t, err, "systolic")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadThresholds(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestParseSignal(t *testing.T) {
	sig, err := ParseSignal("respiratoryRate")
	require.NoError(t, err)
	assert.Equal(t, RespiratoryRate, sig)

	_, err = ParseSignal("pulse")
	assert.Error(t, err)
}
