package vitals

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// FieldTime is the column field holding the record timestamp
const FieldTime = "time"

// DefaultTimeLayout renders record timestamps in exports
const DefaultTimeLayout = "2006-01-02 15:04:05"

// Column maps a record field to a localized header
type Column struct {
	Field  string
	Header string
}

var hebrewHeaders = map[string]string{
	FieldTime:               "זמן",
	string(HeartRate):       "דופק",
	string(OxygenLevel):     "חמצן",
	string(Systolic):        "לחץ דם סיסטולי",
	string(Diastolic):       "לחץ דם דיאסטולי",
	string(Temperature):     "טמפרטורה",
	string(RespiratoryRate): "קצב נשימה",
}

var englishHeaders = map[string]string{
	FieldTime:               "Time",
	string(HeartRate):       "Heart Rate",
	string(OxygenLevel):     "Oxygen Level",
	string(Systolic):        "Systolic",
	string(Diastolic):       "Diastolic",
	string(Temperature):     "Temperature",
	string(RespiratoryRate): "Respiratory Rate",
}

// Columns returns the export columns for a locale: time first, then the signals in
// canonical order. Unknown locales fall back to Hebrew.
func Columns(locale string) []Column {
	headers := hebrewHeaders
	if locale == "en" {
		headers = englishHeaders
	}

	columns := make([]Column, 0, len(Signals)+1)
	columns = append(columns, Column{Field: FieldTime, Header: headers[FieldTime]})
	for _, sig := range Signals {
		columns = append(columns, Column{Field: string(sig), Header: headers[string(sig)]})
	}
	return columns
}

// TimeFormat controls how timestamps are rendered
type TimeFormat struct {
	Layout   string
	Location *time.Location
}

// Format renders t with the layout, in Location when set
func (f TimeFormat) Format(t time.Time) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(layout)
}

// Cells renders the record into one string per column
func (r TreatmentRecord) Cells(columns []Column, tf TimeFormat) ([]string, error) {
	cells := make([]string, len(columns))
	for i, col := range columns {
		if col.Field == FieldTime {
			cells[i] = tf.Format(r.Time)
			continue
		}
		sig, err := ParseSignal(col.Field)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		if v := r.Value(sig); v != nil {
			cells[i] = formatNumber(*v)
		}
	}
	return cells, nil
}

// ToCSV writes a header line and one line per record in column order. Fields are
// quoted per RFC 4180 when they contain a separator, quote or newline.
func ToCSV(records []TreatmentRecord, columns []Column, tf TimeFormat) (string, error) {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		cells, err := rec.Cells(columns, tf)
		if err != nil {
			return "", err
		}
		rows = append(rows, cells)
	}

	data, err := WriteTable(headers, rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteTable encodes a header and rows as CSV with LF line endings
func WriteTable(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}

	return buf.Bytes(), nil
}
