// Package hospital exports saved treatment logs and hands them over to the
// receiving hospital's API.
package hospital

import (
	"strconv"
	"strings"

	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/vitals"
)

// placeholder is rendered for any missing field
const placeholder = "-"

var (
	hebrewHeaders  = []string{"זמן", "דופק", "חמצן", "לחץ דם סיסטולי", "לחץ דם דיאסטולי", "תרופות שניתנו", "הערות"}
	englishHeaders = []string{"Time", "Heart Rate", "Oxygen Level", "Systolic", "Diastolic", "Medication", "Notes"}
)

// Headers returns the export headers for a locale; anything but "en" is Hebrew
func Headers(locale string) []string {
	if locale == "en" {
		return englishHeaders
	}
	return hebrewHeaders
}

// Row renders the one-row transfer summary of a log
func Row(log *models.TreatmentLog, tf vitals.TimeFormat) []string {
	row := []string{
		tf.Format(log.StartTime),
		placeholder, placeholder, placeholder, placeholder,
		orPlaceholder(log.Medication),
		orPlaceholder(log.Notes),
	}

	if vs := log.VitalSigns; vs != nil {
		if vs.Pulse != nil {
			row[1] = strconv.FormatFloat(*vs.Pulse, 'f', -1, 64)
		}
		if vs.OxygenLevel != nil {
			row[2] = strconv.FormatFloat(*vs.OxygenLevel, 'f', -1, 64)
		}
		sys, dia, _ := strings.Cut(vs.BloodPressure, "/")
		row[3] = orPlaceholder(sys)
		row[4] = orPlaceholder(dia)
	}
	return row
}

// ExportCSV renders the header and the single summary row of a log
func ExportCSV(log *models.TreatmentLog, locale string, tf vitals.TimeFormat) ([]byte, error) {
	return vitals.WriteTable(Headers(locale), [][]string{Row(log, tf)})
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}
