package api

import (
	"errors"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/session"
	"github.com/rescuemind/rescuemind/internal/vitals"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type startSessionRequest struct {
	Casualty string `json:"casualty"`
}

// HandleListSessions returns every running session
func HandleListSessions(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sessions.List())
	}
}

// HandleStartSession starts monitoring a casualty
func HandleStartSession(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		s, err := sessions.Start(req.Casualty)
		if err != nil {
			if errors.Is(err, session.ErrInvalidCasualty) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to start session")
			return
		}
		respondJSON(w, http.StatusCreated, s.Status())
	}
}

// HandleStopSession stops a session
func HandleStopSession(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Stop(chi.URLParam(r, "id")); err != nil {
			respondError(w, http.StatusNotFound, "Session not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "Session stopped"})
	}
}

// withSession resolves the {id} URL parameter
func withSession(sessions *session.Manager, fn func(w http.ResponseWriter, r *http.Request, s *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusNotFound, "Session not found")
			return
		}
		fn(w, r, s)
	}
}

// HandleGetSession returns one session's status
func HandleGetSession(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondJSON(w, http.StatusOK, s.Status())
	})
}

// HandleGetHistory returns the retained window per signal, oldest first
func HandleGetHistory(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondJSON(w, http.StatusOK, s.History())
	})
}

// HandleGetRecords returns the retained window as table records
func HandleGetRecords(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondJSON(w, http.StatusOK, s.Records())
	})
}

// HandleGetAlerts returns the alerts of the latest tick
func HandleGetAlerts(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"alerts":    s.Alerts(),
			"lastAlert": s.LastAlert(),
		})
	})
}

// HandleGetCharts returns chart payloads for heart rate, oxygen and systolic
func HandleGetCharts(sessions *session.Manager, monitor config.MonitorConfig) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		newestFirst, _ := strconv.ParseBool(r.URL.Query().Get("newestFirst"))
		respondJSON(w, http.StatusOK, s.Charts(locale(r, monitor), newestFirst))
	})
}

// HandleGetStats returns min, max, average and trend per signal
func HandleGetStats(sessions *session.Manager) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		respondJSON(w, http.StatusOK, s.Stats())
	})
}

// HandleExportCSV downloads the retained window as CSV
func HandleExportCSV(sessions *session.Manager, monitor config.MonitorConfig, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		body, err := vitals.ToCSV(s.Records(), vitals.Columns(locale(r, monitor)), timeFormat(monitor))
		if err != nil {
			logger.Error("CSV export failed", zap.String("session", s.ID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to export records")
			return
		}
		attach(w, "text/csv; charset=utf-8", exportName(s.Casualty, "csv", time.Now()), []byte(body))
	})
}

// HandleExportXLSX downloads the retained window as a spreadsheet
func HandleExportXLSX(sessions *session.Manager, monitor config.MonitorConfig, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		body, err := vitals.ToXLSX(s.Records(), vitals.Columns(locale(r, monitor)), timeFormat(monitor))
		if err != nil {
			logger.Error("XLSX export failed", zap.String("session", s.ID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to export records")
			return
		}
		attach(w, xlsxContentType, exportName(s.Casualty, "xlsx", time.Now()), body)
	})
}

func locale(r *http.Request, monitor config.MonitorConfig) string {
	if l := r.URL.Query().Get("locale"); l == "he" || l == "en" {
		return l
	}
	return monitor.Locale
}

func timeFormat(monitor config.MonitorConfig) vitals.TimeFormat {
	return vitals.TimeFormat{Layout: monitor.TimeLayout, Location: monitor.Location()}
}

// fileTimeLayout stamps download names without colons
const fileTimeLayout = "20060102T150405Z"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func exportName(casualty, ext string, now time.Time) string {
	name := unsafeNameChars.ReplaceAllString(casualty, "_")
	if strings.Trim(name, "_") == "" {
		name = "casualty"
	}
	return "vitals-" + name + "-" + now.UTC().Format(fileTimeLayout) + "." + ext
}

func attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
