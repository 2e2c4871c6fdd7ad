package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/auth"
	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/drafts"
	"github.com/rescuemind/rescuemind/internal/hospital"
	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/repository"
	"github.com/rescuemind/rescuemind/internal/session"
)

// DraftStore keeps per-user unsaved logs
type DraftStore interface {
	Get(ctx context.Context, userID string) (drafts.Draft, error)
	Merge(ctx context.Context, userID string, patch []byte) (drafts.Draft, error)
	Delete(ctx context.Context, userID string) error
}

// Transferrer hands saved logs to the hospital
type Transferrer interface {
	Send(ctx context.Context, log *models.TreatmentLog) (*hospital.Receipt, error)
}

type treatmentLogRequest struct {
	SessionID         string                   `json:"sessionId"`
	Casualty          string                   `json:"casualty"`
	StartTime         *time.Time               `json:"startTime"`
	Action            string                   `json:"action"`
	Medication        string                   `json:"medication"`
	Notes             string                   `json:"notes"`
	AdditionalActions []models.TreatmentAction `json:"additionalActions"`
	VitalSigns        *models.VitalSigns       `json:"vitalSigns"`
}

func (req *treatmentLogRequest) validate() error {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Casualty = strings.TrimSpace(req.Casualty)
	for i, a := range req.AdditionalActions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("additionalActions[%d]: %w", i, err)
		}
	}
	return nil
}

// HandleCreateTreatmentLog saves a log, snapshotting the referenced session's vitals
func HandleCreateTreatmentLog(logs repository.TreatmentLogRepository, sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req treatmentLogRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		claims := claimsFromContext(r.Context())
		entry := &models.TreatmentLog{
			UserID:            claims.UserID,
			Casualty:          req.Casualty,
			StartTime:         time.Now().UTC(),
			Action:            req.Action,
			Medication:        req.Medication,
			Notes:             req.Notes,
			AdditionalActions: req.AdditionalActions,
			VitalSigns:        req.VitalSigns,
		}
		if req.StartTime != nil {
			entry.StartTime = req.StartTime.UTC()
		}

		if req.SessionID != "" {
			s, err := sessions.Get(req.SessionID)
			if err != nil {
				respondError(w, http.StatusNotFound, "Session not found")
				return
			}
			entry.SessionID = &s.ID
			if entry.Casualty == "" {
				entry.Casualty = s.Casualty
			}
			if sample, ok := s.Latest(); ok {
				pulse, oxygen := sample.HeartRate, sample.OxygenLevel
				entry.VitalSigns = &models.VitalSigns{
					Pulse:         &pulse,
					OxygenLevel:   &oxygen,
					BloodPressure: fmt.Sprintf("%d/%d", int(sample.Systolic), int(sample.Diastolic)),
				}
			}
		}

		if err := logs.Create(r.Context(), entry); err != nil {
			logger.Error("Failed to save treatment log", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to save treatment log")
			return
		}

		logger.Info("Treatment log saved", zap.String("log", entry.ID), zap.String("user", entry.UserID))
		respondJSON(w, http.StatusCreated, entry)
	}
}

// HandleListTreatmentLogs lists the caller's logs; doctors see every log
func HandleListTreatmentLogs(logs repository.TreatmentLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		filter := repository.LogFilter{UserID: claims.UserID}
		if claims.Role == auth.RoleDoctor {
			filter.UserID = ""
		}
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
			filter.Limit = limit
		}

		list, err := logs.List(r.Context(), filter)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to load treatment logs")
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// loadLog fetches {id} and hides logs the caller may not see
func loadLog(logs repository.TreatmentLogRepository, w http.ResponseWriter, r *http.Request) (*models.TreatmentLog, bool) {
	entry, err := logs.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Treatment log not found")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "Failed to load treatment log")
		return nil, false
	}

	claims := claimsFromContext(r.Context())
	if entry.UserID != claims.UserID && claims.Role != auth.RoleDoctor {
		respondError(w, http.StatusNotFound, "Treatment log not found")
		return nil, false
	}
	return entry, true
}

// HandleGetTreatmentLog returns one log
func HandleGetTreatmentLog(logs repository.TreatmentLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if entry, ok := loadLog(logs, w, r); ok {
			respondJSON(w, http.StatusOK, entry)
		}
	}
}

// HandleExportTreatmentLog downloads the one-row hospital CSV of a log
func HandleExportTreatmentLog(logs repository.TreatmentLogRepository, monitor config.MonitorConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := loadLog(logs, w, r)
		if !ok {
			return
		}
		body, err := hospital.ExportCSV(entry, locale(r, monitor), timeFormat(monitor))
		if err != nil {
			logger.Error("Treatment log export failed", zap.String("log", entry.ID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to export treatment log")
			return
		}
		name := "hospital-transfer-" + time.Now().UTC().Format(fileTimeLayout) + ".csv"
		attach(w, "text/csv; charset=utf-8", name, body)
	}
}

// HandleTransferTreatmentLog sends a log to the hospital
func HandleTransferTreatmentLog(logs repository.TreatmentLogRepository, hosp Transferrer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := loadLog(logs, w, r)
		if !ok {
			return
		}

		receipt, err := hosp.Send(r.Context(), entry)
		if err != nil {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		if err := logs.MarkTransferred(r.Context(), entry.ID, receipt.SentAt); err != nil {
			logger.Warn("Failed to mark treatment log transferred", zap.String("log", entry.ID), zap.Error(err))
		}
		respondJSON(w, http.StatusOK, receipt)
	}
}

// HandleGetDraft returns the caller's draft or a fresh default
func HandleGetDraft(store DraftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := store.Get(r.Context(), claimsFromContext(r.Context()).UserID)
		if err != nil {
			logger.Error("Failed to load draft", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "Draft store unavailable")
			return
		}
		respondJSON(w, http.StatusOK, d)
	}
}

// HandlePutDraft merges the posted fields over the caller's draft
func HandlePutDraft(store DraftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		d, err := store.Merge(r.Context(), claimsFromContext(r.Context()).UserID, patch)
		if err != nil {
			if errors.Is(err, drafts.ErrInvalidDraft) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("Failed to save draft", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "Draft store unavailable")
			return
		}
		respondJSON(w, http.StatusOK, d)
	}
}

// HandleDeleteDraft clears the caller's draft
func HandleDeleteDraft(store DraftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), claimsFromContext(r.Context()).UserID); err != nil {
			logger.Error("Failed to delete draft", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "Draft store unavailable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "Draft cleared"})
	}
}
