package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/triage"
)

const invalidGeminiKeyMessage = "Invalid or Expired Gemini API Key. Please regenerate the key."

// Predictor runs image triage
type Predictor interface {
	Predict(ctx context.Context, userID, filename string, image []byte) (*triage.Result, error)
}

// HandlePredict accepts a multipart "image" upload and returns the triage analysis
func HandlePredict(predictor Predictor, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// multipart framing adds a little on top of the file itself
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, http.StatusRequestEntityTooLarge, "Image is too large")
				return
			}
			respondError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("image")
		if err != nil {
			respondError(w, http.StatusBadRequest, "No image uploaded")
			return
		}
		defer file.Close()

		if header.Size > maxBytes {
			respondError(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return
		}
		image, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Failed to read image")
			return
		}
		if int64(len(image)) > maxBytes {
			respondError(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return
		}

		claims := claimsFromContext(r.Context())
		result, err := predictor.Predict(r.Context(), claims.UserID, header.Filename, image)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, result)
		case errors.Is(err, triage.ErrMissingAPIKey):
			respondError(w, http.StatusServiceUnavailable, "Gemini API Key is missing")
		case errors.Is(err, triage.ErrInvalidAPIKey):
			respondError(w, http.StatusBadGateway, invalidGeminiKeyMessage)
		case errors.Is(err, triage.ErrEmptyImage):
			respondError(w, http.StatusBadRequest, "No image uploaded")
		default:
			logger.Error("Image triage failed", zap.Error(err))
			respondError(w, http.StatusBadGateway, err.Error())
		}
	}
}
