// Package triage sends casualty photos to Gemini for an injury assessment.
package triage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/rescuemind/rescuemind/internal/config"
)

var (
	ErrMissingAPIKey = errors.New("gemini api key is missing")
	ErrInvalidAPIKey = errors.New("invalid or expired gemini api key")
	ErrEmptyImage    = errors.New("image is empty")
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
}

// MimeType maps a file name to its image MIME type by extension
func MimeType(filename string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Analyzer turns an image into a triage assessment
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (string, error)
	Model() string
}

// Gemini is an Analyzer backed by the Gemini API
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini analyzer. baseURL overrides the API endpoint when set.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, baseURL string) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{client: client, model: model, timeout: cfg.Timeout}, nil
}

func (g *Gemini) Model() string {
	return g.model
}

// Analyze sends the prompt and the image inline and returns the model's JSON text
func (g *Gemini) Analyze(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if isInvalidKey(err) {
			return "", ErrInvalidAPIKey
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

func isInvalidKey(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return invalidKeyDetails(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return invalidKeyDetails(*apiErrPtr)
	}
	return false
}

func invalidKeyDetails(e genai.APIError) bool {
	if e.Code != 400 {
		return false
	}
	return strings.Contains(e.Message+fmt.Sprint(e.Details), "API_KEY_INVALID")
}
