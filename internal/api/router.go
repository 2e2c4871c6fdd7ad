package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/auth"
	"github.com/rescuemind/rescuemind/internal/config"
	"github.com/rescuemind/rescuemind/internal/metrics"
	"github.com/rescuemind/rescuemind/internal/repository"
	"github.com/rescuemind/rescuemind/internal/session"
	"github.com/rescuemind/rescuemind/internal/websocket"
)

// Deps holds everything the router wires into handlers
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   *auth.TokenIssuer
	Users    repository.UserRepository
	Logs     repository.TreatmentLogRepository
	Sessions *session.Manager
	Drafts   DraftStore
	Triage   Predictor
	Hospital Transferrer
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	// UploadDir is served at /uploads/ when images are stored locally
	UploadDir string
}

// NewRouter creates a new HTTP router
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware(cfg.Environment))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var onAuthFail, onRateLimited func()
	if d.Metrics != nil {
		onAuthFail = d.Metrics.AuthFailures.Inc
		onRateLimited = d.Metrics.RateLimitDropped.Inc
	}
	authLimiter := PerMinute(cfg.Auth.RateLimit)

	r.Route("/api", func(r chi.Router) {
		// Auth routes
		r.Group(func(r chi.Router) {
			r.Use(StrictRateLimitMiddleware(authLimiter, onRateLimited))
			r.Post("/auth/register", HandleRegister(d.Users, d.Tokens, d.Logger))
			r.Post("/auth/login", HandleLogin(d.Users, d.Tokens, d.Logger))
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(d.Tokens, onAuthFail))

			r.Get("/auth/me", HandleGetCurrentUser(d.Users))

			// Monitoring sessions
			r.Get("/sessions", HandleListSessions(d.Sessions))
			r.Post("/sessions", HandleStartSession(d.Sessions))
			r.Get("/sessions/{id}", HandleGetSession(d.Sessions))
			r.Delete("/sessions/{id}", HandleStopSession(d.Sessions))
			r.Get("/sessions/{id}/history", HandleGetHistory(d.Sessions))
			r.Get("/sessions/{id}/records", HandleGetRecords(d.Sessions))
			r.Get("/sessions/{id}/alerts", HandleGetAlerts(d.Sessions))
			r.Get("/sessions/{id}/charts", HandleGetCharts(d.Sessions, cfg.Monitor))
			r.Get("/sessions/{id}/stats", HandleGetStats(d.Sessions))
			r.Get("/sessions/{id}/export.csv", HandleExportCSV(d.Sessions, cfg.Monitor, d.Logger))
			r.Get("/sessions/{id}/export.xlsx", HandleExportXLSX(d.Sessions, cfg.Monitor, d.Logger))

			// Treatment logs
			r.Get("/treatment-logs/draft", HandleGetDraft(d.Drafts, d.Logger))
			r.Put("/treatment-logs/draft", HandlePutDraft(d.Drafts, d.Logger))
			r.Delete("/treatment-logs/draft", HandleDeleteDraft(d.Drafts, d.Logger))
			r.Get("/treatment-logs", HandleListTreatmentLogs(d.Logs))
			r.Post("/treatment-logs", HandleCreateTreatmentLog(d.Logs, d.Sessions, d.Logger))
			r.Get("/treatment-logs/{id}", HandleGetTreatmentLog(d.Logs))
			r.Get("/treatment-logs/{id}/export.csv", HandleExportTreatmentLog(d.Logs, cfg.Monitor, d.Logger))
			r.Post("/treatment-logs/{id}/transfer", HandleTransferTreatmentLog(d.Logs, d.Hospital, d.Logger))

			// Image triage
			r.Post("/images/predict", HandlePredict(d.Triage, cfg.Uploads.MaxBytes, d.Logger))
		})
	})

	// Prometheus metrics endpoint (no auth required)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	// Uploaded images
	if d.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}

	// WebSocket endpoint
	if d.Hub != nil {
		r.Get("/ws", d.Hub.HandleWebSocket)
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
