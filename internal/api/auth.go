package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rescuemind/rescuemind/internal/auth"
	"github.com/rescuemind/rescuemind/internal/models"
	"github.com/rescuemind/rescuemind/internal/repository"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// TokenResponse carries an issued access token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// HandleRegister creates an account and returns an access token
func HandleRegister(users repository.UserRepository, tokens *auth.TokenIssuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterInput
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Normalize()
		if err := req.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			logger.Error("Register: failed to hash password", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		user := &models.User{
			Name:     req.Name,
			Phone:    req.Phone,
			Password: hash,
			Role:     req.Role,
		}
		if err := users.Create(r.Context(), user); err != nil {
			if errors.Is(err, repository.ErrDuplicatePhone) {
				respondError(w, http.StatusConflict, "Phone number already registered")
				return
			}
			logger.Error("Register: failed to create user", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		token, err := tokens.Issue(user.ID, user.Role)
		if err != nil {
			logger.Error("Register: failed to issue token", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		logger.Info("User registered", zap.String("user", user.ID), zap.String("role", user.Role))
		respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
	}
}

// HandleLogin verifies phone and password and returns an access token
func HandleLogin(users repository.UserRepository, tokens *auth.TokenIssuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginInput
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := req.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := users.FindByPhone(r.Context(), req.Phone)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				logger.Info("Login: authentication failed - unknown phone")
				respondError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			logger.Error("Login: failed to load user", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to log in")
			return
		}

		if !auth.CheckPassword(user.Password, req.Password) {
			logger.Info("Login: authentication failed - invalid password", zap.String("user", user.ID))
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := tokens.Issue(user.ID, user.Role)
		if err != nil {
			logger.Error("Login: failed to issue token", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
	}
}

// HandleGetCurrentUser returns the authenticated user
func HandleGetCurrentUser(users repository.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		user, err := users.FindByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				respondError(w, http.StatusNotFound, "User not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

// RequireAuth validates the bearer token and stores its claims in the context.
// onFail may be nil.
func RequireAuth(tokens *auth.TokenIssuer, onFail func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				if onFail != nil {
					onFail()
				}
				respondError(w, http.StatusUnauthorized, "Missing token")
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(tokenString))
			if err != nil {
				if onFail != nil {
					onFail()
				}
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	if claims == nil {
		return &auth.Claims{}
	}
	return claims
}
