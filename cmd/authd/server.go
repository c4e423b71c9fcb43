package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/metrics/export/prometheus"
	"github.com/MrEthical07/tokenlife/middleware"
)

type server struct {
	engine *tokenlife.Engine
	users  tokenlife.UserDirectory
	logger *zap.Logger
}

func newServer(engine *tokenlife.Engine, users tokenlife.UserDirectory, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{engine: engine, users: users, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signin", s.signIn)
	mux.HandleFunc("POST /api/auth/refresh-token", s.refreshToken)
	mux.HandleFunc("POST /api/auth/forgot-password", s.forgotPassword)
	mux.HandleFunc("POST /api/auth/validate-reset-token", s.validateResetToken)
	mux.HandleFunc("POST /api/auth/reset-password", s.resetPassword)
	mux.HandleFunc("POST /api/auth/mfa/begin", s.beginMFA)
	mux.HandleFunc("POST /api/auth/mfa/verify", s.verifyMFA)
	mux.HandleFunc("POST /api/auth/signout", s.signOut)
	mux.Handle("GET /api/auth/me", middleware.Guard(s.engine)(http.HandlerFunc(s.me)))
	mux.Handle("GET /metrics", prometheus.Handler(s.engine))
	return middleware.RequestContext(mux)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse is the sign-in and refresh payload.
type authResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	Type         string   `json:"type"`
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *server) signIn(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	res, err := s.engine.SignIn(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeAuth(w, r, res.AccessToken, res.RefreshToken, res.Principal.Subject)
}

func (s *server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	pair, err := s.engine.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	subject, err := s.engine.SubjectOf(pair.AccessToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeAuth(w, r, pair.AccessToken, pair.RefreshToken, subject)
}

func (s *server) writeAuth(w http.ResponseWriter, r *http.Request, access, refresh, subject string) {
	resp := authResponse{Token: access, RefreshToken: refresh, Type: "Bearer", Username: subject}
	if user, err := s.users.LoadUser(r.Context(), subject); err == nil {
		resp.ID = user.ID
		resp.Email = user.Email
		resp.Roles = user.Authorities
	} else {
		s.logger.Warn("load user for auth response", zap.String("subject", subject), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := s.engine.RequestPasswordReset(r.Context(), body.Email); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password reset email sent"})
}

func (s *server) validateResetToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	valid, err := s.engine.ValidateResetToken(r.Context(), body.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !valid {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "token invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "token valid"})
}

func (s *server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := s.engine.ConfirmPasswordReset(r.Context(), body.Token, body.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password reset"})
}

func (s *server) beginMFA(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	challenge, err := s.engine.BeginMFA(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pendingToken": challenge.PendingToken,
		"expiresAt":    challenge.ExpiresAt,
	})
}

func (s *server) verifyMFA(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PendingToken string `json:"pendingToken"`
		Code         string `json:"code"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	access, err := s.engine.CompleteMFAWithToken(r.Context(), body.PendingToken, body.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": access, "type": "Bearer"})
}

func (s *server) signOut(w http.ResponseWriter, r *http.Request) {
	access, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}

	if err := s.engine.SignOut(r.Context(), access, body.RefreshToken); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AccessResultFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject":   res.Subject,
		"authType":  res.AuthType,
		"expiresAt": res.ExpiresAt,
	})
}

// writeError maps engine errors onto HTTP statuses. Infrastructure failures
// are logged and reported without detail.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, tokenlife.ErrInvalidCredentials),
		errors.Is(err, tokenlife.ErrUnauthorized),
		errors.Is(err, tokenlife.ErrMFARequired):
		status = http.StatusUnauthorized
	case errors.Is(err, tokenlife.ErrRefreshTokenInvalid),
		errors.Is(err, tokenlife.ErrMFACodeInvalid),
		errors.Is(err, tokenlife.ErrMFACodeExpired),
		errors.Is(err, tokenlife.ErrResetTokenInvalid),
		errors.Is(err, tokenlife.ErrPasswordPolicy),
		errors.Is(err, tokenlife.ErrUserNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, tokenlife.ErrRevocationUnavailable),
		errors.Is(err, tokenlife.ErrResetStoreUnavailable),
		errors.Is(err, tokenlife.ErrNotificationFailed):
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, messageResponse{Message: "service unavailable"})
		return
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
		return
	}
	writeJSON(w, status, messageResponse{Message: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "bad request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
