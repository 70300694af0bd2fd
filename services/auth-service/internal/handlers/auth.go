package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/services/auth-service/internal/sessions"
	"github.com/clinica-estetica/turnos/services/auth-service/internal/storage"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (storage.User, error)
	GetByID(ctx context.Context, id string) (storage.User, error)
	TouchLogin(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, userID, rawToken string, expiresAt time.Time) (string, error)
	GetByHash(ctx context.Context, hash string) (sessions.RefreshToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

type AuthHandler struct {
	signer     *auth.Signer
	users      UserStore
	refresh    SessionStore
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthHandler(signer *auth.Signer, users UserStore, refresh SessionStore, refreshTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		signer:     signer,
		users:      users,
		refresh:    refresh,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Register mounts the auth routes; throttle (may be nil) wraps login.
func (h *AuthHandler) Register(mux *http.ServeMux, throttle httpx.Middleware) {
	login := http.Handler(http.HandlerFunc(h.Login))
	if throttle != nil {
		login = throttle(login)
	}
	mux.Handle("POST /api/v1/auth/login", login)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.Handle("GET /api/v1/auth/me", auth.RequireRole(h.signer)(http.HandlerFunc(h.Me)))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrUserNotFound) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.internal(w, r, "lookup user", err)
		return
	}
	if !user.Active || VerifyPassword(user.PasswordHash, req.Password) != nil {
		h.logger.Warn("login rejected", "request_id", httpx.RequestIDFromContext(r.Context()), "user_id", user.ID)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	resp, err := h.issue(r.Context(), user)
	if err != nil {
		h.internal(w, r, "issue tokens", err)
		return
	}
	if err := h.users.TouchLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("last login not recorded", "user_id", user.ID, "err", err)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. Presenting an already revoked token ends every session of
// its user.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readToken(w, r)
	if !ok {
		return
	}
	record, err := h.refresh.GetByHash(r.Context(), sessions.HashToken(raw))
	if errors.Is(err, sessions.ErrTokenNotFound) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		h.internal(w, r, "lookup refresh token", err)
		return
	}
	if record.RevokedAt != nil {
		h.reuseDetected(w, r, record)
		return
	}
	if !record.Usable(h.now()) {
		httpx.WriteError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	user, err := h.users.GetByID(r.Context(), record.UserID)
	if errors.Is(err, storage.ErrUserNotFound) || (err == nil && !user.Active) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if err != nil {
		h.internal(w, r, "lookup user", err)
		return
	}
	revoked, err := h.refresh.Revoke(r.Context(), record.ID)
	if err != nil {
		h.internal(w, r, "revoke refresh token", err)
		return
	}
	if !revoked {
		h.reuseDetected(w, r, record)
		return
	}

	resp, err := h.issue(r.Context(), user)
	if err != nil {
		h.internal(w, r, "issue tokens", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Logout is idempotent: unknown tokens still get 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readToken(w, r)
	if !ok {
		return
	}
	record, err := h.refresh.GetByHash(r.Context(), sessions.HashToken(raw))
	if errors.Is(err, sessions.ErrTokenNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.internal(w, r, "lookup refresh token", err)
		return
	}
	if record.RevokedAt == nil {
		if _, err := h.refresh.Revoke(r.Context(), record.ID); err != nil {
			h.internal(w, r, "revoke refresh token", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) reuseDetected(w http.ResponseWriter, r *http.Request, record sessions.RefreshToken) {
	n, err := h.refresh.RevokeAll(r.Context(), record.UserID)
	if err != nil {
		h.internal(w, r, "revoke sessions", err)
		return
	}
	h.logger.Warn("refresh token reuse; sessions revoked", "user_id", record.UserID, "token_id", record.ID,
		"revoked", n, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	})
}

func (h *AuthHandler) issue(ctx context.Context, user storage.User) (tokenResponse, error) {
	access, exp, err := h.signer.Sign(user.ID, user.Email, user.Role)
	if err != nil {
		return tokenResponse{}, err
	}
	raw, err := sessions.NewRawToken()
	if err != nil {
		return tokenResponse{}, err
	}
	if _, err := h.refresh.Create(ctx, user.ID, raw, h.now().Add(h.refreshTTL)); err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{AccessToken: access, RefreshToken: raw, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func (h *AuthHandler) readToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req tokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		httpx.WriteError(w, http.StatusBadRequest, "refresh_token required")
		return "", false
	}
	return raw, true
}

func (h *AuthHandler) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}

func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hash, raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
}
