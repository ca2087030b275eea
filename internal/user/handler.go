package user

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/session"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/metrics"
)

// Sessions is the part of the session service the auth endpoints need.
type Sessions interface {
	Create(ctx context.Context, userID int64) (string, int64, error)
	Delete(ctx context.Context, token string) error
	SetCookie(w http.ResponseWriter, token string, expiresAt int64)
	ClearCookie(w http.ResponseWriter)
}

// Handler exposes HTTP endpoints for registration, login and logout.
type Handler struct {
	svc      *UserService
	sessions Sessions
	logger   *zap.SugaredLogger
}

func NewHandler(svc *UserService, sessions Sessions, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (c *CredentialsRequest) Normalize() {
	c.Email = strings.TrimSpace(c.Email)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	id, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "fail").Inc()
		httpx.WriteError(w, h.logger, err)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	h.startSession(w, r, id)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		metrics.AuthAttemptsTotal.WithLabelValues("login", "fail").Inc()
		httpx.WriteError(w, h.logger, err)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	h.startSession(w, r, u.ID)
}

// Logout deletes the session if there is one and always clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), session.TokenFromRequest(r)); err != nil {
		h.logger.Warnw("logout failed", "err", err)
		h.sessions.ClearCookie(w)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorBody{Error: "Failed to logout."})
		return
	}
	h.sessions.ClearCookie(w)
	httpx.WriteJSON(w, http.StatusOK, httpx.OK)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID int64) {
	token, expiresAt, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	h.sessions.SetCookie(w, token, expiresAt)
	httpx.WriteJSON(w, http.StatusOK, httpx.OK)
}
