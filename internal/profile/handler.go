// Package profile serves the signed-in user's own account view.
package profile

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/session"
)

// LanguageUpdater persists a user's target language and returns the stored value.
type LanguageUpdater interface {
	UpdateTargetLanguage(ctx context.Context, userID int64, language string) (string, error)
}

// Handler contains dependencies for handling /me endpoints.
type Handler struct {
	users  LanguageUpdater
	logger *zap.SugaredLogger
}

func NewHandler(users LanguageUpdater, logger *zap.SugaredLogger) *Handler {
	return &Handler{users: users, logger: logger}
}

type UpdateRequest struct {
	TargetLanguage string `json:"targetLanguage" validate:"required,min=2,max=60"`
}

func (u *UpdateRequest) Normalize() {
	u.TargetLanguage = strings.TrimSpace(u.TargetLanguage)
}

type UpdateResponse struct {
	OK             bool   `json:"ok"`
	TargetLanguage string `json:"targetLanguage"`
}

// Get returns the user resolved by the session middleware.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	lang, err := h.users.UpdateTargetLanguage(r.Context(), u.ID, req.TargetLanguage)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, UpdateResponse{OK: true, TargetLanguage: lang})
}
