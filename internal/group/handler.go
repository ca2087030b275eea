package group

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/group/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/session"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type CreateRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

func (c *CreateRequest) Normalize() { c.Name = strings.TrimSpace(c.Name) }

type CreateResponse struct {
	Group *entity.Group `json:"group"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	out, err := h.svc.Overview(r.Context(), u.ID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req CreateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	g, err := h.svc.Create(r.Context(), u.ID, req.Name)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, CreateResponse{Group: g})
}
