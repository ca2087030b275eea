package card

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/session"
)

// Handler exposes the /api/cards endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type ListResponse struct {
	Cards []entity.Card `json:"cards"`
}

type GenerateRequest struct {
	Phrases        []string `json:"phrases" validate:"required,min=1,max=1000,dive,min=1,max=160"`
	TargetLanguage string   `json:"targetLanguage" validate:"required,min=2,max=60"`
	GroupIDs       []int64  `json:"groupIds" validate:"max=100"`
}

func (g *GenerateRequest) Normalize() {
	for i, p := range g.Phrases {
		g.Phrases[i] = strings.TrimSpace(p)
	}
	g.TargetLanguage = strings.TrimSpace(g.TargetLanguage)
}

type CountResponse struct {
	Count int `json:"count"`
}

type ExamplesResponse struct {
	ExamplesEn []string `json:"examplesEn"`
}

type CheckRequest struct {
	Input string `json:"input" validate:"max=500"`
}

// BulkRequest is one bulk action over a set of the caller's cards.
type BulkRequest struct {
	Action         string  `json:"action" validate:"required,oneof=delete addToGroup removeFromGroup moveToGroup regenerate"`
	CardIDs        []int64 `json:"cardIds" validate:"required,min=1,max=500,dive,gt=0"`
	GroupID        int64   `json:"groupId" validate:"gte=0"`
	TargetLanguage string  `json:"targetLanguage" validate:"max=60"`
}

func (b *BulkRequest) Normalize() {
	b.TargetLanguage = strings.TrimSpace(b.TargetLanguage)
}

// Check applies the per-action rules the struct tags cannot express.
func (b *BulkRequest) Check() error {
	switch b.Action {
	case ActionAddToGroup, ActionRemoveFromGroup, ActionMoveToGroup:
		if b.GroupID <= 0 {
			return apperr.Validation("groupId is required", apperr.Issue{Field: "groupId", Message: "groupId is required"})
		}
	case ActionRegenerate:
		if len(b.CardIDs) > 50 {
			return apperr.Validation("cardIds must contain at most 50 items", apperr.Issue{Field: "cardIds", Message: "cardIds must contain at most 50 items"})
		}
		if len([]rune(b.TargetLanguage)) < 2 {
			return apperr.Validation("targetLanguage must be at least 2 characters long", apperr.Issue{Field: "targetLanguage", Message: "targetLanguage must be at least 2 characters long"})
		}
	}
	return nil
}

func cardID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid card id.", apperr.Issue{Field: "id", Message: "id must be a positive integer"})
	}
	return id, nil
}

// List handles GET /api/cards?group=&q=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	cards, err := h.svc.List(r.Context(), u.ID, q.Get("group"), q.Get("q"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Cards: cards})
}

// Study handles GET /api/cards/study?group=&q=&current=.
func (h *Handler) Study(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	var current int64
	if v := q.Get("current"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.WriteError(w, h.logger, apperr.Validation("Invalid current card id."))
			return
		}
		current = n
	}
	out, err := h.svc.Next(r.Context(), u.ID, q.Get("group"), q.Get("q"), current)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	n, err := h.svc.Generate(r.Context(), u.ID, req.Phrases, req.TargetLanguage, req.GroupIDs)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) RegenerateExamples(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := cardID(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	examples, err := h.svc.RegenerateExamples(r.Context(), u.ID, id)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ExamplesResponse{ExamplesEn: examples})
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := cardID(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	var req CheckRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	res, err := h.svc.Check(r.Context(), u.ID, id, req.Input)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, err := cardID(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), u.ID, id); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.OK)
}

func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request) {
	u, ok := session.CurrentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req BulkRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if err := req.Check(); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	n, err := h.svc.Bulk(r.Context(), u.ID, req)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}
