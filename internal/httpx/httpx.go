// Package httpx holds the JSON request/response helpers used by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
)

// maxBodyBytes caps request bodies; 1000 phrases of 160 chars fit comfortably.
const maxBodyBytes = 1 << 20

// Normalizer is implemented by request bodies that trim or default their
// fields before validation.
type Normalizer interface {
	Normalize()
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string         `json:"error"`
	Issues []apperr.Issue `json:"issues,omitempty"`
}

// OK is the body of responses that carry no payload.
var OK = map[string]bool{"ok": true}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error response. Only *apperr.Error messages
// reach the client; anything else is logged and replaced by a generic message.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := StatusOf(err)
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		logger.Errorw("unhandled error", "err", err)
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{Error: "Internal server error."})
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "kind", ae.Kind.String(), "err", err)
	} else {
		logger.Debugw("request rejected", "kind", ae.Kind.String(), "err", err)
	}
	WriteJSON(w, status, ErrorBody{Error: ae.Message, Issues: ae.Issues})
}

// Decode reads a JSON body into dst, normalizes it and validates it.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required.")
		}
		return apperr.Validation("Invalid JSON body.")
	}
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	return Validate(dst)
}
