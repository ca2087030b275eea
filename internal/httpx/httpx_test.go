package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
)

type signupBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (b *signupBody) Normalize() {
	b.Email = strings.TrimSpace(b.Email)
}

func TestDecode_NormalizesAndValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"  a@b.io ","password":"secret1"}`))
	var body signupBody
	require.NoError(t, Decode(req, &body))
	assert.Equal(t, "a@b.io", body.Email)
}

func TestDecode_ValidationIssues(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"123"}`))
	var body signupBody
	err := Decode(req, &body)
	require.Error(t, err)

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	require.Len(t, ae.Issues, 2)
	assert.Equal(t, "email", ae.Issues[0].Field)
	assert.Equal(t, "password", ae.Issues[1].Field)
	assert.Equal(t, "password must be at least 6 characters long", ae.Issues[1].Message)
}

func TestDecode_BadJSON(t *testing.T) {
	for _, raw := range []string{"", "{", "[]"} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body signupBody
		err := Decode(req, &body)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "body %q", raw)
	}
}

func TestWriteError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.Validation("Bad input."), http.StatusBadRequest, "Bad input."},
		{apperr.Unauthorized("Unauthorized"), http.StatusUnauthorized, "Unauthorized"},
		{apperr.NotFound("Card not found."), http.StatusNotFound, "Card not found."},
		{apperr.Conflict("User already exists.", nil), http.StatusConflict, "User already exists."},
		{apperr.Upstream("Model returned malformed output.", errors.New("eof")), http.StatusInternalServerError, "Model returned malformed output."},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError, "Internal server error."},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, zap.NewNop().Sugar(), tc.err)
		assert.Equal(t, tc.status, rec.Code)

		var body ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.msg, body.Error)
	}
}
