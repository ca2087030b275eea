package card

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/session"
	userentity "github.com/ovaphlow/pitchfork/card-flasher/internal/user/entity"
)

func withUser(r *http.Request) *http.Request {
	u := &userentity.CurrentUser{ID: uid, Email: "a@b.co", TargetLanguage: "Russian"}
	return r.WithContext(session.WithUser(r.Context(), u))
}

func newTestHandler(t *testing.T, gen *fakeGenerator) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	svc, mock, _ := newTestService(t, gen)
	return NewHandler(svc, zap.NewNop().Sugar()), mock
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandlerList(t *testing.T) {
	h, mock := newTestHandler(t, &fakeGenerator{})
	expectList(mock)

	rec := httptest.NewRecorder()
	h.List(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/cards?group=allGroups&q=run", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Cards, 1)
	assert.Equal(t, "run", body.Cards[0].Phrase)
	assert.Equal(t, []int64{5}, body.Cards[0].GroupIDs)
}

func TestHandlerList_NoUser(t *testing.T) {
	h, _ := newTestHandler(t, &fakeGenerator{})
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/cards", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerStudy_BadCurrent(t *testing.T) {
	h, _ := newTestHandler(t, &fakeGenerator{})
	rec := httptest.NewRecorder()
	h.Study(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/cards/study?current=abc", nil)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerStudy(t *testing.T) {
	h, mock := newTestHandler(t, &fakeGenerator{})
	expectList(mock)
	rec := httptest.NewRecorder()
	h.Study(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/cards/study?group=unsorted", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Card           map[string]any `json:"card"`
		MaskedExamples []string       `json:"maskedExamples"`
		Total          int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Contains(t, body.Card, "description_en")
	assert.Contains(t, body.Card, "groupIds")
}

func TestHandlerGenerate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no phrases", `{"phrases":[],"targetLanguage":"German"}`},
		{"blank phrase", `{"phrases":["  "],"targetLanguage":"German"}`},
		{"short language", `{"phrases":["run"],"targetLanguage":"G"}`},
		{"too long phrase", `{"phrases":["` + strings.Repeat("a", 161) + `"],"targetLanguage":"German"}`},
		{"malformed", `{"phrases":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			h, _ := newTestHandler(t, gen)
			rec := httptest.NewRecorder()
			h.Generate(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/cards/generate", strings.NewReader(tt.body))))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, gen.batches)
		})
	}
}

func TestHandlerGenerate(t *testing.T) {
	gen := &fakeGenerator{}
	h, mock := newTestHandler(t, gen)
	expectInsert(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO card_groups")).
		WithArgs(int64(1), uid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	body := `{"phrases":[" run "],"targetLanguage":" German ","groupIds":[5,5,-1]}`
	h.Generate(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/cards/generate", strings.NewReader(body))))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
	assert.Equal(t, [][]string{{"run"}}, gen.batches)
	assert.Equal(t, []string{"German"}, gen.langs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerDelete_InvalidID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-3"} {
		h, _ := newTestHandler(t, &fakeGenerator{})
		req := withUser(httptest.NewRequest(http.MethodDelete, "/api/cards/"+id, nil))
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.Delete(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestHandlerDelete_NotFound(t *testing.T) {
	h, mock := newTestHandler(t, &fakeGenerator{})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cards WHERE id = $1")).
		WithArgs(int64(9), uid).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/cards/9", nil))
	req.SetPathValue("id", "9")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Card not found.", decodeError(t, rec).Error)
}

func TestHandlerCheck(t *testing.T) {
	h, mock := newTestHandler(t, &fakeGenerator{})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT phrase FROM cards")).
		WithArgs(int64(2), uid).
		WillReturnRows(sqlmock.NewRows([]string{"phrase"}).AddRow("Give up"))

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/cards/2/check", strings.NewReader(`{"input":"  give UP "}`)))
	req.SetPathValue("id", "2")
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Correct)
}

func TestHandlerRegenerateExamples_Upstream(t *testing.T) {
	gen := &fakeGenerator{failOn: map[string]error{"go": apperr.Upstream("Google model returned empty response.", nil)}}
	h, mock := newTestHandler(t, gen)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT phrase FROM cards")).
		WithArgs(int64(3), uid).
		WillReturnRows(sqlmock.NewRows([]string{"phrase"}).AddRow("go"))

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/cards/3/examples", nil))
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()
	h.RegenerateExamples(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Google model returned empty response.", decodeError(t, rec).Error)
}

func TestBulkRequestCheck(t *testing.T) {
	many := make([]int64, 51)
	for i := range many {
		many[i] = int64(i + 1)
	}
	tests := []struct {
		name  string
		req   BulkRequest
		field string
	}{
		{"delete needs nothing else", BulkRequest{Action: ActionDelete, CardIDs: []int64{1}}, ""},
		{"group action without group", BulkRequest{Action: ActionAddToGroup, CardIDs: []int64{1}}, "groupId"},
		{"move with group", BulkRequest{Action: ActionMoveToGroup, CardIDs: []int64{1}, GroupID: 4}, ""},
		{"regenerate too many", BulkRequest{Action: ActionRegenerate, CardIDs: many, TargetLanguage: "German"}, "cardIds"},
		{"regenerate without language", BulkRequest{Action: ActionRegenerate, CardIDs: []int64{1}, TargetLanguage: "G"}, "targetLanguage"},
		{"regenerate ok", BulkRequest{Action: ActionRegenerate, CardIDs: []int64{1}, TargetLanguage: "German"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Check()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestHandlerBulk_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown action", `{"action":"archive","cardIds":[1]}`},
		{"no cards", `{"action":"delete","cardIds":[]}`},
		{"non-positive card", `{"action":"delete","cardIds":[0]}`},
		{"group missing", `{"action":"removeFromGroup","cardIds":[1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandler(t, &fakeGenerator{})
			rec := httptest.NewRecorder()
			h.Bulk(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/cards/bulk", strings.NewReader(tt.body))))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandlerBulk_AddToGroup(t *testing.T) {
	h, mock := newTestHandler(t, &fakeGenerator{})
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO card_groups")).
		WithArgs(int64(4), uid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rec := httptest.NewRecorder()
	body := `{"action":"addToGroup","cardIds":[1,2],"groupId":4}`
	h.Bulk(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/cards/bulk", strings.NewReader(body))))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}
