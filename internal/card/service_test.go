package card

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
)

const uid = int64(21)

type fakeGenerator struct {
	batches  [][]string
	langs    []string
	failOn   map[string]error
	examples []string
	rename   map[string]string
}

func (f *fakeGenerator) GenerateCards(_ context.Context, phrases []string, lang string) ([]entity.Content, error) {
	f.batches = append(f.batches, append([]string(nil), phrases...))
	f.langs = append(f.langs, lang)
	out := make([]entity.Content, 0, len(phrases))
	for _, p := range phrases {
		if err := f.failOn[p]; err != nil {
			return nil, err
		}
		phrase := p
		if r, ok := f.rename[p]; ok {
			phrase = r
		}
		out = append(out, entity.Content{Phrase: phrase, Translation: "t:" + p, DescriptionEn: "d", ExamplesEn: []string{"a", "b"}})
	}
	return out, nil
}

func (f *fakeGenerator) GenerateExamples(_ context.Context, phrase string) ([]string, error) {
	if err := f.failOn[phrase]; err != nil {
		return nil, err
	}
	return f.examples, nil
}

type fakeUsers struct {
	lang  string
	calls int
}

func (f *fakeUsers) UpdateTargetLanguage(_ context.Context, _ int64, lang string) (string, error) {
	f.lang = lang
	f.calls++
	return lang, nil
}

func newTestService(t *testing.T, gen *fakeGenerator) (*Service, sqlmock.Sqlmock, *fakeUsers) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	users := &fakeUsers{}
	return NewService(sqlx.NewDb(db, "sqlmock"), gen, users, zap.NewNop().Sugar()), mock, users
}

var cardCols = []string{"id", "phrase", "translation", "description_en", "examples_en", "created_at"}

func expectInsert(mock sqlmock.Sqlmock, id int64) {
	rows := sqlmock.NewRows([]string{"id"})
	if id > 0 {
		rows.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WithArgs(uid, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func phrases(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%d", i)
	}
	return out
}

func TestGenerate_BatchesOfFifty(t *testing.T) {
	gen := &fakeGenerator{}
	s, mock, users := newTestService(t, gen)
	for i := 0; i < 120; i++ {
		expectInsert(mock, int64(i+1))
	}

	n, err := s.Generate(t.Context(), uid, phrases(120), "German", nil)
	require.NoError(t, err)
	assert.Equal(t, 120, n)
	require.Len(t, gen.batches, 3)
	assert.Len(t, gen.batches[0], 50)
	assert.Len(t, gen.batches[1], 50)
	assert.Len(t, gen.batches[2], 20)
	assert.Equal(t, "German", users.lang)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerate_CountsOnlyStoredCards(t *testing.T) {
	gen := &fakeGenerator{}
	s, mock, _ := newTestService(t, gen)
	expectInsert(mock, 1)
	expectInsert(mock, 0) // duplicate phrase

	n, err := s.Generate(t.Context(), uid, []string{"run", "Run"}, "German", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGenerate_FailingBatchKeepsEarlierOnes(t *testing.T) {
	in := phrases(60)
	gen := &fakeGenerator{failOn: map[string]error{"p55": apperr.Upstream("model down", nil)}}
	s, mock, users := newTestService(t, gen)
	for i := 0; i < 50; i++ {
		expectInsert(mock, int64(i+1))
	}

	n, err := s.Generate(t.Context(), uid, in, "German", nil)
	assert.Equal(t, 50, n)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Zero(t, users.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegenerateExamples(t *testing.T) {
	gen := &fakeGenerator{examples: []string{" One. ", "Two."}}
	s, mock, _ := newTestService(t, gen)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT phrase FROM cards WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(3), uid).
		WillReturnRows(sqlmock.NewRows([]string{"phrase"}).AddRow("go"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cards SET examples_en")).
		WithArgs(`["One.","Two."]`, int64(3), uid).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ex, err := s.RegenerateExamples(t.Context(), uid, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"One.", "Two."}, ex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegenerateExamples_NotOwned(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT phrase FROM cards")).
		WithArgs(int64(3), uid).
		WillReturnRows(sqlmock.NewRows([]string{"phrase"}))

	_, err := s.RegenerateExamples(t.Context(), uid, 3)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDelete_NotFound(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cards WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(8), uid).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Delete(t.Context(), uid, 8)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCheck(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT phrase FROM cards")).
		WithArgs(int64(2), uid).
		WillReturnRows(sqlmock.NewRows([]string{"phrase"}).AddRow("cat"))

	res, err := s.Check(t.Context(), uid, 2, "cot")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	require.Len(t, res.Segments, 3)
	assert.Equal(t, "bad", string(res.Segments[1].Tone))
}

func expectList(mock sqlmock.Sqlmock) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC")).
		WithArgs(uid).
		WillReturnRows(sqlmock.NewRows(cardCols).
			AddRow(int64(3), "give up", "сдаваться", "d", []byte(`["Never give up.","She gave up."]`), now).
			AddRow(int64(2), "run", "бежать", "d", []byte(`["I run daily.","He runs."]`), now).
			AddRow(int64(1), "take off", "взлетать", "d", []byte(`[]`), now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM card_groups")).
		WithArgs(uid).
		WillReturnRows(sqlmock.NewRows([]string{"card_id", "group_id"}).AddRow(int64(2), int64(5)))
}

func TestList_Filters(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	expectList(mock)
	cards, err := s.List(t.Context(), uid, "unsorted", "TAKE")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, int64(1), cards[0].ID)
}

func TestNext_MasksExamplesAndAvoidsCurrent(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	expectList(mock)
	out, err := s.Next(t.Context(), uid, "5", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	require.NotNil(t, out.Card)
	assert.Equal(t, int64(2), out.Card.ID)
	assert.Equal(t, []string{"I ______ daily.", "He ______."}, out.MaskedExamples)

	for range 5 {
		expectList(mock)
		out, err = s.Next(t.Context(), uid, "", "", 3)
		require.NoError(t, err)
		assert.NotEqual(t, int64(3), out.Card.ID)
	}
}

func TestNext_Empty(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	expectList(mock)
	out, err := s.Next(t.Context(), uid, "999", "", 0)
	require.NoError(t, err)
	assert.Nil(t, out.Card)
	assert.Zero(t, out.Total)
}

func TestBulk_Delete(t *testing.T) {
	s, mock, _ := newTestService(t, &fakeGenerator{})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cards WHERE user_id = $1")).
		WithArgs(uid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.Bulk(t.Context(), uid, BulkRequest{Action: ActionDelete, CardIDs: []int64{1, 99}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBulk_RegenerateSkipsFailures(t *testing.T) {
	gen := &fakeGenerator{
		failOn: map[string]error{"bad": apperr.Upstream("model output does not match the expected format", nil)},
		rename: map[string]string{"went": "go"},
	}
	s, mock, _ := newTestService(t, gen)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("id = ANY($2::bigint[])")).
		WithArgs(uid, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cardCols).
			AddRow(int64(3), "went", "", "", []byte(`[]`), now).
			AddRow(int64(2), "bad", "", "", []byte(`[]`), now).
			AddRow(int64(1), "walk", "", "", []byte(`[]`), now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cards")).
		WithArgs("go", "t:went", "d", `["a","b"]`, int64(3), uid).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cards")).
		WithArgs("walk", "t:walk", "d", `["a","b"]`, int64(1), uid).
		WillReturnError(&pq.Error{Code: "23505"})

	n, err := s.Bulk(t.Context(), uid, BulkRequest{Action: ActionRegenerate, CardIDs: []int64{1, 2, 3}, TargetLanguage: "German"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"German", "German", "German"}, gen.langs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulk_RegenerateAllFail(t *testing.T) {
	gen := &fakeGenerator{failOn: map[string]error{"bad": apperr.Upstream("model down", errors.New("503"))}}
	s, mock, _ := newTestService(t, gen)
	mock.ExpectQuery(regexp.QuoteMeta("id = ANY($2::bigint[])")).
		WillReturnRows(sqlmock.NewRows(cardCols).AddRow(int64(2), "bad", "", "", []byte(`[]`), time.Now()))

	n, err := s.Bulk(t.Context(), uid, BulkRequest{Action: ActionRegenerate, CardIDs: []int64{2}, TargetLanguage: "German"})
	assert.Zero(t, n)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}
