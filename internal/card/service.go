package card

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/repo"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/study"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/database"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/metrics"
)

// GenerateBatchSize is the number of phrases sent to the model per call.
const GenerateBatchSize = 50

// Generator produces card content.
type Generator interface {
	GenerateCards(ctx context.Context, phrases []string, targetLanguage string) ([]entity.Content, error)
	GenerateExamples(ctx context.Context, phrase string) ([]string, error)
}

// LanguageUpdater remembers the last target language a user generated for.
type LanguageUpdater interface {
	UpdateTargetLanguage(ctx context.Context, userID int64, language string) (string, error)
}

// Bulk actions.
const (
	ActionDelete          = "delete"
	ActionAddToGroup      = "addToGroup"
	ActionRemoveFromGroup = "removeFromGroup"
	ActionMoveToGroup     = "moveToGroup"
	ActionRegenerate      = "regenerate"
)

type Service struct {
	repo   *repo.CardRepo
	gen    Generator
	users  LanguageUpdater
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, gen Generator, users LanguageUpdater, logger *zap.SugaredLogger) *Service {
	return &Service{repo: repo.NewCardRepo(db), gen: gen, users: users, logger: logger}
}

var errCardNotFound = apperr.NotFound("Card not found.")

// List returns the user's cards, optionally narrowed by a study group filter
// and a search query.
func (s *Service) List(ctx context.Context, userID int64, group, q string) ([]entity.Card, error) {
	cards, err := s.repo.ListUserCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	return study.FilterByQuery(study.FilterByGroup(cards, group), q), nil
}

// Generate creates cards for phrases in batches of GenerateBatchSize and
// returns how many were stored. A failing batch stops the run; earlier
// batches stay stored. On success the target language is remembered.
func (s *Service) Generate(ctx context.Context, userID int64, phrases []string, targetLanguage string, groupIDs []int64) (int, error) {
	total := 0
	for start := 0; start < len(phrases); start += GenerateBatchSize {
		batch := phrases[start:min(start+GenerateBatchSize, len(phrases))]
		contents, err := s.gen.GenerateCards(ctx, batch, targetLanguage)
		if err != nil {
			if total > 0 {
				s.logger.Warnw("generation stopped after partial success", "user_id", userID, "stored", total, "err", err)
			}
			return total, err
		}
		n, err := s.repo.CreateCards(ctx, userID, contents, groupIDs)
		total += n
		metrics.CardsCreatedTotal.Add(float64(n))
		if err != nil {
			if n == 0 && len(contents) > 0 {
				return total, err
			}
			s.logger.Warnw("some cards were not stored", "user_id", userID, "err", err)
		}
	}
	if _, err := s.users.UpdateTargetLanguage(ctx, userID, targetLanguage); err != nil {
		return total, err
	}
	return total, nil
}

// RegenerateExamples replaces the two examples of an owned card.
func (s *Service) RegenerateExamples(ctx context.Context, userID, cardID int64) ([]string, error) {
	phrase, err := s.repo.GetUserCardPhrase(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errCardNotFound
		}
		return nil, fmt.Errorf("get card phrase: %w", err)
	}
	examples, err := s.gen.GenerateExamples(ctx, phrase)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateCardExamples(ctx, userID, cardID, examples)
	if err != nil {
		return nil, err
	}
	if !ok {
		// deleted while the model was working
		return nil, errCardNotFound
	}
	return []string(entity.CleanExamples(examples)), nil
}

func (s *Service) Delete(ctx context.Context, userID, cardID int64) error {
	ok, err := s.repo.DeleteUserCard(ctx, userID, cardID)
	if err != nil {
		return err
	}
	if !ok {
		return errCardNotFound
	}
	return nil
}

// CheckResult is the outcome of a writing attempt.
type CheckResult struct {
	Correct  bool            `json:"correct"`
	Segments []study.Segment `json:"segments"`
}

// Check grades a writing attempt against the card's phrase.
func (s *Service) Check(ctx context.Context, userID, cardID int64, input string) (*CheckResult, error) {
	phrase, err := s.repo.GetUserCardPhrase(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errCardNotFound
		}
		return nil, fmt.Errorf("get card phrase: %w", err)
	}
	return &CheckResult{Correct: study.IsCorrect(phrase, input), Segments: study.Diff(phrase, input)}, nil
}

// StudyCard is the next card to show in a study session.
type StudyCard struct {
	Card           *entity.Card `json:"card"`
	MaskedExamples []string     `json:"maskedExamples"`
	Total          int          `json:"total"`
}

// Next picks a random card from the filtered set, avoiding currentID when
// another card is available.
func (s *Service) Next(ctx context.Context, userID int64, group, q string, currentID int64) (*StudyCard, error) {
	cards, err := s.List(ctx, userID, group, q)
	if err != nil {
		return nil, err
	}
	out := &StudyCard{Total: len(cards), MaskedExamples: []string{}}
	if len(cards) == 0 {
		return out, nil
	}
	cur := -1
	for i, c := range cards {
		if c.ID == currentID {
			cur = i
			break
		}
	}
	c := cards[study.RandomNextIndex(cur, len(cards))]
	out.Card = &c
	out.MaskedExamples = study.MaskExamples(c.ExamplesEn, c.Phrase)
	return out, nil
}

// Bulk runs action over cardIDs and returns the number of affected cards.
// The request has already been validated.
func (s *Service) Bulk(ctx context.Context, userID int64, req BulkRequest) (int, error) {
	switch req.Action {
	case ActionDelete:
		return s.repo.DeleteUserCards(ctx, userID, req.CardIDs)
	case ActionAddToGroup:
		return s.repo.AddCardsToGroup(ctx, userID, req.CardIDs, req.GroupID)
	case ActionRemoveFromGroup:
		return s.repo.RemoveCardsFromGroup(ctx, userID, req.CardIDs, req.GroupID)
	case ActionMoveToGroup:
		return s.repo.MoveCardsToGroup(ctx, userID, req.CardIDs, req.GroupID)
	case ActionRegenerate:
		return s.regenerate(ctx, userID, req.CardIDs, req.TargetLanguage)
	default:
		return 0, apperr.Validation("Unknown bulk action.")
	}
}

// regenerate rebuilds each owned card from its phrase, one model call per
// card. Failures are skipped; only when nothing succeeded is an error
// returned.
func (s *Service) regenerate(ctx context.Context, userID int64, ids []int64, targetLanguage string) (int, error) {
	cards, err := s.repo.GetUserCardsByIDs(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	count := 0
	var failures []error
	for _, c := range cards {
		generated, err := s.gen.GenerateCards(ctx, []string{c.Phrase}, targetLanguage)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if len(generated) == 0 {
			continue
		}
		ok, err := s.repo.UpdateUserCardContent(ctx, userID, c.ID, generated[0])
		if err != nil {
			if database.IsUniqueViolation(err) {
				err = apperr.Conflict(fmt.Sprintf("Card %q already exists.", generated[0].Phrase), err)
			}
			failures = append(failures, err)
			continue
		}
		if ok {
			count++
		}
	}
	if len(failures) > 0 {
		joined := errors.Join(failures...)
		if count == 0 {
			return 0, joined
		}
		s.logger.Warnw("some cards were not regenerated", "user_id", userID, "failed", len(failures), "err", joined)
	}
	return count, nil
}
