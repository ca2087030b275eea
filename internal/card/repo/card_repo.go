package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/database"
)

// CardRepo provides owner-scoped access to cards and their group links.
// Every statement filters by the caller's user id.
type CardRepo struct {
	db *sqlx.DB
}

func NewCardRepo(db *sqlx.DB) *CardRepo { return &CardRepo{db: db} }

const cardColumns = `id, phrase, translation, description_en, examples_en, created_at`

// NormalizeGroupIDs drops non-positive ids and duplicates, keeping order.
func NormalizeGroupIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreateCard inserts c unless the user already has a card with the same
// phrase in any letter case, then links the new card to those of groupIDs
// the user owns. It reports whether a card was stored.
func (r *CardRepo) CreateCard(ctx context.Context, userID int64, c entity.Content, groupIDs []int64) (bool, error) {
	c = c.Trimmed()
	const insert = `INSERT INTO cards (user_id, phrase, translation, description_en, examples_en)
		SELECT $1::bigint, $2::text, $3::text, $4::text, $5::jsonb
		WHERE NOT EXISTS (
			SELECT 1 FROM cards WHERE user_id = $1::bigint AND LOWER(phrase) = LOWER($2::text)
		)
		RETURNING id`
	var id int64
	err := r.db.QueryRowxContext(ctx, insert, userID, c.Phrase, c.Translation, c.DescriptionEn, entity.Examples(c.ExamplesEn)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			// lost a race with a concurrent insert of the same phrase
			return false, nil
		}
		return false, fmt.Errorf("insert card %q: %w", c.Phrase, err)
	}
	if len(groupIDs) == 0 {
		return true, nil
	}
	const link = `INSERT INTO card_groups (card_id, group_id)
		SELECT $1, groups.id
		FROM groups
		WHERE groups.user_id = $2
		  AND groups.id = ANY($3::bigint[])
		ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, link, id, userID, pq.Array(groupIDs)); err != nil {
		return true, fmt.Errorf("link card %d to groups: %w", id, err)
	}
	return true, nil
}

// CreateCards stores cards one at a time. A failing card does not stop the
// rest; the failures come back joined alongside the number stored.
func (r *CardRepo) CreateCards(ctx context.Context, userID int64, cards []entity.Content, groupIDs []int64) (int, error) {
	groupIDs = NormalizeGroupIDs(groupIDs)
	var (
		inserted int
		errs     []error
	)
	for _, c := range cards {
		ok, err := r.CreateCard(ctx, userID, c, groupIDs)
		if ok {
			inserted++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return inserted, errors.Join(errs...)
}

type cardGroupRow struct {
	CardID  int64 `db:"card_id"`
	GroupID int64 `db:"group_id"`
}

// ListUserCards returns the user's cards newest first with their group ids.
func (r *CardRepo) ListUserCards(ctx context.Context, userID int64) ([]entity.Card, error) {
	cards := []entity.Card{}
	q := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 ORDER BY id DESC`
	if err := r.db.SelectContext(ctx, &cards, q, userID); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	var links []cardGroupRow
	const lq = `SELECT card_groups.card_id, card_groups.group_id
		FROM card_groups
		INNER JOIN cards ON cards.id = card_groups.card_id
		WHERE cards.user_id = $1`
	if err := r.db.SelectContext(ctx, &links, lq, userID); err != nil {
		return nil, fmt.Errorf("list card groups: %w", err)
	}
	byCard := make(map[int64][]int64, len(links))
	for _, l := range links {
		byCard[l.CardID] = append(byCard[l.CardID], l.GroupID)
	}
	for i := range cards {
		if ids, ok := byCard[cards[i].ID]; ok {
			cards[i].GroupIDs = ids
		} else {
			cards[i].GroupIDs = []int64{}
		}
	}
	return cards, nil
}

// GetUserCardsByIDs returns the subset of ids the user owns. Group ids are
// not loaded.
func (r *CardRepo) GetUserCardsByIDs(ctx context.Context, userID int64, ids []int64) ([]entity.Card, error) {
	cards := []entity.Card{}
	if len(ids) == 0 {
		return cards, nil
	}
	q := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = $1 AND id = ANY($2::bigint[]) ORDER BY id DESC`
	if err := r.db.SelectContext(ctx, &cards, q, userID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get cards: %w", err)
	}
	return cards, nil
}

// GetUserCardPhrase returns the phrase of an owned card or sql.ErrNoRows.
func (r *CardRepo) GetUserCardPhrase(ctx context.Context, userID, cardID int64) (string, error) {
	var phrase string
	const q = `SELECT phrase FROM cards WHERE id = $1 AND user_id = $2 LIMIT 1`
	if err := r.db.GetContext(ctx, &phrase, q, cardID, userID); err != nil {
		return "", err
	}
	return phrase, nil
}

// UpdateUserCardContent replaces the generated content of an owned card.
// It reports false when the card does not exist or belongs to someone else.
func (r *CardRepo) UpdateUserCardContent(ctx context.Context, userID, cardID int64, c entity.Content) (bool, error) {
	c = c.Trimmed()
	const q = `UPDATE cards
		SET phrase = $1, translation = $2, description_en = $3, examples_en = $4::jsonb
		WHERE id = $5 AND user_id = $6`
	res, err := r.db.ExecContext(ctx, q, c.Phrase, c.Translation, c.DescriptionEn, entity.Examples(c.ExamplesEn), cardID, userID)
	if err != nil {
		return false, fmt.Errorf("update card %d: %w", cardID, err)
	}
	return affected(res)
}

// UpdateCardExamples replaces the examples of an owned card.
func (r *CardRepo) UpdateCardExamples(ctx context.Context, userID, cardID int64, examples []string) (bool, error) {
	const q = `UPDATE cards SET examples_en = $1::jsonb WHERE id = $2 AND user_id = $3`
	res, err := r.db.ExecContext(ctx, q, entity.CleanExamples(examples), cardID, userID)
	if err != nil {
		return false, fmt.Errorf("update examples of card %d: %w", cardID, err)
	}
	return affected(res)
}

func (r *CardRepo) DeleteUserCard(ctx context.Context, userID, cardID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, cardID, userID)
	if err != nil {
		return false, fmt.Errorf("delete card %d: %w", cardID, err)
	}
	return affected(res)
}

// DeleteUserCards deletes the owned subset of ids and returns how many went.
func (r *CardRepo) DeleteUserCards(ctx context.Context, userID int64, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE user_id = $1 AND id = ANY($2::bigint[])`, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete cards: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// AddCardsToGroup links the owned subset of ids to an owned group and
// returns the number of new links.
func (r *CardRepo) AddCardsToGroup(ctx context.Context, userID int64, ids []int64, groupID int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return addCards(ctx, r.db, userID, ids, groupID)
}

func addCards(ctx context.Context, ex sqlx.ExecerContext, userID int64, ids []int64, groupID int64) (int, error) {
	const q = `INSERT INTO card_groups (card_id, group_id)
		SELECT cards.id, groups.id
		FROM cards
		INNER JOIN groups ON groups.id = $1
		WHERE cards.user_id = $2
		  AND groups.user_id = $2
		  AND cards.id = ANY($3::bigint[])
		ON CONFLICT DO NOTHING`
	res, err := ex.ExecContext(ctx, q, groupID, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("add cards to group %d: %w", groupID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RemoveCardsFromGroup unlinks owned cards from an owned group.
func (r *CardRepo) RemoveCardsFromGroup(ctx context.Context, userID int64, ids []int64, groupID int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const q = `DELETE FROM card_groups
		USING cards, groups
		WHERE card_groups.card_id = cards.id
		  AND card_groups.group_id = groups.id
		  AND cards.user_id = $1
		  AND groups.user_id = $1
		  AND groups.id = $2
		  AND cards.id = ANY($3::bigint[])`
	res, err := r.db.ExecContext(ctx, q, userID, groupID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("remove cards from group %d: %w", groupID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MoveCardsToGroup makes groupID the only group of each owned card. The
// target is checked first: when the user does not own it nothing changes and
// the count is 0.
func (r *CardRepo) MoveCardsToGroup(ctx context.Context, userID int64, ids []int64, groupID int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var moved int
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		var owned int64
		err := tx.GetContext(ctx, &owned, `SELECT id FROM groups WHERE id = $1 AND user_id = $2 LIMIT 1`, groupID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("check group %d: %w", groupID, err)
		}
		const unlink = `DELETE FROM card_groups
			USING cards
			WHERE card_groups.card_id = cards.id
			  AND cards.user_id = $1
			  AND cards.id = ANY($2::bigint[])`
		if _, err := tx.ExecContext(ctx, unlink, userID, pq.Array(ids)); err != nil {
			return fmt.Errorf("clear card groups: %w", err)
		}
		moved, err = addCards(ctx, tx, userID, ids, groupID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
