package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/group/entity"
)

type GroupRepo struct {
	db *sqlx.DB
}

func NewGroupRepo(db *sqlx.DB) *GroupRepo { return &GroupRepo{db: db} }

// Create inserts a group or, when the user already has one with the same
// name in any case, returns that one.
func (r *GroupRepo) Create(ctx context.Context, userID int64, name string) (*entity.Group, error) {
	const insert = `INSERT INTO groups (user_id, name) VALUES ($1, $2)
		ON CONFLICT (user_id, LOWER(name)) DO NOTHING
		RETURNING id, name`
	var g entity.Group
	err := r.db.GetContext(ctx, &g, insert, userID, name)
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	const existing = `SELECT id, name FROM groups WHERE user_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`
	if err := r.db.GetContext(ctx, &g, existing, userID, name); err != nil {
		return nil, fmt.Errorf("load existing group: %w", err)
	}
	return &g, nil
}

// List returns the user's groups ordered by name with member counts.
func (r *GroupRepo) List(ctx context.Context, userID int64) ([]entity.GroupWithCount, error) {
	const q = `SELECT groups.id, groups.name, COUNT(card_groups.card_id) AS card_count
		FROM groups
		LEFT JOIN card_groups ON card_groups.group_id = groups.id
		WHERE groups.user_id = $1
		GROUP BY groups.id, groups.name
		ORDER BY groups.name ASC`
	out := []entity.GroupWithCount{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return out, nil
}

// UnsortedCount counts the user's cards that belong to no group.
func (r *GroupRepo) UnsortedCount(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT COUNT(cards.id)
		FROM cards
		LEFT JOIN card_groups ON card_groups.card_id = cards.id
		WHERE cards.user_id = $1
		  AND card_groups.card_id IS NULL`
	var n int
	if err := r.db.GetContext(ctx, &n, q, userID); err != nil {
		return 0, fmt.Errorf("count unsorted cards: %w", err)
	}
	return n, nil
}
