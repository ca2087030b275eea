package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/user/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/database"
)

// ErrDuplicateEmail is wrapped in the Conflict returned by Create.
var ErrDuplicateEmail = errors.New("duplicate email")

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user with the default target language and returns its id.
// Email must already be normalized.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (int64, error) {
	const q = `INSERT INTO users (email, password_hash, target_language) VALUES ($1, $2, $3) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, email, passwordHash, entity.DefaultTargetLanguage).Scan(&id); err != nil {
		if database.IsUniqueViolation(err) {
			return 0, apperr.Conflict("User already exists.", ErrDuplicateEmail)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, email, password_hash, target_language, created_at FROM users WHERE email = $1 LIMIT 1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdateTargetLanguage(ctx context.Context, id int64, language string) error {
	const q = `UPDATE users SET target_language = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, q, language, id); err != nil {
		return fmt.Errorf("update target language: %w", err)
	}
	return nil
}
