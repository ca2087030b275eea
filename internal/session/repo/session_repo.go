package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SessionUser is a session row joined with its owner.
type SessionUser struct {
	ID             int64  `db:"id"`
	Email          string `db:"email"`
	TargetLanguage string `db:"target_language"`
	ExpiresAt      int64  `db:"expires_at"`
}

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Save(ctx context.Context, token string, userID int64, expiresAt int64) error {
	const q = `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, q, token, userID, expiresAt)
	return err
}

// FindUser returns the session owner or sql.ErrNoRows.
func (r *SessionRepo) FindUser(ctx context.Context, token string) (*SessionUser, error) {
	const q = `SELECT users.id, users.email, users.target_language, sessions.expires_at
		FROM sessions
		INNER JOIN users ON users.id = sessions.user_id
		WHERE sessions.token = $1
		LIMIT 1`
	var row SessionUser
	if err := r.db.GetContext(ctx, &row, q, token); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}
