package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	repo "github.com/ovaphlow/pitchfork/card-flasher/internal/session/repo"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/user/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/utilities"
)

// TTL is how long a session stays valid after login.
const TTL = 30 * 24 * time.Hour

type Config struct {
	// SecureCookie marks the session cookie Secure; on when APP_ENV=production.
	SecureCookie bool
}

func ConfigFromEnv() Config {
	return Config{SecureCookie: os.Getenv("APP_ENV") == "production"}
}

// Service manages opaque DB-backed sessions.
type Service struct {
	repo   *repo.SessionRepo
	cfg    Config
	logger *zap.SugaredLogger

	now      func() time.Time
	newToken func() (string, error)
}

var errUnauthorized = apperr.Unauthorized("Unauthorized")

func NewService(db *sqlx.DB, cfg Config, logger *zap.SugaredLogger) *Service {
	return &Service{
		repo:     repo.NewSessionRepo(db),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newToken: utilities.NewSessionToken,
	}
}

// Create persists a new session for userID and returns its token and expiry
// in epoch milliseconds.
func (s *Service) Create(ctx context.Context, userID int64) (string, int64, error) {
	token, err := s.newToken()
	if err != nil {
		return "", 0, fmt.Errorf("session token: %w", err)
	}
	expiresAt := s.now().Add(TTL).UnixMilli()
	if err := s.repo.Save(ctx, token, userID, expiresAt); err != nil {
		return "", 0, fmt.Errorf("save session: %w", err)
	}
	return token, expiresAt, nil
}

// Resolve maps a token to its user. An expired session is deleted before
// Unauthorized is returned.
func (s *Service) Resolve(ctx context.Context, token string) (*entity.CurrentUser, error) {
	if token == "" {
		return nil, errUnauthorized
	}
	row, err := s.repo.FindUser(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUnauthorized
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if row.ExpiresAt <= s.now().UnixMilli() {
		if err := s.repo.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		s.logger.Debugw("expired session removed", "user_id", row.ID)
		return nil, errUnauthorized
	}
	return &entity.CurrentUser{ID: row.ID, Email: row.Email, TargetLanguage: row.TargetLanguage}, nil
}

// Delete removes a session; unknown tokens are not an error.
func (s *Service) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
