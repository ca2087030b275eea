package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/card-flasher/internal/user/repo"
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// UserService orchestrates registration, login and profile updates.
type UserService struct {
	repo   *userrepo.UserRepo
	hasher PasswordHasher
}

func NewUserService(db *sqlx.DB, r *userrepo.UserRepo, hasher PasswordHasher) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher}
}

var errBadCredentials = apperr.Unauthorized("Invalid credentials.")

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and returns its id.
func (s *UserService) Register(ctx context.Context, email, password string) (int64, error) {
	email = NormalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return 0, apperr.Conflict("User already exists.", userrepo.ErrDuplicateEmail)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	// a concurrent registration still surfaces as Conflict via the unique index
	return s.repo.Create(ctx, email, hash)
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, errBadCredentials
	}
	return u, nil
}

// UpdateTargetLanguage stores the trimmed language for userID.
func (s *UserService) UpdateTargetLanguage(ctx context.Context, userID int64, language string) (string, error) {
	language = strings.TrimSpace(language)
	if err := s.repo.UpdateTargetLanguage(ctx, userID, language); err != nil {
		return "", err
	}
	return language, nil
}
