package group

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/group/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/group/repo"
)

// MaxNameLength is the longest group name in characters.
const MaxNameLength = 60

// ReservedName cannot be used in any letter case; the study filter uses it.
const ReservedName = "all"

type Service struct {
	repo *repo.GroupRepo
}

func NewService(db *sqlx.DB) *Service {
	return &Service{repo: repo.NewGroupRepo(db)}
}

// Create validates the name and upserts the group.
func (s *Service) Create(ctx context.Context, userID int64, rawName string) (*entity.Group, error) {
	name := strings.TrimSpace(rawName)
	switch {
	case name == "":
		return nil, apperr.Validation("Group name is required.", apperr.Issue{Field: "name", Message: "name is required"})
	case utf8.RuneCountInString(name) > MaxNameLength:
		return nil, apperr.Validation("Group name must be at most 60 characters.", apperr.Issue{Field: "name", Message: "name must be at most 60 characters long"})
	case strings.EqualFold(name, ReservedName):
		return nil, apperr.Validation(`Group name "all" is reserved.`, apperr.Issue{Field: "name", Message: "name is reserved"})
	}
	return s.repo.Create(ctx, userID, name)
}

func (s *Service) Overview(ctx context.Context, userID int64) (*entity.Overview, error) {
	groups, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	unsorted, err := s.repo.UnsortedCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &entity.Overview{Groups: groups, UnsortedCount: unsorted}, nil
}
