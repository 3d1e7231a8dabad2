package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/repository"
)

const tokenAttempts = 3

// GroupService is the admin API over groups. Tokens are only ever minted
// here, never accepted from the caller.
type GroupService struct {
	Repo     repository.GroupRepositoryInterface
	NewToken func() (string, error)
}

func NewGroupService(repo repository.GroupRepositoryInterface) *GroupService {
	return &GroupService{Repo: repo, NewToken: GenerateToken}
}

func (s *GroupService) List(ctx context.Context) ([]*model.Group, error) {
	return s.Repo.List(ctx)
}

func (s *GroupService) Get(ctx context.Context, id string) (*model.Group, error) {
	g, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, appErrors.NewNotFound("group", id)
	}
	return g, nil
}

func (s *GroupService) Create(ctx context.Context, in model.GroupUpdate) (*model.Group, error) {
	if isBlank(in.Name) || isBlank(in.Email) {
		return nil, appErrors.NewValidation("名前とメールアドレスは必須です")
	}
	if err := validateGroup(in); err != nil {
		return nil, err
	}

	g := &model.Group{
		Type:           model.GroupTypeGroup,
		Status:         true,
		AllowedDomains: []string{},
	}
	in.Apply(g)

	var err error
	for i := 0; i < tokenAttempts; i++ {
		if g.Token, err = s.NewToken(); err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		err = s.Repo.Create(ctx, g)
		if !errors.Is(err, appErrors.ErrDuplicateToken) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (s *GroupService) Update(ctx context.Context, id string, in model.GroupUpdate) (*model.Group, error) {
	if (in.Name != nil && isBlank(in.Name)) || (in.Email != nil && isBlank(in.Email)) {
		return nil, appErrors.NewValidation("名前とメールアドレスは必須です")
	}
	if err := validateGroup(in); err != nil {
		return nil, err
	}
	g, err := s.Repo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	if g == nil {
		return nil, appErrors.NewNotFound("group", id)
	}
	return g, nil
}

// RegenerateToken replaces the group's token, invalidating every URL that
// carried the old one, and clears last_used_at.
func (s *GroupService) RegenerateToken(ctx context.Context, id string) (*model.Group, error) {
	var (
		g   *model.Group
		err error
	)
	for i := 0; i < tokenAttempts; i++ {
		token, terr := s.NewToken()
		if terr != nil {
			return nil, fmt.Errorf("generate token: %w", terr)
		}
		g, err = s.Repo.SetToken(ctx, id, token)
		if !errors.Is(err, appErrors.ErrDuplicateToken) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("regenerate token: %w", err)
	}
	if g == nil {
		return nil, appErrors.NewNotFound("group", id)
	}
	return g, nil
}

func (s *GroupService) Delete(ctx context.Context, id string) error {
	ok, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if !ok {
		return appErrors.NewNotFound("group", id)
	}
	return nil
}

func validateGroup(in model.GroupUpdate) error {
	if in.Type != nil && !model.ValidGroupType(*in.Type) {
		return appErrors.NewValidation("種別は person または group を指定してください")
	}
	if in.Email != nil {
		// bare addresses only: the value becomes the mailto target
		addr, err := mail.ParseAddress(*in.Email)
		if err != nil || addr.Address != *in.Email {
			return appErrors.NewValidation("メールアドレスの形式が正しくありません")
		}
	}
	return nil
}
