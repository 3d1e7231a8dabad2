package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/aspform-backend/internal/model"
)

// Lookups return (nil, nil) when the record does not exist, so callers can
// tell "not found" apart from a storage failure.

type PlanRepositoryInterface interface {
	List(ctx context.Context) ([]*model.Plan, error)
	GetByID(ctx context.Context, id string) (*model.Plan, error)
	GetBySlug(ctx context.Context, slug string) (*model.Plan, error)
	Create(ctx context.Context, p *model.Plan) error
	Update(ctx context.Context, id string, upd model.PlanUpdate) (*model.Plan, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type GroupRepositoryInterface interface {
	List(ctx context.Context) ([]*model.Group, error)
	GetByID(ctx context.Context, id string) (*model.Group, error)
	GetByToken(ctx context.Context, token string) (*model.Group, error)
	Create(ctx context.Context, g *model.Group) error
	Update(ctx context.Context, id string, upd model.GroupUpdate) (*model.Group, error)
	SetToken(ctx context.Context, id, token string) (*model.Group, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

// SubmissionRepositoryInterface is append-only: there is no update or delete.
type SubmissionRepositoryInterface interface {
	Create(ctx context.Context, s *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	List(ctx context.Context, offset, limit int, filter model.SubmissionFilter) ([]*model.Submission, int, error)
	Count(ctx context.Context) (int, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
