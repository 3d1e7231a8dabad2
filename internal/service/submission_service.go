package service

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/metrics"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/queue"
	"github.com/unclebandit/aspform-backend/internal/repository"
)

// SubmissionService is read-only: submissions are never edited or removed.
type SubmissionService struct {
	Repo      repository.SubmissionRepositoryInterface
	GroupRepo repository.GroupRepositoryInterface
	Log       *zap.Logger
}

// VerifyResult compares a stored fingerprint with one recomputed from the
// stored fields and the group's current email.
type VerifyResult struct {
	Fingerprint string `json:"fingerprint"`
	Recomputed  string `json:"recomputed"`
	Match       bool   `json:"match"`
}

// List fetches submissions newest first with pagination
func (s *SubmissionService) List(ctx context.Context, page, pageSize int, filter model.SubmissionFilter) ([]*model.Submission, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	// keeps (page-1)*pageSize from overflowing
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}
	offset := (page - 1) * pageSize

	subs, total, err := s.Repo.List(ctx, offset, pageSize, filter)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return subs, pagination, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, appErrors.NewNotFound("submission", id)
	}
	return sub, nil
}

func (s *SubmissionService) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	group, err := s.GroupRepo.GetByID(ctx, sub.GroupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, appErrors.NewNotFound("group", sub.GroupID)
	}

	recomputed, err := GenerateFingerprint(FingerprintInput{
		PlanID:       sub.PlanID,
		ContractBody: sub.RenderedContractBody,
		CustomerData: CustomerData{
			Name:  sub.CustomerName,
			Email: sub.CustomerEmail,
			Phone: sub.CustomerPhone,
		},
		ContractStartDate: sub.ContractStartDate,
		GroupEmail:        group.Email,
		GeneratedAt:       sub.GeneratedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	return &VerifyResult{
		Fingerprint: sub.ContractFingerprint,
		Recomputed:  recomputed,
		Match:       recomputed == sub.ContractFingerprint,
	}, nil
}

// AuditSubmission verifies a freshly stored submission. Submissions or
// groups that have since disappeared are logged and skipped.
func (s *SubmissionService) AuditSubmission(ctx context.Context, ev queue.SubmissionEvent) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("submission_id", ev.SubmissionID))

	res, err := s.Verify(ctx, ev.SubmissionID)
	if appErrors.IsNotFound(err) {
		log.Warn("audit skipped", zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	metrics.RecordFingerprintAudit(res.Match)
	if !res.Match || res.Fingerprint != ev.Fingerprint {
		log.Warn("fingerprint mismatch",
			zap.String("stored", res.Fingerprint),
			zap.String("recomputed", res.Recomputed),
			zap.String("published", ev.Fingerprint))
		return nil
	}
	log.Debug("fingerprint verified", zap.String("fingerprint", res.Fingerprint))
	return nil
}
