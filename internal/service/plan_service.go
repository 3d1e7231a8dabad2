package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/repository"
)

const defaultSurveyDueMonths = 2

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PlanService is the admin API over plans. Contract HTML is sanitized on
// every write; rendering never escapes it later.
type PlanService struct {
	Repo   repository.PlanRepositoryInterface
	Policy *bluemonday.Policy
}

func NewPlanService(repo repository.PlanRepositoryInterface) *PlanService {
	return &PlanService{Repo: repo, Policy: bluemonday.UGCPolicy()}
}

func (s *PlanService) List(ctx context.Context) ([]*model.Plan, error) {
	return s.Repo.List(ctx)
}

func (s *PlanService) Get(ctx context.Context, id string) (*model.Plan, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, appErrors.NewNotFound("plan", id)
	}
	return p, nil
}

// Create stores a new plan. Unset status defaults to active, unset or zero
// survey_due_months to 2 and unset checklist to empty.
func (s *PlanService) Create(ctx context.Context, in model.PlanUpdate) (*model.Plan, error) {
	if isBlank(in.Name) || isBlank(in.Slug) || isBlank(in.ContractBodyHTML) ||
		isBlank(in.EmailSubjectTemplate) || isBlank(in.EmailBodyTemplate) {
		return nil, appErrors.NewValidation("必須項目を入力してください")
	}

	p := &model.Plan{
		Status:          true,
		ChecklistItems:  model.ChecklistItems{},
		SurveyDueMonths: defaultSurveyDueMonths,
	}
	if in.SurveyDueMonths != nil && *in.SurveyDueMonths == 0 {
		in.SurveyDueMonths = nil
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	in.Apply(p)
	clean, err := s.sanitize(p.ContractBodyHTML)
	if err != nil {
		return nil, err
	}
	p.ContractBodyHTML = clean

	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return p, nil
}

// Update applies the set fields of in to plan id.
func (s *PlanService) Update(ctx context.Context, id string, in model.PlanUpdate) (*model.Plan, error) {
	for _, f := range []*string{in.Name, in.Slug, in.ContractBodyHTML, in.EmailSubjectTemplate, in.EmailBodyTemplate} {
		if f != nil && strings.TrimSpace(*f) == "" {
			return nil, appErrors.NewValidation("必須項目を入力してください")
		}
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if in.ContractBodyHTML != nil {
		clean, err := s.sanitize(*in.ContractBodyHTML)
		if err != nil {
			return nil, err
		}
		in.ContractBodyHTML = &clean
	}

	p, err := s.Repo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	if p == nil {
		return nil, appErrors.NewNotFound("plan", id)
	}
	return p, nil
}

func (s *PlanService) Delete(ctx context.Context, id string) error {
	ok, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if !ok {
		return appErrors.NewNotFound("plan", id)
	}
	return nil
}

func (s *PlanService) validate(in model.PlanUpdate) error {
	if in.Slug != nil && !slugPattern.MatchString(*in.Slug) {
		return appErrors.NewValidation("スラッグは半角英小文字・数字・ハイフンのみ使用できます")
	}
	if in.SurveyDueMonths != nil && *in.SurveyDueMonths < 1 {
		return appErrors.NewValidation("アンケート期限（月数）は1以上で指定してください")
	}
	if in.ChecklistItems != nil {
		for _, item := range *in.ChecklistItems {
			if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Text) == "" {
				return appErrors.NewValidation("チェック項目のIDと本文は必須です")
			}
		}
		if id, dup := in.ChecklistItems.DuplicateID(); dup {
			return appErrors.NewValidation(fmt.Sprintf("チェック項目のIDが重複しています: %s", id))
		}
	}
	return nil
}

// sanitize strips unsafe markup. The policy URL-escapes relative src/href
// values, which would hide placeholders from the renderer, so a body that
// loses any "{{" in sanitation is rejected instead of stored broken.
func (s *PlanService) sanitize(html string) (string, error) {
	if s.Policy == nil {
		return html, nil
	}
	clean := s.Policy.Sanitize(html)
	if strings.Count(clean, "{{") < strings.Count(html, "{{") {
		return "", appErrors.NewValidation("差し込み項目（{{...}}）は画像やリンクのURL、スクリプト内では使用できません")
	}
	return clean, nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
