package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/queue"
	"github.com/unclebandit/aspform-backend/internal/repository"
)

// ConsentService runs the customer-facing flow: resolving access for a
// slug/token pair and turning a completed flow into a stored Submission.
type ConsentService struct {
	PlanRepo       repository.PlanRepositoryInterface
	GroupRepo      repository.GroupRepositoryInterface
	SubmissionRepo repository.SubmissionRepositoryInterface
	Queue          queue.Queue
	Log            *zap.Logger

	Now         func() time.Time
	TokenExpiry time.Duration
	Location    *time.Location
}

type PlanView struct {
	Name             string               `json:"name"`
	Slug             string               `json:"slug"`
	ContractBodyHTML string               `json:"contract_body_html"`
	ChecklistItems   model.ChecklistItems `json:"checklist_items"`
	SurveyDueMonths  int                  `json:"survey_due_months"`
}

type GroupView struct {
	Name string `json:"name"`
}

type AccessView struct {
	Plan  PlanView  `json:"plan"`
	Group GroupView `json:"group"`
}

type SubmitRequest struct {
	Token             string  `json:"u"`
	CustomerName      string  `json:"customer_name"`
	CustomerEmail     string  `json:"customer_email"`
	CustomerPhone     *string `json:"customer_phone,omitempty"`
	ContractStartDate string  `json:"contract_start_date"`
	AgreeChecked      bool    `json:"agree_checked"`
}

type MailFallback struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type SubmitResult struct {
	MailtoURL   string       `json:"mailto_url"`
	Fallback    MailFallback `json:"fallback"`
	Fingerprint string       `json:"fingerprint"`
	// SubmissionID is for server-side use only.
	SubmissionID string `json:"-"`
}

func (s *ConsentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ConsentService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *ConsentService) tokenExpiry() time.Duration {
	if s.TokenExpiry <= 0 {
		return DefaultTokenExpiry
	}
	return s.TokenExpiry
}

// ResolveAccess checks that slug names an active plan and token an active,
// unexpired group.
func (s *ConsentService) ResolveAccess(ctx context.Context, slug, token string) (*AccessView, error) {
	if token == "" {
		return nil, appErrors.NewFlowError(appErrors.CodeMissingToken)
	}

	plan, err := s.PlanRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, appErrors.Internal(fmt.Errorf("get plan %s: %w", slug, err))
	}
	group, err := s.GroupRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, appErrors.Internal(fmt.Errorf("get group by token: %w", err))
	}

	if plan == nil || !plan.Status {
		return nil, appErrors.NewFlowError(appErrors.CodePlanInactive)
	}
	if group == nil || !group.Status {
		return nil, appErrors.NewFlowError(appErrors.CodeInvalidToken)
	}
	if IsTokenExpired(group.LastUsedAt, s.tokenExpiry(), s.now()) {
		return nil, appErrors.NewFlowError(appErrors.CodeTokenExpired)
	}

	checklist := plan.ChecklistItems
	if checklist == nil {
		checklist = model.ChecklistItems{}
	}
	return &AccessView{
		Plan: PlanView{
			Name:             plan.Name,
			Slug:             plan.Slug,
			ContractBodyHTML: plan.ContractBodyHTML,
			ChecklistItems:   checklist,
			SurveyDueMonths:  plan.SurveyDueMonths,
		},
		Group: GroupView{Name: group.Name},
	}, nil
}

// Submit validates req, renders the contract and email, fingerprints the
// result and stores it as a new Submission. Nothing is stored unless every
// step before the insert succeeds.
func (s *ConsentService) Submit(ctx context.Context, slug string, req SubmitRequest, userAgent string) (*SubmitResult, error) {
	if !req.AgreeChecked {
		return nil, appErrors.NewFlowError(appErrors.CodeAgreeRequired)
	}
	if req.Token == "" {
		return nil, appErrors.NewFlowError(appErrors.CodeMissingToken)
	}

	plan, err := s.PlanRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, appErrors.Internal(fmt.Errorf("get plan %s: %w", slug, err))
	}
	group, err := s.GroupRepo.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, appErrors.Internal(fmt.Errorf("get group by token: %w", err))
	}
	if plan == nil || group == nil || !plan.Status || !group.Status {
		return nil, appErrors.NewFlowError(appErrors.CodeInvalidRequest)
	}

	if strings.TrimSpace(req.CustomerName) == "" || strings.TrimSpace(req.CustomerEmail) == "" {
		return nil, appErrors.NewFlowError(appErrors.CodeInvalidRequest)
	}
	surveyDue, err := SurveyDueDate(req.ContractStartDate, plan.SurveyDueMonths)
	if err != nil {
		return nil, appErrors.NewFlowError(appErrors.CodeInvalidRequest)
	}
	startDate, err := FormatShort(req.ContractStartDate)
	if err != nil {
		return nil, appErrors.NewFlowError(appErrors.CodeInvalidRequest)
	}
	generatedAt := FormatLong(s.now(), s.Location)
	// an empty phone is treated as absent so stored submissions re-verify
	phone := nonEmpty(req.CustomerPhone)

	data := TemplateData{
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     phoneValue(phone),
		ContractStartDate: startDate,
		SurveyDueDate:     surveyDue,
		PlanName:          plan.Name,
		GroupName:         group.Name,
		GeneratedAt:       generatedAt,
	}

	renderedBody := RenderTemplate(plan.ContractBodyHTML, data.Values())
	renderedSubject := RenderTemplate(plan.EmailSubjectTemplate, data.Values())

	fingerprint, err := GenerateFingerprint(FingerprintInput{
		PlanID:       plan.ID,
		ContractBody: renderedBody,
		CustomerData: CustomerData{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: phone,
		},
		ContractStartDate: req.ContractStartDate,
		GroupEmail:        group.Email,
		GeneratedAt:       generatedAt,
	})
	if err != nil {
		return nil, appErrors.Internal(fmt.Errorf("fingerprint: %w", err))
	}

	data.ContractFingerprint = fingerprint
	renderedEmailBody := RenderTemplate(plan.EmailBodyTemplate, data.Values())

	sub := &model.Submission{
		PlanID:               plan.ID,
		GroupID:              group.ID,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		CustomerPhone:        phone,
		ContractStartDate:    req.ContractStartDate,
		ComputedDates:        model.ComputedDates{SurveyDueDate: surveyDue},
		RenderedContractBody: renderedBody,
		RenderedEmailSubject: renderedSubject,
		RenderedEmailBody:    renderedEmailBody,
		ContractFingerprint:  fingerprint,
		GeneratedAt:          generatedAt,
	}
	if userAgent != "" {
		sub.UserAgent = &userAgent
	}
	if err := s.SubmissionRepo.Create(ctx, sub); err != nil {
		return nil, appErrors.Internal(fmt.Errorf("create submission: %w", err))
	}

	s.afterSubmit(ctx, sub, group)

	return &SubmitResult{
		MailtoURL: GenerateMailtoURL(group.Email, renderedSubject, renderedEmailBody),
		Fallback: MailFallback{
			To:      group.Email,
			Subject: renderedSubject,
			Body:    renderedEmailBody,
		},
		Fingerprint:  fingerprint,
		SubmissionID: sub.ID,
	}, nil
}

// afterSubmit runs the side effects of a stored submission. Failures are
// logged and never reach the customer.
func (s *ConsentService) afterSubmit(ctx context.Context, sub *model.Submission, group *model.Group) {
	log := s.logger().With(zap.String("submission_id", sub.ID))

	if err := s.GroupRepo.TouchLastUsed(ctx, group.ID, s.now()); err != nil {
		log.Warn("failed to update group last_used_at", zap.String("group_id", group.ID), zap.Error(err))
	}

	if s.Queue != nil {
		ev := queue.SubmissionEvent{
			SubmissionID: sub.ID,
			PlanID:       sub.PlanID,
			GroupID:      sub.GroupID,
			Fingerprint:  sub.ContractFingerprint,
		}
		if err := s.Queue.Publish(queue.TopicSubmissionCreated, ev); err != nil {
			log.Warn("failed to publish submission event", zap.Error(err))
		}
	}

	log.Info("submission created",
		zap.String("plan_id", sub.PlanID),
		zap.String("group_id", sub.GroupID),
		zap.String("fingerprint", sub.ContractFingerprint))
}

func phoneValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
